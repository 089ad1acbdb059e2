package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/avreyn/chorus/internal/config"
	"github.com/avreyn/chorus/pkg/models"
)

// EmbeddingService turns a song's descriptive text into a fixed-length
// vector via a remote provider. It never fails hard: any provider problem
// yields the zero placeholder vector so catalog writes are never blocked.
// Placeholder embeddings are a normal, discoverable state; similarity gates
// on IsPlaceholder and degrades to attribute matching.
type EmbeddingService struct {
	client *resty.Client
	cfg    *config.EmbeddingConfig
	logger *logrus.Logger
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewEmbeddingService(cfg *config.EmbeddingConfig, logger *logrus.Logger) *EmbeddingService {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &EmbeddingService{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *EmbeddingService) Dimensions() int {
	return s.cfg.Dimensions
}

// SongText assembles the embedding input from the song's text-bearing
// fields in a fixed order, absent fields as empty strings.
func (s *EmbeddingService) SongText(song *models.Song) string {
	year := ""
	if song.Year != nil {
		year = strconv.Itoa(*song.Year)
	}

	fields := []string{
		song.Title,
		song.Artist,
		stringValue(song.Album),
		stringValue(song.Genre),
		year,
		stringValue(song.Lyrics),
	}
	return norm.NFC.String(strings.Join(fields, " "))
}

// Embed returns a vector of exactly Dimensions floats. Provider errors are
// logged and swallowed; the caller receives the placeholder vector instead.
func (s *EmbeddingService) Embed(ctx context.Context, text string) []float32 {
	var result embeddingResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Model: s.cfg.Model, Input: text}).
		SetResult(&result).
		Post(s.cfg.URL)
	if err != nil {
		s.logger.WithError(err).Warn("Embedding provider unreachable, using placeholder vector")
		return s.Placeholder()
	}

	if resp.IsError() {
		s.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode(),
		}).Warn("Embedding provider returned an error, using placeholder vector")
		return s.Placeholder()
	}

	if len(result.Data) == 0 {
		s.logger.Warn("Embedding provider returned no data, using placeholder vector")
		return s.Placeholder()
	}

	vec := result.Data[0].Embedding
	if len(vec) != s.cfg.Dimensions {
		s.logger.WithFields(logrus.Fields{
			"expected": s.cfg.Dimensions,
			"actual":   len(vec),
		}).Warn("Embedding dimensionality mismatch, using placeholder vector")
		return s.Placeholder()
	}

	return vec
}

// Placeholder is the deterministic zero vector stored when no real embedding
// could be computed.
func (s *EmbeddingService) Placeholder() []float32 {
	return make([]float32, s.cfg.Dimensions)
}

// IsPlaceholder reports whether a vector is absent or the zero placeholder.
func (s *EmbeddingService) IsPlaceholder(vec []float32) bool {
	if len(vec) == 0 {
		return true
	}
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
