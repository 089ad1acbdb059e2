package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/config"
	"github.com/avreyn/chorus/internal/services"
	"github.com/avreyn/chorus/internal/validation"
	"github.com/avreyn/chorus/pkg/models"
)

type SongsHandler struct {
	songs     services.SongServiceInterface
	validator *validation.SchemaValidator
	cfg       *config.RecommendationConfig
	logger    *logrus.Logger
}

func NewSongsHandler(
	songs services.SongServiceInterface,
	validator *validation.SchemaValidator,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *SongsHandler {
	return &SongsHandler{
		songs:     songs,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

func (h *SongsHandler) List(c *gin.Context) {
	page := positiveQueryInt(c, "page", 1)
	perPage := positiveQueryInt(c, "per_page", 15)
	if perPage > 100 {
		perPage = 100
	}

	songs, total, err := h.songs.List(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if songs == nil {
		songs = []models.Song{}
	}

	c.JSON(http.StatusOK, models.SongListResponse{
		Songs:      songs,
		Pagination: models.NewPagination(page, perPage, total),
	})
}

func (h *SongsHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	song, err := h.songs.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

func (h *SongsHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if len(query) < 2 {
		badRequest(c, "INVALID_SEARCH_QUERY", "Search query must be at least 2 characters")
		return
	}

	limit := positiveQueryInt(c, "limit", 10)
	if limit > h.cfg.MaxCount {
		limit = h.cfg.MaxCount
	}

	songs, err := h.songs.Search(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if songs == nil {
		songs = []models.Song{}
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs})
}

func (h *SongsHandler) Create(c *gin.Context) {
	input, ok := h.bindSong(c)
	if !ok {
		return
	}

	song, err := h.songs.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, song)
}

func (h *SongsHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	input, ok := h.bindSong(c)
	if !ok {
		return
	}

	song, err := h.songs.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

func (h *SongsHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.songs.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SongsHandler) GetSimilar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	count := h.clampCount(c)

	songs, err := h.songs.SimilarToSong(c.Request.Context(), id, count)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if songs == nil {
		songs = []models.Song{}
	}

	c.JSON(http.StatusOK, models.SimilarSongsResponse{
		SeedSongIDs: []int64{id},
		Songs:       songs,
	})
}

func (h *SongsHandler) GetSimilarForMany(c *gin.Context) {
	var req models.SimilarSongsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}

	count := req.Count
	if count <= 0 {
		count = h.cfg.DefaultCount
	}
	if count > h.cfg.MaxCount {
		count = h.cfg.MaxCount
	}

	songs, err := h.songs.SimilarToMany(c.Request.Context(), req.SongIDs, count)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if songs == nil {
		songs = []models.Song{}
	}

	c.JSON(http.StatusOK, models.SimilarSongsResponse{
		SeedSongIDs: req.SongIDs,
		Songs:       songs,
	})
}

// bindSong validates the raw payload against the song JSON schema before
// decoding it, so schema violations come back as structured field errors.
func (h *SongsHandler) bindSong(c *gin.Context) (*models.SongInput, bool) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "INVALID_REQUEST_BODY", "Failed to read request body")
		return nil, false
	}

	result := h.validator.ValidateSong(body)
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Song payload failed validation",
				"details": result.Errors,
			},
		})
		return nil, false
	}

	var input models.SongInput
	if err := json.Unmarshal(body, &input); err != nil {
		badRequest(c, "INVALID_REQUEST_BODY", "Invalid request body format")
		return nil, false
	}
	return &input, true
}

func (h *SongsHandler) clampCount(c *gin.Context) int {
	count := positiveQueryInt(c, "count", h.cfg.DefaultCount)
	if count > h.cfg.MaxCount {
		count = h.cfg.MaxCount
	}
	return count
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "INVALID_ID", "Invalid identifier format")
		return 0, false
	}
	return id, true
}

func positiveQueryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
