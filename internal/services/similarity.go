package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/avreyn/chorus/internal/repository"
	"github.com/avreyn/chorus/pkg/models"
)

// SimilarityEngine ranks catalog candidates against reference vectors or
// attributes. Vector ranking delegates to the pgvector cosine operator;
// attribute ranking matches genre or artist and backfills deterministically
// in ascending-ID order until K is reached or the pool is exhausted.
type SimilarityEngine struct {
	songs     *repository.SongRepository
	embedding *EmbeddingService
	logger    *logrus.Logger
}

func NewSimilarityEngine(songs *repository.SongRepository, embedding *EmbeddingService, logger *logrus.Logger) *SimilarityEngine {
	return &SimilarityEngine{
		songs:     songs,
		embedding: embedding,
		logger:    logger,
	}
}

// Nearest returns the top-K candidates by cosine similarity to the query
// vector, excluding the given IDs. An empty pool yields an empty result,
// not an error.
func (e *SimilarityEngine) Nearest(ctx context.Context, query []float32, excludeIDs []int64, k int) ([]models.Song, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	return e.songs.NearestByVector(ctx, query, excludeIDs, k)
}

// SimilarToSong finds up to K songs similar to the reference. Songs with a
// real embedding use vector similarity; songs that only carry the
// placeholder degrade to attribute matching.
func (e *SimilarityEngine) SimilarToSong(ctx context.Context, song *models.Song, k int) ([]models.Song, error) {
	if k <= 0 {
		return nil, nil
	}

	if !e.embedding.IsPlaceholder(song.Embedding) {
		return e.Nearest(ctx, song.Embedding, []int64{song.ID}, k)
	}
	return e.byAttributes(ctx, []models.Song{*song}, k)
}

// SimilarToMany averages the references' embeddings into a centroid and
// ranks against it, excluding all references. References without a usable
// embedding are skipped with a warning; if none remain, attribute matching
// over the references' genres and artists is used instead.
func (e *SimilarityEngine) SimilarToMany(ctx context.Context, refs []models.Song, k int) ([]models.Song, error) {
	if k <= 0 || len(refs) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	for _, ref := range refs {
		if e.embedding.IsPlaceholder(ref.Embedding) {
			e.logger.WithFields(logrus.Fields{
				"song_id": ref.ID,
			}).Warn("Skipping song without usable embedding in centroid")
			continue
		}
		vectors = append(vectors, ref.Embedding)
	}

	if len(vectors) == 0 {
		return e.byAttributes(ctx, refs, k)
	}

	centroid, err := Centroid(vectors)
	if err != nil {
		return nil, err
	}

	excludeIDs := make([]int64, len(refs))
	for i, ref := range refs {
		excludeIDs[i] = ref.ID
	}
	return e.Nearest(ctx, centroid, excludeIDs, k)
}

// byAttributes selects candidates sharing a genre or artist with any
// reference, then backfills ascending by ID. Never returns duplicates or
// excluded IDs.
func (e *SimilarityEngine) byAttributes(ctx context.Context, refs []models.Song, k int) ([]models.Song, error) {
	var genres, artists []string
	seenGenre := make(map[string]bool)
	seenArtist := make(map[string]bool)
	excludeIDs := make([]int64, 0, len(refs))

	for _, ref := range refs {
		excludeIDs = append(excludeIDs, ref.ID)
		if ref.Genre != nil && !seenGenre[*ref.Genre] {
			seenGenre[*ref.Genre] = true
			genres = append(genres, *ref.Genre)
		}
		if !seenArtist[ref.Artist] {
			seenArtist[ref.Artist] = true
			artists = append(artists, ref.Artist)
		}
	}

	matched, err := e.songs.ByGenresOrArtists(ctx, genres, artists, excludeIDs, k)
	if err != nil {
		return nil, err
	}
	if len(matched) >= k {
		return matched, nil
	}

	taken := append([]int64{}, excludeIDs...)
	for _, song := range matched {
		taken = append(taken, song.ID)
	}

	fill, err := e.songs.AscendingFill(ctx, taken, k-len(matched))
	if err != nil {
		return nil, err
	}
	return append(matched, fill...), nil
}

// Centroid computes the component-wise arithmetic mean of the vectors.
// Vectors whose length differs from the first are skipped with an error
// only when nothing usable remains.
func Centroid(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("centroid of zero vectors")
	}

	dims := len(vectors[0])
	sum := make([]float64, dims)
	count := 0

	for _, vec := range vectors {
		if len(vec) != dims {
			continue
		}
		v64 := make([]float64, dims)
		for i, f := range vec {
			v64[i] = float64(f)
		}
		floats.Add(sum, v64)
		count++
	}

	if count == 0 {
		return nil, fmt.Errorf("centroid of zero vectors")
	}
	floats.Scale(1/float64(count), sum)

	centroid := make([]float32, dims)
	for i, f := range sum {
		centroid[i] = float32(f)
	}
	return centroid, nil
}
