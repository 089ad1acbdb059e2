package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/avreyn/chorus/pkg/models"
)

// Handler-facing service contracts, mocked in handler tests.

type SongServiceInterface interface {
	Get(ctx context.Context, id int64) (*models.Song, error)
	List(ctx context.Context, page, perPage int) ([]models.Song, int64, error)
	Search(ctx context.Context, query string, limit int) ([]models.Song, error)
	Create(ctx context.Context, input *models.SongInput) (*models.Song, error)
	Update(ctx context.Context, id int64, input *models.SongInput) (*models.Song, error)
	Delete(ctx context.Context, id int64) error
	SimilarToSong(ctx context.Context, songID int64, k int) ([]models.Song, error)
	SimilarToMany(ctx context.Context, songIDs []int64, k int) ([]models.Song, error)
}

type RecommendationServiceInterface interface {
	Personalized(ctx context.Context, userID uuid.UUID, k int) (*models.RecommendationFeed, error)
	GenreBased(ctx context.Context, userID uuid.UUID, k int) (*models.RecommendationFeed, error)
	Store(ctx context.Context, userID uuid.UUID, songID int64, sourceSongIDs []int64) (*models.Recommendation, error)
	Rate(ctx context.Context, recommendationID int64, rating int) error
	PaginatedHistory(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.Recommendation, int64, error)
}
