package models

import (
	"time"

	"github.com/google/uuid"
)

// Valid rating values. A nil rating means the recommendation has not been
// judged yet; no other integer is ever stored.
const (
	RatingLiked    = 1
	RatingDisliked = -1
)

// Recommendation records a song surfaced to a user, the songs that produced
// the suggestion and the user's eventual like/dislike verdict.
type Recommendation struct {
	ID            int64     `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	SongID        int64     `json:"song_id"`
	SourceSongIDs []int64   `json:"source_song_ids"`
	Rating        *int      `json:"rating,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Song          *Song     `json:"song,omitempty"`
}

type StoreRecommendationRequest struct {
	UserID        uuid.UUID `json:"user_id" binding:"required"`
	SongID        int64     `json:"song_id" binding:"required"`
	SourceSongIDs []int64   `json:"source_song_ids" binding:"required,min=1"`
}

type RateRecommendationRequest struct {
	Rating int `json:"rating" binding:"rating"`
}

// RecommendationFeed is a ranked song list for one user and one feed kind
// ("personalized" or "genre").
type RecommendationFeed struct {
	UserID      uuid.UUID `json:"user_id"`
	Kind        string    `json:"kind"`
	Songs       []Song    `json:"songs"`
	CacheHit    bool      `json:"cache_hit"`
	GeneratedAt time.Time `json:"generated_at"`
}

type RecommendationHistoryResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Pagination      Pagination       `json:"pagination"`
}
