package models

import "time"

// Song is a catalog entry. Embedding is either nil (never computed) or a
// vector of exactly the configured dimensionality.
type Song struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      *string   `json:"album,omitempty"`
	Genre      *string   `json:"genre,omitempty"`
	Year       *int      `json:"year,omitempty"`
	ImageURL   *string   `json:"image_url,omitempty"`
	PreviewURL *string   `json:"preview_url,omitempty"`
	Lyrics     *string   `json:"lyrics,omitempty"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SongInput carries the writable fields of a song for create and update.
type SongInput struct {
	Title      string  `json:"title" binding:"required,max=255"`
	Artist     string  `json:"artist" binding:"required,max=255"`
	Album      *string `json:"album" binding:"omitempty,max=255"`
	Genre      *string `json:"genre" binding:"omitempty,max=100"`
	Year       *int    `json:"year" binding:"omitempty,min=1900"`
	ImageURL   *string `json:"image_url" binding:"omitempty,url,max=2048"`
	PreviewURL *string `json:"preview_url" binding:"omitempty,url,max=2048"`
	Lyrics     *string `json:"lyrics"`
}

type SongListResponse struct {
	Songs      []Song     `json:"songs"`
	Pagination Pagination `json:"pagination"`
}

type SimilarSongsRequest struct {
	SongIDs []int64 `json:"song_ids" binding:"required,min=1"`
	Count   int     `json:"count" binding:"omitempty,min=1,max=100"`
}

type SimilarSongsResponse struct {
	SeedSongIDs []int64 `json:"seed_song_ids"`
	Songs       []Song  `json:"songs"`
}
