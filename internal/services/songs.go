package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/repository"
	"github.com/avreyn/chorus/pkg/models"
)

// SongService owns catalog CRUD and per-song similarity queries. Writes
// compute an embedding up front; edits recompute it only when a
// text-bearing field actually changed.
type SongService struct {
	songs      *repository.SongRepository
	embedding  *EmbeddingService
	similarity *SimilarityEngine
	logger     *logrus.Logger
}

func NewSongService(
	songs *repository.SongRepository,
	embedding *EmbeddingService,
	similarity *SimilarityEngine,
	logger *logrus.Logger,
) *SongService {
	return &SongService{
		songs:      songs,
		embedding:  embedding,
		similarity: similarity,
		logger:     logger,
	}
}

func (s *SongService) Get(ctx context.Context, id int64) (*models.Song, error) {
	return s.songs.Find(ctx, id)
}

func (s *SongService) List(ctx context.Context, page, perPage int) ([]models.Song, int64, error) {
	return s.songs.List(ctx, page, perPage)
}

func (s *SongService) Search(ctx context.Context, query string, limit int) ([]models.Song, error) {
	return s.songs.Search(ctx, query, limit)
}

func (s *SongService) Create(ctx context.Context, input *models.SongInput) (*models.Song, error) {
	song := songFromInput(input)
	song.Embedding = s.embedding.Embed(ctx, s.embedding.SongText(song))

	if err := s.songs.Create(ctx, song); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"song_id": song.ID,
		"title":   song.Title,
	}).Info("Song created")
	return song, nil
}

func (s *SongService) Update(ctx context.Context, id int64, input *models.SongInput) (*models.Song, error) {
	song, err := s.songs.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := songFromInput(input)
	updated.ID = song.ID
	updated.Embedding = song.Embedding
	updated.CreatedAt = song.CreatedAt

	if textFieldsChanged(song, updated) {
		updated.Embedding = s.embedding.Embed(ctx, s.embedding.SongText(updated))
	}

	if err := s.songs.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SongService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.songs.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return models.ErrNotFound
	}

	s.logger.WithFields(logrus.Fields{"song_id": id}).Info("Song deleted")
	return nil
}

// SimilarToSong ranks catalog songs against a single reference song.
func (s *SongService) SimilarToSong(ctx context.Context, songID int64, k int) ([]models.Song, error) {
	song, err := s.songs.Find(ctx, songID)
	if err != nil {
		return nil, err
	}
	return s.similarity.SimilarToSong(ctx, song, k)
}

// SimilarToMany ranks catalog songs against the centroid of several
// reference songs. Unknown IDs are ignored; an empty reference set yields
// an empty result.
func (s *SongService) SimilarToMany(ctx context.Context, songIDs []int64, k int) ([]models.Song, error) {
	refs, err := s.songs.FindMany(ctx, songIDs)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return s.similarity.SimilarToMany(ctx, refs, k)
}

func songFromInput(input *models.SongInput) *models.Song {
	return &models.Song{
		Title:      input.Title,
		Artist:     input.Artist,
		Album:      input.Album,
		Genre:      input.Genre,
		Year:       input.Year,
		ImageURL:   input.ImageURL,
		PreviewURL: input.PreviewURL,
		Lyrics:     input.Lyrics,
	}
}

// textFieldsChanged reports whether any embedding-relevant field differs.
// URL fields never trigger recomputation.
func textFieldsChanged(before, after *models.Song) bool {
	return before.Title != after.Title ||
		before.Artist != after.Artist ||
		!equalStringPtr(before.Album, after.Album) ||
		!equalStringPtr(before.Genre, after.Genre) ||
		!equalIntPtr(before.Year, after.Year) ||
		!equalStringPtr(before.Lyrics, after.Lyrics)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
