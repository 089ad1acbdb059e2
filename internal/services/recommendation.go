package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/config"
	"github.com/avreyn/chorus/internal/repository"
	"github.com/avreyn/chorus/pkg/models"
)

// RecommendationService aggregates a user's feedback history into ranked
// feeds, records surfaced recommendations and their ratings, and keeps the
// per-user cache coherent.
type RecommendationService struct {
	recommendations *repository.RecommendationRepository
	songs           *repository.SongRepository
	similarity      *SimilarityEngine
	cache           *RecommendationCache
	cfg             *config.RecommendationConfig
	logger          *logrus.Logger
}

func NewRecommendationService(
	recommendations *repository.RecommendationRepository,
	songs *repository.SongRepository,
	similarity *SimilarityEngine,
	cache *RecommendationCache,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		recommendations: recommendations,
		songs:           songs,
		similarity:      similarity,
		cache:           cache,
		cfg:             cfg,
		logger:          logger,
	}
}

// Personalized builds the similar-to-liked-songs feed for a user.
func (s *RecommendationService) Personalized(ctx context.Context, userID uuid.UUID, k int) (*models.RecommendationFeed, error) {
	if k <= 0 {
		return s.feed(userID, FeedPersonalized, nil, false), nil
	}

	if cached, ok := s.cache.Get(ctx, userID, FeedPersonalized); ok {
		return s.feed(userID, FeedPersonalized, cached, true), nil
	}

	liked, err := s.recommendations.LikedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	songs, err := s.personalizedSongs(ctx, liked, k)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, userID, FeedPersonalized, songs)
	return s.feed(userID, FeedPersonalized, songs, false), nil
}

func (s *RecommendationService) personalizedSongs(ctx context.Context, liked []models.Recommendation, k int) ([]models.Song, error) {
	likedIDs := distinctSongIDs(liked)

	switch len(likedIDs) {
	case 0:
		return s.fallbackSample(ctx, k)
	case 1:
		song, err := s.songs.Find(ctx, likedIDs[0])
		if err != nil {
			return nil, err
		}
		return s.similarity.SimilarToSong(ctx, song, k)
	default:
		likedSongs, err := s.songs.FindMany(ctx, likedIDs)
		if err != nil {
			return nil, err
		}
		return s.similarity.SimilarToMany(ctx, likedSongs, k)
	}
}

// GenreBased builds a feed from the user's most-liked genres, excluding
// songs the user has already judged. The result may be short; genre feeds
// are never backfilled.
func (s *RecommendationService) GenreBased(ctx context.Context, userID uuid.UUID, k int) (*models.RecommendationFeed, error) {
	if k <= 0 {
		return s.feed(userID, FeedGenre, nil, false), nil
	}

	if cached, ok := s.cache.Get(ctx, userID, FeedGenre); ok {
		return s.feed(userID, FeedGenre, cached, true), nil
	}

	liked, err := s.recommendations.LikedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	songs, err := s.genreSongs(ctx, userID, liked, k)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, userID, FeedGenre, songs)
	return s.feed(userID, FeedGenre, songs, false), nil
}

func (s *RecommendationService) genreSongs(ctx context.Context, userID uuid.UUID, liked []models.Recommendation, k int) ([]models.Song, error) {
	if len(liked) == 0 {
		return s.fallbackSample(ctx, k)
	}

	likedSongs, err := s.songs.FindMany(ctx, distinctSongIDs(liked))
	if err != nil {
		return nil, err
	}

	topGenres := s.topGenres(liked, likedSongs)
	if len(topGenres) == 0 {
		return s.fallbackSample(ctx, k)
	}

	ratedIDs, err := s.recommendations.RatedSongIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.songs.ByGenres(ctx, topGenres, ratedIDs, k)
}

// topGenres tallies genre occurrences across the liked recommendations and
// keeps the most frequent, ties broken by first-seen order. Songs without a
// genre do not contribute.
func (s *RecommendationService) topGenres(liked []models.Recommendation, likedSongs []models.Song) []string {
	genreBySong := make(map[int64]string, len(likedSongs))
	for _, song := range likedSongs {
		if song.Genre != nil {
			genreBySong[song.ID] = *song.Genre
		}
	}

	counts := make(map[string]int)
	var order []string
	for _, rec := range liked {
		genre, ok := genreBySong[rec.SongID]
		if !ok {
			continue
		}
		if counts[genre] == 0 {
			order = append(order, genre)
		}
		counts[genre]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > s.cfg.TopGenres {
		order = order[:s.cfg.TopGenres]
	}
	return order
}

// fallbackSample is the deterministic no-history feed: newest catalog songs
// first.
func (s *RecommendationService) fallbackSample(ctx context.Context, k int) ([]models.Song, error) {
	return s.songs.Newest(ctx, nil, k)
}

// Store records a surfaced recommendation with an unset rating. The target
// song and every source song must exist.
func (s *RecommendationService) Store(ctx context.Context, userID uuid.UUID, songID int64, sourceSongIDs []int64) (*models.Recommendation, error) {
	if len(sourceSongIDs) == 0 {
		return nil, fmt.Errorf("source_song_ids must not be empty: %w", models.ErrValidation)
	}

	ids := append([]int64{songID}, sourceSongIDs...)
	found, err := s.songs.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	existing := make(map[int64]bool, len(found))
	for _, song := range found {
		existing[song.ID] = true
	}
	for _, id := range ids {
		if !existing[id] {
			return nil, fmt.Errorf("song %d does not exist: %w", id, models.ErrValidation)
		}
	}

	return s.recommendations.Create(ctx, userID, songID, sourceSongIDs)
}

// Rate persists a like/dislike verdict, overwriting any prior value, and
// evicts the user's cached feeds.
func (s *RecommendationService) Rate(ctx context.Context, recommendationID int64, rating int) error {
	if rating != models.RatingLiked && rating != models.RatingDisliked {
		return fmt.Errorf("rating must be -1 or 1, got %d: %w", rating, models.ErrValidation)
	}

	rec, err := s.recommendations.Find(ctx, recommendationID)
	if err != nil {
		return err
	}

	updated, err := s.recommendations.UpdateRating(ctx, recommendationID, rating)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("recommendation %d: %w", recommendationID, models.ErrNotFound)
	}

	s.cache.Invalidate(ctx, rec.UserID)

	s.logger.WithFields(logrus.Fields{
		"recommendation_id": recommendationID,
		"user_id":           rec.UserID,
		"rating":            rating,
	}).Debug("Recommendation rated")
	return nil
}

func (s *RecommendationService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Recommendation, error) {
	return s.recommendations.ListByUser(ctx, userID, limit)
}

func (s *RecommendationService) PaginatedHistory(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.Recommendation, int64, error) {
	return s.recommendations.ListByUserPaginated(ctx, userID, page, perPage)
}

func (s *RecommendationService) feed(userID uuid.UUID, kind string, songs []models.Song, cacheHit bool) *models.RecommendationFeed {
	if songs == nil {
		songs = []models.Song{}
	}
	return &models.RecommendationFeed{
		UserID:      userID,
		Kind:        kind,
		Songs:       songs,
		CacheHit:    cacheHit,
		GeneratedAt: time.Now().UTC(),
	}
}

func distinctSongIDs(recs []models.Recommendation) []int64 {
	seen := make(map[int64]bool, len(recs))
	var ids []int64
	for _, rec := range recs {
		if !seen[rec.SongID] {
			seen[rec.SongID] = true
			ids = append(ids, rec.SongID)
		}
	}
	return ids
}
