package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/pkg/models"
)

const recommendationColumns = `id, user_id, song_id, source_song_ids, rating, created_at, updated_at`

type RecommendationRepository struct {
	db     Querier
	logger *logrus.Logger
}

func NewRecommendationRepository(db Querier, logger *logrus.Logger) *RecommendationRepository {
	return &RecommendationRepository{db: db, logger: logger}
}

func scanRecommendation(row rowScanner) (*models.Recommendation, error) {
	var rec models.Recommendation
	var sourceIDs []byte

	if err := row.Scan(
		&rec.ID, &rec.UserID, &rec.SongID, &sourceIDs, &rec.Rating,
		&rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(sourceIDs) > 0 {
		if err := json.Unmarshal(sourceIDs, &rec.SourceSongIDs); err != nil {
			return nil, fmt.Errorf("failed to decode source songs for recommendation %d: %w", rec.ID, err)
		}
	}

	return &rec, nil
}

func (r *RecommendationRepository) collect(rows pgx.Rows) ([]models.Recommendation, error) {
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (r *RecommendationRepository) Create(ctx context.Context, userID uuid.UUID, songID int64, sourceSongIDs []int64) (*models.Recommendation, error) {
	sourceJSON, err := json.Marshal(sourceSongIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode source songs: %w", err)
	}

	rec := &models.Recommendation{
		UserID:        userID,
		SongID:        songID,
		SourceSongIDs: sourceSongIDs,
	}

	query := `INSERT INTO recommendations (user_id, song_id, source_song_ids, rating)
		VALUES ($1, $2, $3, NULL)
		RETURNING id, created_at, updated_at`

	if err := r.db.QueryRow(ctx, query, userID, songID, sourceJSON).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create recommendation: %w", err)
	}
	return rec, nil
}

func (r *RecommendationRepository) Find(ctx context.Context, id int64) (*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = $1`

	rec, err := scanRecommendation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("recommendation %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recommendation %d: %w", id, err)
	}
	return rec, nil
}

// UpdateRating overwrites any prior rating. Concurrent ratings race here and
// the last write wins.
func (r *RecommendationRepository) UpdateRating(ctx context.Context, id int64, rating int) (bool, error) {
	query := `UPDATE recommendations SET rating = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, rating)
	if err != nil {
		return false, fmt.Errorf("failed to rate recommendation %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RecommendationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return r.collect(rows)
}

func (r *RecommendationRepository) ListByUserPaginated(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.Recommendation, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM recommendations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recommendations: %w", err)
	}

	query := `SELECT ` + recommendationColumns + ` FROM recommendations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recommendations: %w", err)
	}

	recs, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// LikedByUser returns liked recommendations oldest first, so genre tallies
// break ties by first-seen order.
func (r *RecommendationRepository) LikedByUser(ctx context.Context, userID uuid.UUID) ([]models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations
		WHERE user_id = $1 AND rating = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, userID, models.RatingLiked)
	if err != nil {
		return nil, fmt.Errorf("failed to load liked recommendations: %w", err)
	}
	return r.collect(rows)
}

// RatedSongIDs returns the IDs of every song the user has judged, liked or
// disliked.
func (r *RecommendationRepository) RatedSongIDs(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	query := `SELECT DISTINCT song_id FROM recommendations
		WHERE user_id = $1 AND rating IS NOT NULL
		ORDER BY song_id ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rated song IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
