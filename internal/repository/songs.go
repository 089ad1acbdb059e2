package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/pkg/models"
)

// Querier is the subset of pgxpool.Pool the repositories need. pgxmock
// satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const songColumns = `id, title, artist, album, genre, year, image_url, preview_url, lyrics, embedding::text, created_at, updated_at`

type SongRepository struct {
	db     Querier
	logger *logrus.Logger
}

func NewSongRepository(db Querier, logger *logrus.Logger) *SongRepository {
	return &SongRepository{db: db, logger: logger}
}

func scanSong(row rowScanner) (*models.Song, error) {
	var song models.Song
	var embedding *string

	if err := row.Scan(
		&song.ID, &song.Title, &song.Artist, &song.Album, &song.Genre,
		&song.Year, &song.ImageURL, &song.PreviewURL, &song.Lyrics,
		&embedding, &song.CreatedAt, &song.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if embedding != nil {
		vec, err := parseVector(*embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for song %d: %w", song.ID, err)
		}
		song.Embedding = vec
	}

	return &song, nil
}

func (r *SongRepository) collect(rows pgx.Rows) ([]models.Song, error) {
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}

func (r *SongRepository) Find(ctx context.Context, id int64) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = $1`

	song, err := scanSong(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("song %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load song %d: %w", id, err)
	}
	return song, nil
}

func (r *SongRepository) FindMany(ctx context.Context, ids []int64) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ANY($1) ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}
	return r.collect(rows)
}

func (r *SongRepository) List(ctx context.Context, page, perPage int) ([]models.Song, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM songs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count songs: %w", err)
	}

	query := `SELECT ` + songColumns + ` FROM songs ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list songs: %w", err)
	}

	songs, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return songs, total, nil
}

func (r *SongRepository) Search(ctx context.Context, text string, limit int) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs
		WHERE title ILIKE '%' || $1 || '%' OR artist ILIKE '%' || $1 || '%'
		ORDER BY id ASC LIMIT $2`

	rows, err := r.db.Query(ctx, query, text, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	return r.collect(rows)
}

// Newest returns the most recently added songs, newest first with stable
// ascending-ID tie-break. Used as the deterministic no-history fallback.
func (r *SongRepository) Newest(ctx context.Context, excludeIDs []int64, limit int) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs
		WHERE NOT (id = ANY($1))
		ORDER BY created_at DESC, id ASC LIMIT $2`

	rows, err := r.db.Query(ctx, query, idsOrEmpty(excludeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load newest songs: %w", err)
	}
	return r.collect(rows)
}

func (r *SongRepository) Create(ctx context.Context, song *models.Song) error {
	query := `INSERT INTO songs (title, artist, album, genre, year, image_url, preview_url, lyrics, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		song.Title, song.Artist, song.Album, song.Genre, song.Year,
		song.ImageURL, song.PreviewURL, song.Lyrics, embeddingArg(song.Embedding),
	).Scan(&song.ID, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create song: %w", err)
	}
	return nil
}

func (r *SongRepository) Update(ctx context.Context, song *models.Song) error {
	query := `UPDATE songs SET
			title = $2, artist = $3, album = $4, genre = $5, year = $6,
			image_url = $7, preview_url = $8, lyrics = $9, embedding = $10::vector,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		song.ID, song.Title, song.Artist, song.Album, song.Genre, song.Year,
		song.ImageURL, song.PreviewURL, song.Lyrics, embeddingArg(song.Embedding),
	).Scan(&song.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("song %d: %w", song.ID, models.ErrNotFound)
		}
		return fmt.Errorf("failed to update song %d: %w", song.ID, err)
	}
	return nil
}

func (r *SongRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete song %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// NearestByVector ranks candidates by cosine distance to the query vector,
// nearest first, with stable ascending-ID tie-break. Songs without an
// embedding never match.
func (r *SongRepository) NearestByVector(ctx context.Context, query []float32, excludeIDs []int64, limit int) ([]models.Song, error) {
	sql := `SELECT ` + songColumns + ` FROM songs
		WHERE embedding IS NOT NULL AND NOT (id = ANY($2))
		ORDER BY embedding <=> $1::vector ASC, id ASC
		LIMIT $3`

	rows, err := r.db.Query(ctx, sql, vectorLiteral(query), idsOrEmpty(excludeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("vector similarity query failed: %w", err)
	}
	return r.collect(rows)
}

// ByGenresOrArtists selects candidates sharing any of the given genres or
// artists, in ascending-ID order.
func (r *SongRepository) ByGenresOrArtists(ctx context.Context, genres, artists []string, excludeIDs []int64, limit int) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs
		WHERE NOT (id = ANY($3)) AND (genre = ANY($1) OR artist = ANY($2))
		ORDER BY id ASC LIMIT $4`

	rows, err := r.db.Query(ctx, query, stringsOrEmpty(genres), stringsOrEmpty(artists), idsOrEmpty(excludeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("attribute similarity query failed: %w", err)
	}
	return r.collect(rows)
}

// AscendingFill returns candidates in ascending-ID order, skipping the
// excluded IDs. Used for deterministic backfill of short result sets.
func (r *SongRepository) AscendingFill(ctx context.Context, excludeIDs []int64, limit int) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs
		WHERE NOT (id = ANY($1))
		ORDER BY id ASC LIMIT $2`

	rows, err := r.db.Query(ctx, query, idsOrEmpty(excludeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("backfill query failed: %w", err)
	}
	return r.collect(rows)
}

func (r *SongRepository) ByGenres(ctx context.Context, genres []string, excludeIDs []int64, limit int) ([]models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs
		WHERE genre = ANY($1) AND NOT (id = ANY($2))
		ORDER BY id ASC LIMIT $3`

	rows, err := r.db.Query(ctx, query, stringsOrEmpty(genres), idsOrEmpty(excludeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("genre query failed: %w", err)
	}
	return r.collect(rows)
}

func embeddingArg(vec []float32) *string {
	if vec == nil {
		return nil
	}
	literal := vectorLiteral(vec)
	return &literal
}

func idsOrEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
