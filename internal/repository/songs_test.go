package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avreyn/chorus/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func songColumnNames() []string {
	return []string{
		"id", "title", "artist", "album", "genre", "year",
		"image_url", "preview_url", "lyrics", "embedding",
		"created_at", "updated_at",
	}
}

func strPtr(s string) *string { return &s }

func addSongRow(rows *pgxmock.Rows, id int64, title, artist string, genre, embedding *string) *pgxmock.Rows {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, title, artist, nil, genre, nil,
		nil, nil, nil, embedding, now, now,
	)
}

func TestSongRepository_Find(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSongRepository(mockDB, testLogger())

	t.Run("found with embedding", func(t *testing.T) {
		rows := addSongRow(pgxmock.NewRows(songColumnNames()),
			7, "Paranoid", "Black Sabbath", strPtr("Metal"), strPtr("[0.1,0.2,0.3]"))

		mockDB.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = $1`)).
			WithArgs(int64(7)).
			WillReturnRows(rows)

		song, err := repo.Find(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), song.ID)
		assert.Equal(t, "Paranoid", song.Title)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, song.Embedding)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("missing song maps to not found", func(t *testing.T) {
		mockDB.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = $1`)).
			WithArgs(int64(99)).
			WillReturnRows(pgxmock.NewRows(songColumnNames()))

		_, err := repo.Find(context.Background(), 99)
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestSongRepository_FindMany(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSongRepository(mockDB, testLogger())

	rows := pgxmock.NewRows(songColumnNames())
	addSongRow(rows, 1, "One", "A", nil, nil)
	addSongRow(rows, 3, "Three", "B", nil, nil)

	mockDB.ExpectQuery(regexp.QuoteMeta(`WHERE id = ANY($1) ORDER BY id ASC`)).
		WithArgs([]int64{3, 1}).
		WillReturnRows(rows)

	songs, err := repo.FindMany(context.Background(), []int64{3, 1})
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, int64(1), songs[0].ID)
	assert.Equal(t, int64(3), songs[1].ID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSongRepository_Create(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSongRepository(mockDB, testLogger())

	now := time.Now()
	mockDB.ExpectQuery(regexp.QuoteMeta(`INSERT INTO songs`)).
		WithArgs("Hurt", "Johnny Cash", (*string)(nil), strPtr("Country"), (*int)(nil),
			(*string)(nil), (*string)(nil), (*string)(nil), strPtr("[0.5,0.5]")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(42), now, now))

	song := &models.Song{
		Title:     "Hurt",
		Artist:    "Johnny Cash",
		Genre:     strPtr("Country"),
		Embedding: []float32{0.5, 0.5},
	}

	require.NoError(t, repo.Create(context.Background(), song))
	assert.Equal(t, int64(42), song.ID)
	assert.Equal(t, now, song.CreatedAt)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSongRepository_Delete(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSongRepository(mockDB, testLogger())

	t.Run("row deleted", func(t *testing.T) {
		mockDB.ExpectExec(regexp.QuoteMeta(`DELETE FROM songs WHERE id = $1`)).
			WithArgs(int64(5)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		deleted, err := repo.Delete(context.Background(), 5)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("nothing deleted", func(t *testing.T) {
		mockDB.ExpectExec(regexp.QuoteMeta(`DELETE FROM songs WHERE id = $1`)).
			WithArgs(int64(6)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		deleted, err := repo.Delete(context.Background(), 6)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSongRepository_NearestByVector(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSongRepository(mockDB, testLogger())

	rows := pgxmock.NewRows(songColumnNames())
	addSongRow(rows, 2, "Closest", "A", nil, strPtr("[0.9,0.1]"))
	addSongRow(rows, 4, "Farther", "B", nil, strPtr("[0.1,0.9]"))

	mockDB.ExpectQuery(regexp.QuoteMeta(`ORDER BY embedding <=> $1::vector ASC, id ASC`)).
		WithArgs("[1,0]", []int64{1}, 2).
		WillReturnRows(rows)

	songs, err := repo.NearestByVector(context.Background(), []float32{1, 0}, []int64{1}, 2)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, int64(2), songs[0].ID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSongRepository_NearestByVector_NilExcludes(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSongRepository(mockDB, testLogger())

	mockDB.ExpectQuery(regexp.QuoteMeta(`ORDER BY embedding <=> $1::vector ASC, id ASC`)).
		WithArgs("[1,0]", []int64{}, 3).
		WillReturnRows(pgxmock.NewRows(songColumnNames()))

	songs, err := repo.NearestByVector(context.Background(), []float32{1, 0}, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, songs)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSongRepository_AscendingFill(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSongRepository(mockDB, testLogger())

	rows := pgxmock.NewRows(songColumnNames())
	addSongRow(rows, 1, "First", "A", nil, nil)
	addSongRow(rows, 3, "Third", "B", nil, nil)

	mockDB.ExpectQuery(regexp.QuoteMeta(`WHERE NOT (id = ANY($1))`)).
		WithArgs([]int64{2}, 2).
		WillReturnRows(rows)

	songs, err := repo.AscendingFill(context.Background(), []int64{2}, 2)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, int64(1), songs[0].ID)
	assert.Equal(t, int64(3), songs[1].ID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}
