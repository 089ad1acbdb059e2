package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avreyn/chorus/internal/repository"
	"github.com/avreyn/chorus/pkg/models"
)

func songTestColumns() []string {
	return []string{
		"id", "title", "artist", "album", "genre", "year",
		"image_url", "preview_url", "lyrics", "embedding",
		"created_at", "updated_at",
	}
}

func sPtr(s string) *string { return &s }

func addTestSong(rows *pgxmock.Rows, id int64, title, artist string, genre, embedding *string) *pgxmock.Rows {
	ts := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, title, artist, nil, genre, nil, nil, nil, nil, embedding, ts, ts)
}

func newSimilarityEngine(t *testing.T) (*SimilarityEngine, pgxmock.PgxPoolIface) {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	logger := embeddingTestLogger()
	songs := repository.NewSongRepository(mockDB, logger)
	return NewSimilarityEngine(songs, newEmbeddingService("http://localhost"), logger), mockDB
}

func TestCentroid(t *testing.T) {
	t.Run("component-wise mean", func(t *testing.T) {
		centroid, err := Centroid([][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
		})
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, 0.5, 0, 0}, centroid)
	})

	t.Run("mismatched dimensions skipped", func(t *testing.T) {
		centroid, err := Centroid([][]float32{
			{2, 4},
			{1, 2, 3},
		})
		require.NoError(t, err)
		assert.Equal(t, []float32{2, 4}, centroid)
	})

	t.Run("no vectors", func(t *testing.T) {
		_, err := Centroid(nil)
		assert.Error(t, err)
	})
}

func TestSimilarityEngine_Nearest_EmptyInputs(t *testing.T) {
	engine, mockDB := newSimilarityEngine(t)

	songs, err := engine.Nearest(context.Background(), []float32{1, 0}, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, songs)

	songs, err = engine.Nearest(context.Background(), nil, nil, 5)
	require.NoError(t, err)
	assert.Nil(t, songs)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSimilarityEngine_SimilarToSong_VectorPath(t *testing.T) {
	engine, mockDB := newSimilarityEngine(t)

	rows := pgxmock.NewRows(songTestColumns())
	addTestSong(rows, 2, "Neighbor", "Artist", nil, sPtr("[0.9,0.1,0,0]"))

	mockDB.ExpectQuery(regexp.QuoteMeta(`ORDER BY embedding <=> $1::vector ASC, id ASC`)).
		WithArgs("[1,0,0,0]", []int64{1}, 3).
		WillReturnRows(rows)

	ref := &models.Song{ID: 1, Title: "Seed", Artist: "Artist", Embedding: []float32{1, 0, 0, 0}}
	songs, err := engine.SimilarToSong(context.Background(), ref, 3)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, int64(2), songs[0].ID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSimilarityEngine_SimilarToSong_AttributeFallback(t *testing.T) {
	engine, mockDB := newSimilarityEngine(t)

	ref := &models.Song{ID: 1, Title: "Seed", Artist: "Artist", Genre: sPtr("Rock")}

	// The placeholder-embedding path is deterministic: same input, same
	// queries, same output, run after run.
	var firstRun []int64
	for run := 0; run < 2; run++ {
		matched := pgxmock.NewRows(songTestColumns())
		addTestSong(matched, 4, "Match", "Other", sPtr("Rock"), nil)

		mockDB.ExpectQuery(regexp.QuoteMeta(`genre = ANY($1) OR artist = ANY($2)`)).
			WithArgs([]string{"Rock"}, []string{"Artist"}, []int64{1}, 3).
			WillReturnRows(matched)

		fill := pgxmock.NewRows(songTestColumns())
		addTestSong(fill, 2, "Fill A", "X", nil, nil)
		addTestSong(fill, 3, "Fill B", "Y", nil, nil)

		mockDB.ExpectQuery(regexp.QuoteMeta(`WHERE NOT (id = ANY($1))`)).
			WithArgs([]int64{1, 4}, 2).
			WillReturnRows(fill)

		songs, err := engine.SimilarToSong(context.Background(), ref, 3)
		require.NoError(t, err)
		require.Len(t, songs, 3)

		ids := []int64{songs[0].ID, songs[1].ID, songs[2].ID}
		assert.Equal(t, []int64{4, 2, 3}, ids)

		if run == 0 {
			firstRun = ids
		} else {
			assert.Equal(t, firstRun, ids)
		}
	}

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSimilarityEngine_SimilarToMany_Centroid(t *testing.T) {
	engine, mockDB := newSimilarityEngine(t)

	refs := []models.Song{
		{ID: 1, Title: "A", Artist: "X", Embedding: []float32{1, 0, 0, 0}},
		{ID: 2, Title: "B", Artist: "Y", Embedding: []float32{0, 1, 0, 0}},
		{ID: 3, Title: "C", Artist: "Z"}, // placeholder, skipped
	}

	rows := pgxmock.NewRows(songTestColumns())
	addTestSong(rows, 9, "Result", "W", nil, sPtr("[0.5,0.5,0,0]"))

	mockDB.ExpectQuery(regexp.QuoteMeta(`ORDER BY embedding <=> $1::vector ASC, id ASC`)).
		WithArgs("[0.5,0.5,0,0]", []int64{1, 2, 3}, 2).
		WillReturnRows(rows)

	songs, err := engine.SimilarToMany(context.Background(), refs, 2)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, int64(9), songs[0].ID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSimilarityEngine_SimilarToMany_AllPlaceholders(t *testing.T) {
	engine, mockDB := newSimilarityEngine(t)

	refs := []models.Song{
		{ID: 1, Title: "A", Artist: "X", Genre: sPtr("Jazz")},
		{ID: 2, Title: "B", Artist: "X", Genre: sPtr("Blues")},
	}

	matched := pgxmock.NewRows(songTestColumns())
	addTestSong(matched, 7, "Match", "X", sPtr("Jazz"), nil)
	addTestSong(matched, 8, "Match 2", "Q", sPtr("Blues"), nil)

	mockDB.ExpectQuery(regexp.QuoteMeta(`genre = ANY($1) OR artist = ANY($2)`)).
		WithArgs([]string{"Jazz", "Blues"}, []string{"X"}, []int64{1, 2}, 2).
		WillReturnRows(matched)

	songs, err := engine.SimilarToMany(context.Background(), refs, 2)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, int64(7), songs[0].ID)
	assert.Equal(t, int64(8), songs[1].ID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSimilarityEngine_SimilarToMany_EmptyRefs(t *testing.T) {
	engine, mockDB := newSimilarityEngine(t)

	songs, err := engine.SimilarToMany(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Nil(t, songs)

	require.NoError(t, mockDB.ExpectationsWereMet())
}
