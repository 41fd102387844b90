package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSavePredictionAssignsID(t *testing.T) {
	store := newTestStore(t)

	record := &PredictionRecord{
		Specs:             "iPhone 15 Pro 256GB used condition",
		Product:           "iPhone 15 Pro 256GB",
		PredictedPriceINR: 65000,
		Source:            "model",
		CreatedAt:         time.Now(),
	}
	require.Nil(t, store.SavePrediction(record))
	assert.Greater(t, record.ID, int64(0))
}

func TestRecentPredictionsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i, product := range []string{"first", "second", "third"} {
		require.Nil(t, store.SavePrediction(&PredictionRecord{
			Specs:             product + " specs",
			Product:           product,
			PredictedPriceINR: float64(1000 * (i + 1)),
			Source:            "model",
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.RecentPredictions(2)
	require.Nil(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].Product)
	assert.Equal(t, "second", records[1].Product)
	assert.Equal(t, float64(3000), records[0].PredictedPriceINR)
}

func TestRecentPredictionsEmptyStore(t *testing.T) {
	store := newTestStore(t)

	records, err := store.RecentPredictions(10)
	require.Nil(t, err)
	assert.Empty(t, records)
}
