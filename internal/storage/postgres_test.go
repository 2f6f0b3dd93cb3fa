package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tripcost/internal/model"
)

func TestExpenseRowMapping(t *testing.T) {
	obs := model.TripObservation{
		UserID:       "u1",
		Date:         "2025-12-08",
		DestCity:     "Basel",
		DurationDays: 3,
		DistanceKm:   74.1,
		TotalCost:    812.4,
	}

	row := toRow(obs)
	require.NotNil(t, row.UserID)
	assert.Equal(t, "u1", *row.UserID)
	assert.Equal(t, TableName, row.TableName())
	assert.Equal(t, obs, row.observation())

	bare := toRow(model.TripObservation{DestCity: "Basel", DurationDays: 1})
	assert.Nil(t, bare.UserID)
	assert.Nil(t, bare.Date)
	assert.Empty(t, bare.observation().UserID)
}

// Runs against a real server only when TRIPCOST_TEST_POSTGRES_DSN is set.
func TestPostgresStorage_Integration(t *testing.T) {
	dsn := os.Getenv("TRIPCOST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRIPCOST_TEST_POSTGRES_DSN not set")
	}

	store, err := NewPostgresStorage(dsn)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.db.Exec("TRUNCATE "+TableName+" RESTART IDENTITY").Error)

	require.NoError(t, store.AppendMany(ctx, testObservations(3)))
	id, err := store.AppendOne(ctx, testObservations(1)[0])
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Zurich", all[0].DestCity)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	err = store.AppendMany(ctx, []model.TripObservation{{DestCity: ""}})
	assert.ErrorIs(t, err, ErrInvalidObservation)
}
