package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/tripbook/internal/models"
)

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2025, time.December, time.UTC)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), to)

	from, to = MonthRange(2024, time.February, time.UTC)
	assert.Equal(t, 29, int(to.Sub(from).Hours()/24))
}

// openTestDB 需要可用的 PostgreSQL
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, url)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE trips`)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestTripRepository_Integration(t *testing.T) {
	db := openTestDB(t)
	repo := NewTripRepository(db)
	ctx := context.Background()

	start := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.Local)
	active := models.NewTrip(&models.Reading{BatteryPercent: 80, OdometerKm: 49000, Timestamp: start})
	require.NoError(t, repo.Insert(ctx, active))

	found, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, active.ID, found.ID)
	assert.Nil(t, found.EndTime)

	t.Run("SecondActiveRejected", func(t *testing.T) {
		other := models.NewTrip(&models.Reading{BatteryPercent: 70, Timestamp: start.Add(time.Hour)})
		err := repo.Insert(ctx, other)
		assert.ErrorIs(t, err, ErrActiveTripExists)
	})

	t.Run("Complete", func(t *testing.T) {
		found.Complete(&models.Reading{BatteryPercent: 62, OdometerKm: 49045, Timestamp: start.Add(40 * time.Minute)})
		require.NoError(t, repo.Update(ctx, found))

		none, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Nil(t, none)

		completed, err := repo.FindCompleted(ctx)
		require.NoError(t, err)
		require.Len(t, completed, 1)
		assert.Equal(t, 45.0, completed[0].Distance())
		assert.Equal(t, 18.0, completed[0].BatteryUsed())
	})

	t.Run("FindInMonth", func(t *testing.T) {
		end := start.AddDate(0, 1, 0).Add(time.Hour)
		april := &models.Trip{ID: uuid.New(), StartTime: start.AddDate(0, 1, 0), EndTime: &end, StartBatteryPercent: 50, EndBatteryPercent: 40}
		require.NoError(t, repo.Insert(ctx, april))

		earlyEnd := start.AddDate(0, 0, -5).Add(time.Hour)
		early := &models.Trip{ID: uuid.New(), StartTime: start.AddDate(0, 0, -5), EndTime: &earlyEnd, StartBatteryPercent: 90, EndBatteryPercent: 85}
		require.NoError(t, repo.Insert(ctx, early))

		march, err := repo.FindInMonth(ctx, 2025, time.March)
		require.NoError(t, err)
		require.Len(t, march, 2)
		assert.Equal(t, early.ID, march[0].ID)
		assert.Equal(t, active.ID, march[1].ID)

		completed, err := repo.FindCompleted(ctx)
		require.NoError(t, err)
		require.Len(t, completed, 3)
		assert.Equal(t, april.ID, completed[0].ID)

		last, err := repo.FindLastCompleted(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, april.ID, last.ID)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrTripNotFound)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := repo.Update(ctx, &models.Trip{ID: uuid.New(), StartTime: start})
		assert.ErrorIs(t, err, ErrTripNotFound)
	})
}
