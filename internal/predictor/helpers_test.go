package predictor

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tripcost/internal/metrics"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/seed"
	"github.com/Veraticus/tripcost/internal/storage"
	"github.com/Veraticus/tripcost/internal/tier"
)

type fixture struct {
	store    *storage.SQLiteStorage
	slot     *FileSlot
	seedPath string
	seeds    *countingSource
	trainer  *Trainer
	loader   *Loader
	metrics  *metrics.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "tripcost.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	f := &fixture{
		store:    store,
		slot:     NewFileSlot(filepath.Join(dir, "model", "model.json")),
		seedPath: filepath.Join(dir, "seed_trips.csv"),
		metrics:  metrics.New(),
	}
	f.seeds = &countingSource{next: seed.FileSource{Path: f.seedPath}}
	f.trainer = NewTrainer(store, f.slot, WithTrainerMetrics(f.metrics))
	f.loader = NewLoader(f.slot, store, f.seeds, f.trainer, f.metrics)
	return f
}

func (f *fixture) service() *Service {
	return NewService(f.store, f.trainer, f.loader, fixedDistance(42), f.metrics)
}

func (f *fixture) append(t *testing.T, rows []model.TripObservation) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.EnsureSchema(ctx))
	require.NoError(t, f.store.AppendMany(ctx, rows))
}

func (f *fixture) writeSeedFile(t *testing.T, trips []model.SeedTrip) {
	t.Helper()
	require.NoError(t, seed.WriteFile(f.seedPath, trips))
}

// countingSource counts how often seed data is read.
type countingSource struct {
	next  SeedSource
	reads atomic.Int32
}

func (c *countingSource) Observations(ctx context.Context) ([]model.TripObservation, error) {
	c.reads.Add(1)
	return c.next.Observations(ctx)
}

type fixedDistance float64

func (d fixedDistance) DistanceOrZero(context.Context, string, string) float64 {
	return float64(d)
}

var (
	nightly = map[tier.Label]float64{tier.T1: 250, tier.T2: 180, tier.T3: 150}
	meals   = map[tier.Label]float64{tier.T1: 90, tier.T2: 85, tier.T3: 75}
)

// syntheticTrip prices a trip the way seed data does, without randomness.
func syntheticTrip(dest string, days int, distanceKm float64) model.SeedTrip {
	label := tier.Of(dest)
	hotel := nightly[label] * float64(days)
	mealsCost := meals[label] * float64(days)
	ticket := (5 + 0.4*distanceKm) * 2
	return model.SeedTrip{
		OriginCity:   "St. Gallen",
		DestCity:     dest,
		Tier:         label,
		DurationDays: days,
		DistanceKm:   distanceKm,
		HotelCost:    hotel,
		MealsPerDay:  meals[label],
		MealsCost:    mealsCost,
		TicketCost:   ticket,
		TotalCost:    hotel + mealsCost + ticket,
	}
}

// zurichHeavyTrips returns n trips, two thirds of them to Zurich.
func zurichHeavyTrips(n int) []model.SeedTrip {
	others := []string{"Bern", "Lugano", "Olten", "Geneva"}
	trips := make([]model.SeedTrip, n)
	for i := range trips {
		dest := "Zurich"
		if i%3 == 2 {
			dest = others[(i/3)%len(others)]
		}
		trips[i] = syntheticTrip(dest, 1+i%5, float64(20+(i*37)%180))
	}
	return trips
}

func observationsOf(trips []model.SeedTrip, userID string) []model.TripObservation {
	out := seed.ToObservations(trips)
	for i := range out {
		out[i].UserID = userID
	}
	return out
}
