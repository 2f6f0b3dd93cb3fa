package predictor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/metrics"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/regression"
	"github.com/Veraticus/tripcost/internal/service"
)

func TestTrainer_ColdStart(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		wantMAE   bool
		wantModel bool
	}{
		{name: "empty store", rows: 0, wantMAE: false, wantModel: false},
		{name: "below validation threshold", rows: 5, wantMAE: false, wantModel: true},
		{name: "exactly at threshold", rows: MinRowsForValidation, wantMAE: true, wantModel: true},
		{name: "twenty rows", rows: 20, wantMAE: true, wantModel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if tt.rows > 0 {
				f.append(t, observationsOf(zurichHeavyTrips(tt.rows), "u1"))
			}

			mae, err := f.trainer.Retrain(ctx)
			require.NoError(t, err)

			if tt.wantMAE {
				require.NotNil(t, mae)
				assert.GreaterOrEqual(t, *mae, 0.0)
			} else {
				assert.Nil(t, mae)
			}

			_, statErr := os.Stat(f.slot.Path)
			assert.Equal(t, tt.wantModel, statErr == nil, "model persisted")

			if tt.wantModel {
				artifact, err := f.slot.Load(ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.rows, artifact.Rows)
				assert.Equal(t, FormatVersion, artifact.FormatVersion)
				assert.NotEmpty(t, artifact.RunID)
				assert.True(t, artifact.Pipeline.Fitted())
			}
		})
	}
}

func TestTrainer_OverwritesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := time.Date(2025, 12, 8, 9, 0, 0, 0, time.UTC)
	f.trainer = NewTrainer(f.store, f.slot, WithClock(func() time.Time { return clock }))

	f.append(t, observationsOf(zurichHeavyTrips(5), "u1"))
	_, err := f.trainer.Retrain(ctx)
	require.NoError(t, err)
	first, err := f.slot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, clock, first.TrainedAt)

	f.append(t, observationsOf(zurichHeavyTrips(5), "u2"))
	_, err = f.trainer.Retrain(ctx)
	require.NoError(t, err)
	second, err := f.slot.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 10, second.Rows)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestTrainer_Deterministic(t *testing.T) {
	rows := observationsOf(zurichHeavyTrips(20), "u1")

	a := newFixture(t)
	a.append(t, rows)
	maeA, err := a.trainer.Retrain(context.Background())
	require.NoError(t, err)

	b := newFixture(t)
	b.append(t, rows)
	maeB, err := b.trainer.Retrain(context.Background())
	require.NoError(t, err)

	require.NotNil(t, maeA)
	require.NotNil(t, maeB)
	assert.InDelta(t, *maeA, *maeB, 1e-9, "fixed split seed gives the same metric")
}

func TestTrainer_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	f.append(t, observationsOf(zurichHeavyTrips(12), "u1"))

	_, err := f.trainer.Retrain(context.Background())
	require.NoError(t, err)

	families, err := f.metrics.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "tripcost_model_training_rows" {
			found = true
			assert.InDelta(t, 12, mf.GetMetric()[0].GetGauge().GetValue(), 0)
		}
	}
	assert.True(t, found)

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "tripcost_model_retrains_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type brokenStore struct {
	service.TrainingStore
	err error
}

func (b brokenStore) EnsureSchema(context.Context) error { return nil }

func (b brokenStore) LoadAll(context.Context) ([]model.TripObservation, error) {
	return nil, b.err
}

func (b brokenStore) AppendOne(context.Context, model.TripObservation) (int64, error) {
	return 0, b.err
}

func TestTrainer_StorageFailurePropagates(t *testing.T) {
	f := newFixture(t)
	trainer := NewTrainer(brokenStore{err: common.ErrStorageUnavailable}, f.slot, WithTrainerMetrics(metrics.New()))

	mae, err := trainer.Retrain(context.Background())
	assert.Nil(t, mae)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

type failingSlot struct{ err error }

func (s failingSlot) Load(context.Context) (*Artifact, error) { return nil, ErrModelNotFound }
func (s failingSlot) Save(context.Context, *Artifact) error    { return s.err }

func TestTrainer_PersistFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.append(t, observationsOf(zurichHeavyTrips(3), "u1"))

	diskFull := os.ErrPermission
	trainer := NewTrainer(f.store, failingSlot{err: diskFull})
	_, err := trainer.Retrain(context.Background())
	assert.ErrorIs(t, err, diskFull)
}

func TestTrainer_UnseenDestinationAfterTraining(t *testing.T) {
	f := newFixture(t)
	var trips []model.SeedTrip
	for i := 0; i < 10; i++ {
		dest := "Zurich"
		if i%2 == 1 {
			dest = "Bern"
		}
		trips = append(trips, syntheticTrip(dest, 1+i%4, float64(30+10*i)))
	}
	f.append(t, observationsOf(trips, "u1"))

	_, err := f.trainer.Retrain(context.Background())
	require.NoError(t, err)
	artifact, err := f.slot.Load(context.Background())
	require.NoError(t, err)

	v, err := artifact.Pipeline.PredictOne(model.Features{DestCity: "Geneva", DistanceKm: 220, DurationDays: 2})
	require.NoError(t, err)
	assert.NotZero(t, v)

	_, err = regression.NewPipeline().PredictOne(model.Features{DestCity: "Geneva"})
	assert.ErrorIs(t, err, regression.ErrNotFitted)
}
