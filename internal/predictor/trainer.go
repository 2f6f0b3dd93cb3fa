package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/tripcost/internal/metrics"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/regression"
	"github.com/Veraticus/tripcost/internal/service"
)

// Validation policy. Below MinRowsForValidation the model is fit on every
// row and no error metric is reported.
const (
	MinRowsForValidation = 8
	TestFraction         = 0.2
	SplitSeed            = 42
)

// Trainer refits the cost model from the full training store.
type Trainer struct {
	store   service.TrainingStore
	slot    ModelSlot
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithTrainerMetrics records retrains on m.
func WithTrainerMetrics(m *metrics.Recorder) TrainerOption {
	return func(t *Trainer) { t.metrics = m }
}

// WithTrainerLogger sets the logger.
func WithTrainerLogger(l *slog.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = l }
}

// WithClock overrides the time stamped on artifacts.
func WithClock(now func() time.Time) TrainerOption {
	return func(t *Trainer) { t.now = now }
}

// NewTrainer creates a trainer reading from store and writing to slot.
func NewTrainer(store service.TrainingStore, slot ModelSlot, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		store:  store,
		slot:   slot,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Retrain fits a new model on every stored row and persists it, replacing
// the previous one. It returns the held-out mean absolute error, or nil when
// there were too few rows to validate. An empty store produces no model and
// returns (nil, nil).
func (t *Trainer) Retrain(ctx context.Context) (*float64, error) {
	start := time.Now()
	result, err := t.retrain(ctx)
	switch {
	case err != nil:
		t.metrics.Retrain(metrics.OutcomeError, 0, nil, time.Since(start))
		return nil, err
	case result == nil:
		t.metrics.Retrain(metrics.OutcomeEmpty, 0, nil, time.Since(start))
		return nil, nil
	default:
		t.metrics.Retrain(metrics.OutcomeOK, result.Rows, result.MAE, time.Since(start))
		return result.MAE, nil
	}
}

func (t *Trainer) retrain(ctx context.Context) (*Artifact, error) {
	if err := t.store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare training store: %w", err)
	}

	observations, err := t.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training rows: %w", err)
	}
	if len(observations) == 0 {
		t.logger.Info("No training data, model not trained")
		return nil, nil
	}

	rows := make([]model.Features, len(observations))
	y := make([]float64, len(observations))
	for i, obs := range observations {
		rows[i] = model.FeaturesOf(obs)
		y[i] = obs.TotalCost
	}

	pipeline, mae, err := fit(rows, y)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		FormatVersion: FormatVersion,
		RunID:         uuid.NewString(),
		TrainedAt:     t.now().UTC(),
		Rows:          len(observations),
		MAE:           mae,
		Pipeline:      pipeline,
	}
	if err := t.slot.Save(ctx, artifact); err != nil {
		return nil, fmt.Errorf("failed to persist model: %w", err)
	}

	if mae != nil {
		t.logger.Info("Model retrained", "rows", artifact.Rows, "mae", *mae, "run_id", artifact.RunID)
	} else {
		t.logger.Info("Model retrained without validation", "rows", artifact.Rows, "run_id", artifact.RunID)
	}
	return artifact, nil
}

// fit trains on a seeded 80/20 split when there are enough rows, otherwise
// on everything.
func fit(rows []model.Features, y []float64) (*regression.Pipeline, *float64, error) {
	pipeline := regression.NewPipeline()

	if len(rows) < MinRowsForValidation {
		if err := pipeline.Fit(rows, y); err != nil {
			return nil, nil, fmt.Errorf("failed to fit model: %w", err)
		}
		return pipeline, nil, nil
	}

	split := regression.TrainTestSplit(len(rows), TestFraction, SplitSeed)
	trainX, trainY := subset(rows, y, split.Train)
	testX, testY := subset(rows, y, split.Test)

	if err := pipeline.Fit(trainX, trainY); err != nil {
		return nil, nil, fmt.Errorf("failed to fit model: %w", err)
	}
	pred, err := pipeline.Predict(testX)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to score model: %w", err)
	}
	mae, err := regression.MeanAbsoluteError(testY, pred)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to score model: %w", err)
	}
	return pipeline, &mae, nil
}

func subset(rows []model.Features, y []float64, idx []int) ([]model.Features, []float64) {
	outX := make([]model.Features, len(idx))
	outY := make([]float64, len(idx))
	for i, j := range idx {
		outX[i] = rows[j]
		outY[i] = y[j]
	}
	return outX, outY
}
