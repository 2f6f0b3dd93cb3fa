package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tripcost/internal/metrics"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/regression"
	"github.com/Veraticus/tripcost/internal/seed"
	"github.com/Veraticus/tripcost/internal/service"
)

// ErrNoSeedSource means a model cannot be bootstrapped because no seed data exists.
var ErrNoSeedSource = errors.New("no seed data available for bootstrap")

// SeedSource supplies the observations used to bootstrap an empty model.
type SeedSource interface {
	Observations(ctx context.Context) ([]model.TripObservation, error)
}

// Loader returns the persisted model, bootstrapping it from seed data when
// the slot is empty or unreadable.
type Loader struct {
	slot    ModelSlot
	store   service.TrainingStore
	seeds   SeedSource
	trainer *Trainer
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewLoader wires a loader. seeds may be nil, which disables bootstrap.
func NewLoader(slot ModelSlot, store service.TrainingStore, seeds SeedSource, trainer *Trainer, m *metrics.Recorder) *Loader {
	return &Loader{
		slot:    slot,
		store:   store,
		seeds:   seeds,
		trainer: trainer,
		metrics: m,
		logger:  slog.Default(),
	}
}

// Load returns the current model. When no usable model is persisted it runs
// one bootstrap from seed data and tries again. If that still yields nothing
// the result is (nil, nil): callers treat a nil model as "no prediction
// available". Only context cancellation is returned as an error.
func (l *Loader) Load(ctx context.Context) (*regression.Pipeline, error) {
	artifact, err := l.slot.Load(ctx)
	if err == nil {
		return artifact.Pipeline, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if errors.Is(err, ErrModelNotFound) {
		l.logger.Info("No persisted model, bootstrapping from seed data")
	} else {
		l.logger.Warn("Persisted model unusable, bootstrapping from seed data", "error", err)
	}

	if err := l.bootstrap(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		l.metrics.Bootstrap(metrics.OutcomeError)
		l.logger.Warn("Model unavailable", "reason", err)
		return nil, nil
	}
	l.metrics.Bootstrap(metrics.OutcomeOK)

	artifact, err = l.slot.Load(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		l.logger.Warn("Model unavailable after bootstrap", "reason", err)
		return nil, nil
	}
	return artifact.Pipeline, nil
}

// Artifact loads the slot without bootstrapping.
func (l *Loader) Artifact(ctx context.Context) (*Artifact, error) {
	return l.slot.Load(ctx)
}

func (l *Loader) bootstrap(ctx context.Context) error {
	if l.seeds == nil {
		return ErrNoSeedSource
	}

	observations, err := l.seeds.Observations(ctx)
	if errors.Is(err, seed.ErrNoSeedFile) {
		return fmt.Errorf("%w: %w", ErrNoSeedSource, err)
	}
	if err != nil {
		return fmt.Errorf("failed to read seed data: %w", err)
	}
	if len(observations) == 0 {
		return fmt.Errorf("%w: seed data is empty", ErrNoSeedSource)
	}

	if err := l.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare training store: %w", err)
	}

	present, err := hasSeedRows(ctx, l.store)
	if err != nil {
		return err
	}
	if present {
		l.logger.Info("Seed rows already stored, retraining without appending")
	} else {
		if err := l.store.AppendMany(ctx, observations); err != nil {
			return fmt.Errorf("failed to store seed data: %w", err)
		}
		l.metrics.Observations(model.SeedUserID, len(observations))
		l.logger.Info("Stored seed data", "rows", len(observations))
	}

	mae, err := l.trainer.Retrain(ctx)
	if err != nil {
		return err
	}
	if mae == nil {
		l.logger.Info("Bootstrap model trained without validation")
	}
	return nil
}

// hasSeedRows reports whether seed data was already stored, so a lost or
// corrupt model does not duplicate it.
func hasSeedRows(ctx context.Context, store service.TrainingStore) (bool, error) {
	observations, err := store.LoadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to inspect training store: %w", err)
	}
	for _, obs := range observations {
		if obs.IsSeed() {
			return true, nil
		}
	}
	return false, nil
}
