package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/metrics"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/service"
	"github.com/Veraticus/tripcost/internal/tier"
)

// Request errors.
var (
	ErrInvalidParticipants = errors.New("participants must be at least 1")
	ErrInvalidDateRange    = errors.New("end date is before start date")
	ErrSeedAlreadyLoaded   = errors.New("training store already holds seed rows")
)

// DistanceEstimator resolves the travel distance of a real trip. Any lookup
// failure yields 0 rather than an error.
type DistanceEstimator interface {
	DistanceOrZero(ctx context.Context, origin, dest string) float64
}

// Prediction is the outcome of a cost estimate. Available is false when no
// model exists yet; that is not an error.
type Prediction struct {
	Features  model.Features
	Cost      float64
	Available bool
}

// Forecast is the predicted cost of a planned trip for all participants.
type Forecast struct {
	Origin       string
	Features     model.Features
	PerPerson    float64
	Total        float64
	Participants int
	Available    bool
}

// SubmitResult describes a stored expense report.
type SubmitResult struct {
	MAE          *float64
	ID           int64
	Total        float64
	DurationDays float64
	DistanceKm   float64
}

// Service is the prediction subsystem's entry point. Appending a row,
// retraining and persisting the model run under one lock so concurrent
// submissions within a process cannot interleave.
type Service struct {
	store     service.TrainingStore
	trainer   *Trainer
	loader    *Loader
	distances DistanceEstimator
	metrics   *metrics.Recorder
	logger    *slog.Logger
	mu        sync.Mutex
}

// NewService composes the subsystem.
func NewService(store service.TrainingStore, trainer *Trainer, loader *Loader, distances DistanceEstimator, m *metrics.Recorder) *Service {
	return &Service{
		store:     store,
		trainer:   trainer,
		loader:    loader,
		distances: distances,
		metrics:   m,
		logger:    slog.Default(),
	}
}

// InsertObservation appends one training row and retrains. It never fails
// loudly: ok says whether the row was stored and any reason is logged. mae
// is nil when validation was skipped or the retrain after a stored row
// failed.
func (s *Service) InsertObservation(ctx context.Context, destCity string, distanceKm, durationDays, totalCost float64, userID string) (ok bool, mae *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.append(ctx, model.TripObservation{
		UserID:       userID,
		Date:         time.Now().Format(time.DateOnly),
		DestCity:     destCity,
		DurationDays: durationDays,
		DistanceKm:   distanceKm,
		TotalCost:    totalCost,
	})
	if err != nil {
		s.logger.Error("Failed to insert observation",
			"dest_city", destCity,
			"user_id", userID,
			"error", err)
		return false, nil
	}

	mae, err = s.trainer.Retrain(ctx)
	if err != nil {
		s.logger.Warn("Observation stored but retrain failed",
			"dest_city", destCity,
			"user_id", userID,
			"error", err)
		return true, nil
	}
	return true, mae
}

// SubmitExpense stores an expense report as a training row and retrains.
// If the row is stored but retraining fails, the result still carries the
// row id alongside the error.
func (s *Service) SubmitExpense(ctx context.Context, report model.ExpenseReport) (SubmitResult, error) {
	if err := report.Validate(); err != nil {
		return SubmitResult{}, common.NewUserError("invalid expense report", err)
	}

	result := SubmitResult{
		Total:        report.Total(),
		DurationDays: report.DurationDays(),
		DistanceKm:   s.distances.DistanceOrZero(ctx, report.OriginCity, report.DestCity),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.append(ctx, model.TripObservation{
		UserID:       report.UserID,
		Date:         report.EndDate.Format(time.DateOnly),
		DestCity:     report.DestCity,
		DurationDays: result.DurationDays,
		DistanceKm:   result.DistanceKm,
		TotalCost:    result.Total,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	result.ID = id

	mae, err := s.trainer.Retrain(ctx)
	if err != nil {
		return result, fmt.Errorf("expense stored but retrain failed: %w", err)
	}
	result.MAE = mae
	return result, nil
}

// Predict estimates the total cost of one trip. An empty tier is derived
// from the destination.
func (s *Service) Predict(ctx context.Context, f model.Features) (Prediction, error) {
	f = f.WithTier()
	if !f.Tier.Valid() {
		return Prediction{}, common.NewUserError(fmt.Sprintf("unknown tier %q", f.Tier), nil)
	}
	out := Prediction{Features: f}

	s.mu.Lock()
	pipeline, err := s.loader.Load(ctx)
	s.mu.Unlock()
	if err != nil {
		s.metrics.Prediction(metrics.OutcomeError)
		return out, err
	}
	if pipeline == nil {
		s.metrics.Prediction(metrics.OutcomeUnavailable)
		return out, nil
	}

	cost, err := pipeline.PredictOne(f)
	if err != nil {
		s.metrics.Prediction(metrics.OutcomeError)
		return out, fmt.Errorf("failed to predict: %w", err)
	}

	s.metrics.Prediction(metrics.OutcomeOK)
	out.Cost = cost
	out.Available = true
	return out, nil
}

// ForecastTrip predicts the per-person cost of a planned trip and scales it
// by the number of participants.
func (s *Service) ForecastTrip(ctx context.Context, origin, dest string, start, end time.Time, participants int) (Forecast, error) {
	if participants < 1 {
		return Forecast{}, common.NewUserError("a trip needs at least one participant", ErrInvalidParticipants)
	}
	days := model.InclusiveDays(start, end)
	if days == 0 {
		return Forecast{}, common.NewUserError("the trip ends before it starts", ErrInvalidDateRange)
	}

	features := model.Features{
		Tier:         tier.Of(dest),
		DestCity:     dest,
		DistanceKm:   s.distances.DistanceOrZero(ctx, origin, dest),
		DurationDays: float64(days),
	}

	prediction, err := s.Predict(ctx, features)
	if err != nil {
		return Forecast{}, err
	}

	forecast := Forecast{
		Origin:       origin,
		Features:     prediction.Features,
		Participants: participants,
		Available:    prediction.Available,
	}
	if prediction.Available {
		forecast.PerPerson = prediction.Cost
		forecast.Total = prediction.Cost * float64(participants)
	}
	return forecast, nil
}

// LoadSeed appends seed rows to the training store and retrains, replacing
// whatever model the slot held. Seed rows are loaded at most once.
func (s *Service) LoadSeed(ctx context.Context, observations []model.TripObservation) (*float64, error) {
	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: seed data is empty", ErrNoSeedSource)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	present, err := hasSeedRows(ctx, s.store)
	if err != nil {
		return nil, err
	}
	if present {
		return nil, common.NewUserError("the training table already holds seed trips", ErrSeedAlreadyLoaded)
	}

	if err := s.store.AppendMany(ctx, observations); err != nil {
		return nil, fmt.Errorf("failed to store seed data: %w", err)
	}
	s.metrics.Observations(model.SeedUserID, len(observations))

	return s.trainer.Retrain(ctx)
}

// Retrain refits and persists the model on demand.
func (s *Service) Retrain(ctx context.Context) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trainer.Retrain(ctx)
}

// Count returns the number of training rows.
func (s *Service) Count(ctx context.Context) (int, error) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	return s.store.Count(ctx)
}

// Observations returns every training row.
func (s *Service) Observations(ctx context.Context) ([]model.TripObservation, error) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s.store.LoadAll(ctx)
}

func (s *Service) append(ctx context.Context, obs model.TripObservation) (int64, error) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	id, err := s.store.AppendOne(ctx, obs)
	if err != nil {
		return 0, err
	}
	s.metrics.Observations("user", 1)
	return id, nil
}
