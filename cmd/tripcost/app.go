package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tripcost/internal/config"
	"github.com/Veraticus/tripcost/internal/fare"
	"github.com/Veraticus/tripcost/internal/geo"
	"github.com/Veraticus/tripcost/internal/metrics"
	"github.com/Veraticus/tripcost/internal/predictor"
	"github.com/Veraticus/tripcost/internal/seed"
	"github.com/Veraticus/tripcost/internal/service"
	"github.com/Veraticus/tripcost/internal/storage"
)

// app is everything a command needs, wired once from configuration.
type app struct {
	cfg     *config.Config
	store   service.TrainingStore
	metrics *metrics.Recorder
	loader  *predictor.Loader
	service *predictor.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	estimator, err := newEstimator(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open training store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to prepare training store: %w", err)
	}

	m := metrics.New()
	slot := predictor.NewFileSlot(cfg.Model.Path)
	trainer := predictor.NewTrainer(store, slot,
		predictor.WithTrainerMetrics(m),
		predictor.WithTrainerLogger(slog.Default()),
	)
	loader := predictor.NewLoader(slot, store, seed.FileSource{Path: cfg.Seed.Path}, trainer, m)

	return &app{
		cfg:     cfg,
		store:   store,
		metrics: m,
		loader:  loader,
		service: predictor.NewService(store, trainer, loader, estimator, m),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// openApp loads configuration and wires the application.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func newEstimator(cfg *config.Config) (*fare.Estimator, error) {
	geocoder, err := newGeocoder(cfg.Geocoder)
	if err != nil {
		return nil, err
	}

	estimator := fare.NewEstimator(geocoder)
	estimator.BaseFare = cfg.Fare.Base
	estimator.PerKmRate = cfg.Fare.PerKm
	return estimator, nil
}

func newGeocoder(cfg config.GeocoderConfig) (service.Geocoder, error) {
	switch cfg.Provider {
	case config.GeocoderNominatim:
		client, err := geo.NewNominatimClient(geo.NominatimConfig{
			BaseURL:   cfg.URL,
			UserAgent: cfg.UserAgent,
			Country:   cfg.Country,
			Retry: service.RetryOptions{
				MaxAttempts:  3,
				InitialDelay: time.Second,
				MaxDelay:     5 * time.Second,
				Multiplier:   2,
			},
		})
		if err != nil {
			return nil, err
		}
		return geo.NewCachingGeocoder(client), nil
	default:
		return geo.NewStaticGeocoder(nil), nil
	}
}
