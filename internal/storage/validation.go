// Package storage persists training observations for the cost model.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tripcost/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidObservation = errors.New("invalid observation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateObservations(observations []model.TripObservation) error {
	for i := range observations {
		if err := validateObservation(&observations[i]); err != nil {
			return fmt.Errorf("observation at index %d: %w", i, err)
		}
	}
	return nil
}

func validateObservation(obs *model.TripObservation) error {
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidObservation, err)
	}
	return nil
}
