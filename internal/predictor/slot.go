// Package predictor trains, persists and serves the trip cost model: the
// trainer refits it from the training store, the loader bootstraps it from
// seed data when no usable model exists, and Service ties both to expense
// submissions.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/tripcost/internal/regression"
)

// FormatVersion is written into every persisted model. A slot holding any
// other version is reported as incompatible instead of being decoded.
const FormatVersion = 1

// Model slot errors.
var (
	ErrModelNotFound     = errors.New("no persisted model")
	ErrModelCorrupt      = errors.New("persisted model is unreadable")
	ErrModelIncompatible = errors.New("persisted model has an incompatible format version")
)

// Artifact is a fitted model plus the facts about the run that produced it.
type Artifact struct {
	TrainedAt     time.Time            `json:"trained_at"`
	MAE           *float64             `json:"mae"`
	Pipeline      *regression.Pipeline `json:"pipeline"`
	RunID         string               `json:"run_id"`
	FormatVersion int                  `json:"format_version"`
	Rows          int                  `json:"rows"`
}

// ModelSlot is the single durable location of the current model.
type ModelSlot interface {
	Load(ctx context.Context) (*Artifact, error)
	Save(ctx context.Context, a *Artifact) error
}

// FileSlot stores the model as one JSON file.
type FileSlot struct {
	Path string
}

// NewFileSlot returns a slot at path.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{Path: path}
}

// Load reads and decodes the slot.
func (s *FileSlot) Load(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var header struct {
		FormatVersion int `json:"format_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelCorrupt, err)
	}
	if header.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrModelIncompatible, header.FormatVersion, FormatVersion)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelCorrupt, err)
	}
	if !a.Pipeline.Fitted() {
		return nil, fmt.Errorf("%w: pipeline is missing or incomplete", ErrModelCorrupt)
	}
	return &a, nil
}

// Save overwrites the slot. The file is replaced atomically so readers see
// either the previous model or the new one.
func (s *FileSlot) Save(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to replace model: %w", err)
	}
	return nil
}
