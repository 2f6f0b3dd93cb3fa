package predictor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/regression"
	"github.com/Veraticus/tripcost/internal/tier"
)

func TestFileSlot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		wantErr error
	}{
		{name: "missing", content: nil, wantErr: ErrModelNotFound},
		{name: "garbage", content: ptr("\x80\x04pickle"), wantErr: ErrModelCorrupt},
		{name: "truncated", content: ptr(`{"format_version": 1, "pipeline": {`), wantErr: ErrModelCorrupt},
		{name: "older version", content: ptr(`{"format_version": 0}`), wantErr: ErrModelIncompatible},
		{name: "newer version", content: ptr(`{"format_version": 2, "pipeline": {}}`), wantErr: ErrModelIncompatible},
		{name: "no pipeline", content: ptr(`{"format_version": 1, "rows": 3}`), wantErr: ErrModelCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0600))
			}
			_, err := NewFileSlot(path).Load(ctx)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileSlot_SaveLoad(t *testing.T) {
	ctx := context.Background()
	slot := NewFileSlot(filepath.Join(t.TempDir(), "a", "b", "model.json"))

	p := regression.NewPipeline()
	require.NoError(t, p.Fit(
		[]model.Features{{DestCity: "Zurich", DistanceKm: 10, DurationDays: 1}, {DestCity: "Bern", DistanceKm: 90, DurationDays: 3}},
		[]float64{400, 900},
	))
	mae := 12.5
	require.NoError(t, slot.Save(ctx, &Artifact{FormatVersion: FormatVersion, RunID: "r1", Rows: 2, MAE: &mae, Pipeline: p}))

	got, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RunID)
	require.NotNil(t, got.MAE)
	assert.InDelta(t, 12.5, *got.MAE, 0)

	entries, err := os.ReadDir(filepath.Dir(slot.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, slot.Save(cancelled, got), context.Canceled)
}

func TestLoader_NoSeedFile(t *testing.T) {
	f := newFixture(t)

	p, err := f.loader.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)

	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoader_NilSeedSource(t *testing.T) {
	f := newFixture(t)
	loader := NewLoader(f.slot, f.store, nil, f.trainer, nil)

	p, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLoader_BootstrapIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.writeSeedFile(t, zurichHeavyTrips(30))

	first, err := f.loader.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	artifact, err := f.slot.Load(ctx)
	require.NoError(t, err)

	second, err := f.loader.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, int32(1), f.seeds.reads.Load(), "second load must not bootstrap again")
	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	again, err := f.slot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, artifact.RunID, again.RunID)

	row := model.Features{DestCity: "Zurich", DistanceKm: 50, DurationDays: 2}
	a, err := first.PredictOne(row)
	require.NoError(t, err)
	b, err := second.PredictOne(row)
	require.NoError(t, err)
	assert.InDelta(t, a, b, 1e-9)
}

func TestLoader_RecoversFromCorruptSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.writeSeedFile(t, zurichHeavyTrips(12))

	require.NoError(t, os.MkdirAll(filepath.Dir(f.slot.Path), 0750))
	require.NoError(t, os.WriteFile(f.slot.Path, []byte("not a model"), 0600))

	p, err := f.loader.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)

	// A second corruption reuses the stored seed rows instead of appending them again.
	require.NoError(t, os.WriteFile(f.slot.Path, []byte(`{"format_version": 99}`), 0600))
	p, err = f.loader.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, int32(2), f.seeds.reads.Load())
}

func TestLoader_UnavailableRecoversWhenSeedAppears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.loader.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	f.writeSeedFile(t, zurichHeavyTrips(10))

	p, err = f.loader.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestLoader_EmptySeedFile(t *testing.T) {
	f := newFixture(t)
	f.writeSeedFile(t, nil)

	p, err := f.loader.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLoader_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	f.writeSeedFile(t, zurichHeavyTrips(10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.loader.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEndToEnd_ZurichHeavySeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.writeSeedFile(t, zurichHeavyTrips(30))

	p, err := f.loader.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)

	cost, err := p.PredictOne(model.Features{Tier: tier.T1, DestCity: "Zurich", DistanceKm: 50, DurationDays: 2})
	require.NoError(t, err)

	// Two days of T1 hotel and meals plus a short round-trip fare.
	baseline := 2*(nightly[tier.T1]+meals[tier.T1]) + (5+0.4*50)*2
	assert.Greater(t, cost, 0.0)
	assert.InDelta(t, baseline, cost, 0.25*baseline)
}

func ptr(s string) *string { return &s }
