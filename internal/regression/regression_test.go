package regression

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/tier"
)

func TestOneHotEncoder(t *testing.T) {
	enc := NewOneHotEncoder("tier", "dest_city")
	require.NoError(t, enc.Fit([][]string{
		{"T2", "Zug"},
		{"T1", "Zurich"},
		{"T2", "Bern"},
	}))

	assert.Equal(t, [][]string{{"T1", "T2"}, {"Bern", "Zug", "Zurich"}}, enc.Categories)
	assert.Equal(t, 5, enc.Width())
	assert.Equal(t, []string{"tier=T1", "tier=T2", "dest_city=Bern", "dest_city=Zug", "dest_city=Zurich"}, enc.FeatureNames())

	tests := []struct {
		name string
		row  []string
		want []float64
	}{
		{"known", []string{"T1", "Zurich"}, []float64{1, 0, 0, 0, 1}},
		{"unseen city", []string{"T2", "Geneva"}, []float64{0, 1, 0, 0, 0}},
		{"all unseen", []string{"T3", "Geneva"}, []float64{0, 0, 0, 0, 0}},
		{"case sensitive", []string{"T1", "zurich"}, []float64{1, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Transform(tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := enc.Transform([]string{"T1"})
	assert.ErrorIs(t, err, ErrColumnMismatch)

	_, err = NewOneHotEncoder("tier").Transform([]string{"T1"})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestLinearRegression_ExactFit(t *testing.T) {
	// y = 3 + 2a - b
	x := mat.NewDense(5, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		2, 3,
		4, 1,
	})
	y := []float64{3, 5, 2, 4, 10}

	var lr LinearRegression
	require.NoError(t, lr.Fit(x, y))
	assert.InDelta(t, 3, lr.Intercept, 1e-9)
	assert.InDeltaSlice(t, []float64{2, -1}, lr.Coef, 1e-9)

	v, err := lr.PredictRow([]float64{10, 10})
	require.NoError(t, err)
	assert.InDelta(t, 13, v, 1e-9)
}

func TestLinearRegression_CollinearColumns(t *testing.T) {
	// Two indicator columns that always sum to one, plus a duplicate.
	x := mat.NewDense(4, 3, []float64{
		1, 0, 1,
		1, 0, 2,
		0, 1, 1,
		0, 1, 2,
	})
	y := []float64{10, 12, 20, 22}

	var lr LinearRegression
	require.NoError(t, lr.Fit(x, y))

	// Minimum norm splits the group effect symmetrically.
	assert.InDelta(t, -lr.Coef[0], lr.Coef[1], 1e-9)
	assert.InDelta(t, 5, lr.Coef[1], 1e-9)
	assert.InDelta(t, 2, lr.Coef[2], 1e-9)

	for i := 0; i < 4; i++ {
		v, err := lr.PredictRow(mat.Row(nil, i, x))
		require.NoError(t, err)
		assert.InDelta(t, y[i], v, 1e-9)
	}
}

func TestLinearRegression_DegenerateInputs(t *testing.T) {
	var lr LinearRegression

	// A single row carries no slope information; predict its value everywhere.
	require.NoError(t, lr.Fit(mat.NewDense(1, 2, []float64{5, 3}), []float64{700}))
	assert.Equal(t, []float64{0, 0}, lr.Coef)
	assert.InDelta(t, 700, lr.Intercept, 1e-9)

	// Constant features behave the same way.
	require.NoError(t, lr.Fit(mat.NewDense(3, 1, []float64{2, 2, 2}), []float64{1, 2, 3}))
	assert.InDelta(t, 2, lr.Intercept, 1e-9)

	err := lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), []float64{1})
	assert.ErrorIs(t, err, ErrColumnMismatch)

	_, err = (&LinearRegression{}).PredictRow([]float64{1})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func trainingRows() ([]model.Features, []float64) {
	rows := []model.Features{
		{DestCity: "Zurich", DistanceKm: 95, DurationDays: 1},
		{DestCity: "Zurich", DistanceKm: 95, DurationDays: 3},
		{DestCity: "Bern", DistanceKm: 95, DurationDays: 2},
		{DestCity: "Bern", DistanceKm: 30, DurationDays: 4},
		{DestCity: "Olten", DistanceKm: 25, DurationDays: 2},
		{DestCity: "Olten", DistanceKm: 60, DurationDays: 5},
	}
	y := make([]float64, len(rows))
	for i, r := range rows {
		base := map[tier.Label]float64{tier.T1: 300, tier.T2: 200, tier.T3: 100}[tier.Of(r.DestCity)]
		y[i] = base + 0.8*r.DistanceKm + 250*r.DurationDays
	}
	return rows, y
}

func TestPipeline_FitPredict(t *testing.T) {
	rows, y := trainingRows()
	p := NewPipeline()
	require.NoError(t, p.Fit(rows, y))
	require.True(t, p.Fitted())

	preds, err := p.Predict(rows)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, preds, 1e-6)

	assert.Equal(t, []string{
		"tier=T1", "tier=T2", "tier=T3",
		"dest_city=Bern", "dest_city=Olten", "dest_city=Zurich",
		"distance_km", "duration_days",
	}, p.FeatureNames())

	// Longer trips to the same place cost more.
	short, err := p.PredictOne(model.Features{DestCity: "Zurich", DistanceKm: 95, DurationDays: 1})
	require.NoError(t, err)
	long, err := p.PredictOne(model.Features{DestCity: "Zurich", DistanceKm: 95, DurationDays: 4})
	require.NoError(t, err)
	assert.Greater(t, long, short)
}

func TestPipeline_UnseenDestination(t *testing.T) {
	rows, y := trainingRows()
	p := NewPipeline()
	require.NoError(t, p.Fit(rows, y))

	// Geneva never appears in training; its city indicator is all zeros
	// but its tier (T1) is known, so a finite estimate comes back.
	v, err := p.PredictOne(model.Features{DestCity: "Geneva", DistanceKm: 225, DurationDays: 2})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(v))

	// Explicit tier overrides the derived one.
	derived, err := p.PredictOne(model.Features{DestCity: "Atlantis", DistanceKm: 10, DurationDays: 1})
	require.NoError(t, err)
	explicit, err := p.PredictOne(model.Features{Tier: tier.T3, DestCity: "Atlantis", DistanceKm: 10, DurationDays: 1})
	require.NoError(t, err)
	assert.InDelta(t, derived, explicit, 1e-9)
}

func TestPipeline_Errors(t *testing.T) {
	p := NewPipeline()
	_, err := p.PredictOne(model.Features{DestCity: "Zurich"})
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.ErrorIs(t, p.Fit(nil, nil), ErrNoRows)
	assert.ErrorIs(t, p.Fit([]model.Features{{DestCity: "Bern"}}, nil), ErrColumnMismatch)

	var nilPipeline *Pipeline
	assert.False(t, nilPipeline.Fitted())
}

func TestPipeline_JSONRoundTrip(t *testing.T) {
	rows, y := trainingRows()
	p := NewPipeline()
	require.NoError(t, p.Fit(rows, y))

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Pipeline
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.Fitted())

	want, err := p.Predict(rows)
	require.NoError(t, err)
	got, err := decoded.Predict(rows)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestTrainTestSplit(t *testing.T) {
	tests := []struct {
		n        int
		wantTest int
	}{
		{n: 8, wantTest: 2},
		{n: 10, wantTest: 2},
		{n: 20, wantTest: 4},
		{n: 21, wantTest: 5},
		{n: 30, wantTest: 6},
	}
	for _, tt := range tests {
		s := TrainTestSplit(tt.n, 0.2, 42)
		assert.Len(t, s.Test, tt.wantTest, "n=%d", tt.n)
		assert.Len(t, s.Train, tt.n-tt.wantTest, "n=%d", tt.n)

		seen := make(map[int]bool, tt.n)
		for _, i := range append(append([]int{}, s.Train...), s.Test...) {
			assert.False(t, seen[i], "index %d repeated", i)
			seen[i] = true
		}
		assert.Len(t, seen, tt.n)
	}

	assert.Equal(t, TrainTestSplit(30, 0.2, 42), TrainTestSplit(30, 0.2, 42))
	assert.Empty(t, TrainTestSplit(0, 0.2, 42).Train)
}

func TestMeanAbsoluteError(t *testing.T) {
	mae, err := MeanAbsoluteError([]float64{1, 2, 3}, []float64{2, 2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mae, 1e-12)

	_, err = MeanAbsoluteError([]float64{1}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = MeanAbsoluteError(nil, nil)
	assert.ErrorIs(t, err, ErrNoRows)
}
