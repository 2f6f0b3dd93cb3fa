// Package regression implements the trip cost model: one-hot encoding of the
// categorical features, ordinary least squares and the pipeline tying them
// together, plus the split and error metric used to validate it.
package regression

import (
	"errors"
	"fmt"
	"sort"
)

// Encoder errors.
var (
	ErrNotFitted      = errors.New("model is not fitted")
	ErrColumnMismatch = errors.New("column count mismatch")
)

// OneHotEncoder expands categorical columns into indicator columns. Each
// column's categories are sorted at fit time. Values never seen during
// fitting encode as all zeros.
type OneHotEncoder struct {
	Columns    []string   `json:"columns"`
	Categories [][]string `json:"categories"`
}

// NewOneHotEncoder creates an unfitted encoder for the named columns.
func NewOneHotEncoder(columns ...string) *OneHotEncoder {
	return &OneHotEncoder{Columns: columns}
}

// Fit learns the categories of every column. values[i][j] is row i, column j.
func (e *OneHotEncoder) Fit(values [][]string) error {
	seen := make([]map[string]struct{}, len(e.Columns))
	for j := range seen {
		seen[j] = make(map[string]struct{})
	}

	for i, row := range values {
		if len(row) != len(e.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrColumnMismatch, i, len(row), len(e.Columns))
		}
		for j, v := range row {
			seen[j][v] = struct{}{}
		}
	}

	e.Categories = make([][]string, len(e.Columns))
	for j, set := range seen {
		cats := make([]string, 0, len(set))
		for v := range set {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	return nil
}

// Fitted reports whether categories are known.
func (e *OneHotEncoder) Fitted() bool {
	return e.Categories != nil && len(e.Categories) == len(e.Columns)
}

// Width is the number of indicator columns produced.
func (e *OneHotEncoder) Width() int {
	w := 0
	for _, cats := range e.Categories {
		w += len(cats)
	}
	return w
}

// FeatureNames lists the indicator columns as "column=value".
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for j, cats := range e.Categories {
		for _, v := range cats {
			names = append(names, e.Columns[j]+"="+v)
		}
	}
	return names
}

// TransformInto writes the encoding of row into dst, which must be Width() long.
func (e *OneHotEncoder) TransformInto(dst []float64, row []string) error {
	if !e.Fitted() {
		return ErrNotFitted
	}
	if len(row) != len(e.Columns) {
		return fmt.Errorf("%w: got %d values, want %d", ErrColumnMismatch, len(row), len(e.Columns))
	}

	for i := range dst {
		dst[i] = 0
	}
	offset := 0
	for j, v := range row {
		cats := e.Categories[j]
		if k := sort.SearchStrings(cats, v); k < len(cats) && cats[k] == v {
			dst[offset+k] = 1
		}
		offset += len(e.Categories[j])
	}
	return nil
}

// Transform returns the encoding of row.
func (e *OneHotEncoder) Transform(row []string) ([]float64, error) {
	dst := make([]float64, e.Width())
	if err := e.TransformInto(dst, row); err != nil {
		return nil, err
	}
	return dst, nil
}
