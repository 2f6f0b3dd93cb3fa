package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNoRows is returned when fitting on an empty data set.
var ErrNoRows = errors.New("no training rows")

// rcond is the relative cutoff below which singular values count as zero.
const rcond = 1e-10

// LinearRegression is ordinary least squares with an intercept.
//
// The one-hot blocks make the design matrix rank deficient, so the fit
// centres X and y and takes the minimum-norm least-squares solution from an
// SVD. The intercept is then mean(y) - mean(X)·coef.
type LinearRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Fit estimates coefficients from x (n rows, p columns) and y (n values).
func (m *LinearRegression) Fit(x *mat.Dense, y []float64) error {
	n, p := x.Dims()
	if n == 0 {
		return ErrNoRows
	}
	if len(y) != n {
		return fmt.Errorf("%w: %d rows but %d targets", ErrColumnMismatch, n, len(y))
	}

	xMean := make([]float64, p)
	for j := 0; j < p; j++ {
		xMean[j] = mat.Sum(x.ColView(j)) / float64(n)
	}
	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	if p == 0 {
		m.Coef = []float64{}
		m.Intercept = yMean
		return nil
	}

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	var spread float64
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			v := x.At(i, j) - xMean[j]
			xc.Set(i, j, v)
			spread = math.Max(spread, math.Abs(v))
		}
		yc.SetVec(i, y[i]-yMean)
	}

	coef := make([]float64, p)
	if spread > 0 {
		var svd mat.SVD
		if !svd.Factorize(xc, mat.SVDThin) {
			return errors.New("singular value decomposition failed")
		}
		if rank := svd.Rank(rcond); rank > 0 {
			var beta mat.VecDense
			svd.SolveVecTo(&beta, yc, rank)
			for j := range coef {
				coef[j] = beta.AtVec(j)
			}
		}
	}

	intercept := yMean
	for j, c := range coef {
		intercept -= xMean[j] * c
	}

	m.Coef = coef
	m.Intercept = intercept
	return nil
}

// Fitted reports whether Fit has produced coefficients.
func (m *LinearRegression) Fitted() bool {
	return m.Coef != nil
}

// PredictRow returns intercept + row·coef.
func (m *LinearRegression) PredictRow(row []float64) (float64, error) {
	if !m.Fitted() {
		return 0, ErrNotFitted
	}
	if len(row) != len(m.Coef) {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrColumnMismatch, len(row), len(m.Coef))
	}

	v := m.Intercept
	for j, c := range m.Coef {
		v += c * row[j]
	}
	return v, nil
}
