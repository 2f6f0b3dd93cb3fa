package regression

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/tripcost/internal/model"
)

// Feature columns, in design-matrix order.
var (
	CategoricalColumns = []string{"tier", "dest_city"}
	NumericColumns     = []string{"distance_km", "duration_days"}
)

// Pipeline is the trip cost model: one-hot encoded tier and destination
// followed by the numeric columns, fed to a linear regression.
type Pipeline struct {
	Encoder   *OneHotEncoder    `json:"encoder"`
	Regressor *LinearRegression `json:"regressor"`
}

// NewPipeline returns an unfitted pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Encoder:   NewOneHotEncoder(CategoricalColumns...),
		Regressor: &LinearRegression{},
	}
}

// Fit trains the encoder and regressor on rows and their total costs.
// Rows with an empty Tier have it derived from DestCity.
func (p *Pipeline) Fit(rows []model.Features, y []float64) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	if len(rows) != len(y) {
		return fmt.Errorf("%w: %d rows but %d targets", ErrColumnMismatch, len(rows), len(y))
	}

	cats := make([][]string, len(rows))
	for i, r := range rows {
		cats[i] = categorical(r)
	}
	if err := p.Encoder.Fit(cats); err != nil {
		return err
	}

	x, err := p.design(rows)
	if err != nil {
		return err
	}
	return p.Regressor.Fit(x, y)
}

// Fitted reports whether the pipeline can predict.
func (p *Pipeline) Fitted() bool {
	return p != nil && p.Encoder != nil && p.Regressor != nil &&
		p.Encoder.Fitted() && p.Regressor.Fitted() &&
		len(p.Regressor.Coef) == p.width()
}

// Predict returns the estimated total cost for each row.
func (p *Pipeline) Predict(rows []model.Features) ([]float64, error) {
	if !p.Fitted() {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(rows))
	buf := make([]float64, p.width())
	for i, r := range rows {
		if err := p.encode(buf, r); err != nil {
			return nil, err
		}
		v, err := p.Regressor.PredictRow(buf)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// PredictOne estimates the total cost of a single trip.
func (p *Pipeline) PredictOne(f model.Features) (float64, error) {
	out, err := p.Predict([]model.Features{f})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// FeatureNames lists the design-matrix columns.
func (p *Pipeline) FeatureNames() []string {
	return append(p.Encoder.FeatureNames(), NumericColumns...)
}

func (p *Pipeline) width() int {
	return p.Encoder.Width() + len(NumericColumns)
}

func (p *Pipeline) design(rows []model.Features) (*mat.Dense, error) {
	w := p.width()
	data := make([]float64, len(rows)*w)
	for i, r := range rows {
		if err := p.encode(data[i*w:(i+1)*w], r); err != nil {
			return nil, err
		}
	}
	return mat.NewDense(len(rows), w, data), nil
}

func (p *Pipeline) encode(dst []float64, f model.Features) error {
	k := p.Encoder.Width()
	if err := p.Encoder.TransformInto(dst[:k], categorical(f)); err != nil {
		return err
	}
	dst[k] = f.DistanceKm
	dst[k+1] = f.DurationDays
	return nil
}

func categorical(f model.Features) []string {
	f = f.WithTier()
	return []string{string(f.Tier), f.DestCity}
}
