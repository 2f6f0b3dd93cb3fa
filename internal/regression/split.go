package regression

import (
	"errors"
	"math"
	"math/rand/v2"
)

// ErrLengthMismatch is returned when two series that must pair up differ in length.
var ErrLengthMismatch = errors.New("length mismatch")

// Split holds row indices for training and held-out evaluation.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles 0..n-1 with a generator seeded by seed and holds
// out ceil(n*testFraction) rows for testing. The same inputs always give the
// same split.
func TrainTestSplit(n int, testFraction float64, seed uint64) Split {
	if n <= 0 {
		return Split{}
	}
	testFraction = min(max(testFraction, 0), 1)

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFraction))

	return Split{
		Test:  perm[:nTest],
		Train: perm[nTest:],
	}
}

// MeanAbsoluteError is mean(|yTrue - yPred|).
func MeanAbsoluteError(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, ErrLengthMismatch
	}
	if len(yTrue) == 0 {
		return 0, ErrNoRows
	}

	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}
