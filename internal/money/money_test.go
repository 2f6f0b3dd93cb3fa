package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0, want: 0},
		{in: 1.005, want: 1.01},
		{in: 2.675, want: 2.68},
		{in: 123.4549, want: 123.45},
		{in: -1.005, want: -1.01},
		{in: 90, want: 90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "90.00", Format(90))
	assert.Equal(t, "1234.57", Format(1234.567))
}
