package conditioning

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SinglePole is the analytic response H(w) = 1 + j*A*w*tau / (j*w*tau + 1) of a
// flux line with one exponential settling tail.
type SinglePole struct {
	Amplitude float64
	Tau       float64 // seconds
}

// Validate rejects negative or non-finite parameters.
func (s SinglePole) Validate() error {
	if s.Tau < 0 || math.IsNaN(s.Tau) || math.IsInf(s.Tau, 0) {
		return fmt.Errorf("%w: single-pole tau must be finite and non-negative, got %g", ErrShapeMismatch, s.Tau)
	}
	if math.IsNaN(s.Amplitude) || math.IsInf(s.Amplitude, 0) {
		return fmt.Errorf("%w: single-pole amplitude is not finite", ErrShapeMismatch)
	}
	return nil
}

// Response returns H at angular frequency w.
func (s SinglePole) Response(w float64) complex128 {
	jwt := complex(0, w*s.Tau)
	return 1 + complex(s.Amplitude, 0)*jwt/(jwt+1)
}

// Predistort divides the spectrum of x by H.
func (s SinglePole) Predistort(x []float64, dt float64) ([]float64, error) {
	return s.filter(x, dt, true)
}

// Distort multiplies the spectrum of x by H; the forward model of the line.
func (s SinglePole) Distort(x []float64, dt float64) ([]float64, error) {
	return s.filter(x, dt, false)
}

func (s SinglePole) filter(x []float64, dt float64, invert bool) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return []float64{}, nil
	}
	if s.Amplitude == 0 || s.Tau == 0 {
		return append([]float64(nil), x...), nil
	}

	fft := fourier.NewFFT(len(x))
	coeff := fft.Coefficients(nil, x)
	for k := range coeff {
		h := s.Response(2 * math.Pi * fft.Freq(k) / dt)
		if h == 0 {
			return nil, fmt.Errorf("%w: single-pole response vanishes at bin %d", ErrSingularMatrix, k)
		}
		if invert {
			coeff[k] /= h
		} else {
			coeff[k] *= h
		}
	}
	out := fft.Sequence(nil, coeff)
	n := float64(len(x))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}
