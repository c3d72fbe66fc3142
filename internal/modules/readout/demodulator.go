// Package readout demodulates captured readout traces into per-qubit complex amplitudes
// and provides the IQ correction applied to generated readout tones.
package readout

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/integrate"
)

var (
	// ErrShapeMismatch is returned when I and Q traces differ in length.
	ErrShapeMismatch = errors.New("trace shape mismatch")
	// ErrInvalidParameter is returned for non-physical demodulation parameters.
	ErrInvalidParameter = errors.New("invalid demodulation parameter")
)

// Trace is one captured waveform. A trace with Q set is an I/Q pair demodulated as
// Y + jQ; otherwise Y is a real signal.
type Trace struct {
	Y  []float64 `json:"y" msgpack:"y"`
	Q  []float64 `json:"q,omitempty" msgpack:"q,omitempty"`
	T0 float64   `json:"t0" msgpack:"t0"` // time of the first sample (s)
	DT float64   `json:"dt" msgpack:"dt"` // sample period (s)
}

// Len returns the number of samples.
func (t Trace) Len() int { return len(t.Y) }

// IsIQ reports whether the trace carries a quadrature component.
func (t Trace) IsIQ() bool { return t.Q != nil }

// Validate checks the sample period and the I/Q lengths.
func (t Trace) Validate() error {
	if t.IsIQ() && len(t.Q) != len(t.Y) {
		return fmt.Errorf("%w: I has %d samples, Q has %d", ErrShapeMismatch, len(t.Y), len(t.Q))
	}
	if !(t.DT > 0) || math.IsInf(t.DT, 0) {
		return fmt.Errorf("%w: sample period must be positive, got %g", ErrInvalidParameter, t.DT)
	}
	return nil
}

// Params selects the demodulation window inside each segment.
type Params struct {
	Frequency float64 // Hz
	Skip      float64 // window start after the segment start (s)
	Length    float64 // window length (s)
	Segments  int     // equal segments the trace is split into
}

// Validate rejects negative windows and empty segmentation.
func (p Params) Validate() error {
	if p.Segments < 1 {
		return fmt.Errorf("%w: segments must be at least 1, got %d", ErrInvalidParameter, p.Segments)
	}
	if p.Skip < 0 || p.Length < 0 {
		return fmt.Errorf("%w: skip and length must not be negative", ErrInvalidParameter)
	}
	return nil
}

// Demodulate returns one complex value per segment. A tone a*cos(2*pi*f*t + phi)
// demodulates to a*exp(j*phi).
//
// When ref is non-nil it is demodulated with the same parameters and each value is
// rotated by the negative reference phase, cancelling common phase drift. A reference
// whose length differs from the trace is ignored.
func Demodulate(tr Trace, p Params, ref *Trace) ([]complex128, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	values := demodulate(tr, p)
	if ref == nil || ref.Len() != tr.Len() {
		return values, nil
	}
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reference trace: %w", err)
	}
	refValues := demodulate(*ref, p)
	for i, r := range refValues {
		values[i] /= cmplx.Exp(complex(0, cmplx.Phase(r)))
	}
	return values, nil
}

func demodulate(tr Trace, p Params) []complex128 {
	values := make([]complex128, p.Segments)

	segLen := tr.Len() / p.Segments
	skip := int(math.Round(p.Skip / tr.DT))
	length := int(math.Round(p.Length / tr.DT))
	if skip+length > segLen {
		length = segLen - skip
	}
	if length <= 1 {
		return values
	}

	omega := 2 * math.Pi * p.Frequency
	// integration runs over sample index, so the result is scaled by 2/(N-1)
	x := make([]float64, length)
	for k := range x {
		x[k] = float64(k)
	}
	re := make([]float64, length)
	im := make([]float64, length)
	for s := 0; s < p.Segments; s++ {
		offset := s*segLen + skip
		for k := 0; k < length; k++ {
			t := tr.T0 + tr.DT*float64(offset+k)
			y := complex(tr.Y[offset+k], 0)
			if tr.IsIQ() {
				y = complex(tr.Y[offset+k], tr.Q[offset+k])
			}
			v := y * cmplx.Exp(complex(0, -omega*t))
			re[k], im[k] = real(v), imag(v)
		}
		area := complex(integrate.Trapezoidal(x, re), integrate.Trapezoidal(x, im))
		values[s] = 2 * area / complex(float64(length-1), 0)
	}
	return values
}
