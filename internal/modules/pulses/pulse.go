// Package pulses provides the analytic pulse envelopes used to synthesize AWG waveforms.
//
// A Pulse is a plain value: gates copy a template, adjust a few fields and render it
// against a time grid. Rendering never mutates the receiver.
package pulses

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidPulse is returned when a pulse definition cannot be rendered.
var ErrInvalidPulse = errors.New("invalid pulse")

// Shape selects the analytic envelope of a pulse.
type Shape int

const (
	Gaussian Shape = iota
	Square
	Ramp
	Cosine
)

// String returns the configuration name of the shape.
func (s Shape) String() string {
	switch s {
	case Gaussian:
		return "gaussian"
	case Square:
		return "square"
	case Ramp:
		return "ramp"
	case Cosine:
		return "cosine"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape converts a configuration string into a Shape.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian", "gauss":
		return Gaussian, nil
	case "square", "rect":
		return Square, nil
	case "ramp":
		return Ramp, nil
	case "cosine", "cos":
		return Cosine, nil
	}
	return Gaussian, fmt.Errorf("%w: unknown shape %q", ErrInvalidPulse, name)
}

// DefaultTruncationRange is the Gaussian truncation in standard deviations on each side.
const DefaultTruncationRange = 2.0

// Pulse holds everything needed to render one pulse.
type Pulse struct {
	Shape     Shape
	Amplitude float64
	Width     float64 // seconds
	Plateau   float64 // seconds
	Frequency float64 // SSB frequency, Hz
	Phase     float64 // radians

	UseDrag         bool
	DragCoefficient float64
	DragDetuning    float64 // Hz

	// TruncationRange is measured in standard deviations on each side of the center.
	TruncationRange float64
	StartAtZero     bool
	Complex         bool
}

// New returns a pulse with the library defaults for the given shape.
func New(shape Shape, complexValued bool) Pulse {
	return Pulse{
		Shape:           shape,
		Amplitude:       0.5,
		Width:           10e-9,
		TruncationRange: DefaultTruncationRange,
		Complex:         complexValued,
	}
}

// Validate reports configuration errors in the pulse definition.
func (p Pulse) Validate() error {
	if p.Width < 0 {
		return fmt.Errorf("%w: negative width %g", ErrInvalidPulse, p.Width)
	}
	if p.Plateau < 0 {
		return fmt.Errorf("%w: negative plateau %g", ErrInvalidPulse, p.Plateau)
	}
	if p.Shape == Gaussian && p.TruncationRange <= 0 {
		return fmt.Errorf("%w: gaussian truncation range must be positive, got %g", ErrInvalidPulse, p.TruncationRange)
	}
	if math.IsNaN(p.Amplitude) || math.IsInf(p.Amplitude, 0) {
		return fmt.Errorf("%w: amplitude is not finite", ErrInvalidPulse)
	}
	return nil
}

// StdDev returns the Gaussian standard deviation derived from the width.
func (p Pulse) StdDev() float64 {
	return p.Width / math.Sqrt(2*math.Pi)
}

// TotalDuration returns the time span outside of which the pulse is exactly zero.
func (p Pulse) TotalDuration() float64 {
	var d float64
	switch p.Shape {
	case Gaussian:
		d = 2*p.TruncationRange*p.StdDev() + p.Plateau
	case Square, Cosine:
		d = p.Width + p.Plateau
	case Ramp:
		d = 2*p.Width + p.Plateau
	}
	if d < 0 {
		return 0
	}
	return d
}

// Envelope evaluates the real envelope of the pulse centered at t0.
// Samples outside [t0-d/2, t0+d/2] are zero, up to a millionth of a sample period of
// grid rounding at the edges.
func (p Pulse) Envelope(t0 float64, t []float64) []float64 {
	var values []float64
	switch p.Shape {
	case Gaussian:
		values = p.gaussian(t0, t)
	case Square:
		values = p.square(t0, t)
	case Ramp:
		values = p.ramp(t0, t)
	case Cosine:
		values = p.cosine(t0, t)
	default:
		values = make([]float64, len(t))
	}
	maskOutside(values, t, t0, p.TotalDuration())
	if p.StartAtZero && p.Shape == Gaussian {
		p.removeBaseline(values, t, t0)
	}
	floats.Scale(p.Amplitude, values)
	return values
}

// Waveform renders the pulse, including DRAG, detuning and single-sideband mixing.
// Real pulses return the envelope with a zero imaginary part.
func (p Pulse) Waveform(t0 float64, t []float64) []complex128 {
	env := p.Envelope(t0, t)
	y := make([]complex128, len(env))
	for i, v := range env {
		y[i] = complex(v, 0)
	}
	if !p.Complex {
		return y
	}

	if p.UseDrag && len(t) > 1 {
		beta := p.DragCoefficient / (t[1] - t[0])
		grad := gradient(env)
		for i := range y {
			y[i] += complex(0, beta*grad[i])
		}
		if p.DragDetuning != 0 {
			for i := range y {
				arg := 2 * math.Pi * p.DragDetuning * (t[i] - t0)
				y[i] *= complex(math.Cos(arg), math.Sin(arg))
			}
		}
		// gradient leaks one sample past each edge
		maskOutsideComplex(y, t, t0, p.TotalDuration())
	}

	omega := 2 * math.Pi * p.Frequency
	for i, v := range y {
		arg := omega*t[i] - p.Phase
		c, s := math.Cos(arg), math.Sin(arg)
		re, im := real(v), imag(v)
		y[i] = complex(re*c+im*s, re*s-im*c)
	}
	return y
}

// removeBaseline shifts the in-window minimum to zero and rescales to a unit peak.
func (p Pulse) removeBaseline(values, t []float64, t0 float64) {
	lo, hi := windowBounds(t0, p.TotalDuration(), t)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for i, ti := range t {
		if ti < lo || ti > hi {
			continue
		}
		minV = math.Min(minV, values[i])
		maxV = math.Max(maxV, values[i])
	}
	if math.IsInf(minV, 0) || maxV-minV <= 0 {
		return
	}
	for i, ti := range t {
		if ti < lo || ti > hi {
			continue
		}
		values[i] = (values[i] - minV) / (maxV - minV)
	}
}

// edgeFraction is the fraction of a sample period by which a grid point may sit
// outside a pulse edge and still count as on it; it absorbs grid rounding.
const edgeFraction = 1e-6

func edgeTolerance(t []float64) float64 {
	if len(t) < 2 {
		return 0
	}
	return math.Abs(t[1]-t[0]) * edgeFraction
}

// windowBounds returns [t0-d/2, t0+d/2] widened by the grid's edge tolerance.
func windowBounds(t0, duration float64, t []float64) (float64, float64) {
	tol := edgeTolerance(t)
	return t0 - duration/2 - tol, t0 + duration/2 + tol
}

func maskOutside(values, t []float64, t0, duration float64) {
	lo, hi := windowBounds(t0, duration, t)
	for i, ti := range t {
		if ti < lo || ti > hi {
			values[i] = 0
		}
	}
}

func maskOutsideComplex(values []complex128, t []float64, t0, duration float64) {
	lo, hi := windowBounds(t0, duration, t)
	for i, ti := range t {
		if ti < lo || ti > hi {
			values[i] = 0
		}
	}
}

// gradient uses unit spacing: central differences inside, one-sided differences
// at the ends.
func gradient(y []float64) []float64 {
	n := len(y)
	g := make([]float64, n)
	if n < 2 {
		return g
	}
	g[0] = y[1] - y[0]
	g[n-1] = y[n-1] - y[n-2]
	for i := 1; i < n-1; i++ {
		g[i] = (y[i+1] - y[i-1]) / 2
	}
	return g
}

// Grid returns n sample times start, start+dt, ...
func Grid(n int, dt, start float64) []float64 {
	if n <= 0 {
		return []float64{}
	}
	t := make([]float64, n)
	for i := range t {
		t[i] = start + float64(i)*dt
	}
	return t
}
