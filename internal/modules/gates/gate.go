// Package gates implements the gate algebra: a closed set of gate variants that adjust a
// pulse template before it is rendered, plus composite gates built from per-qubit moments.
//
// Gates are immutable values. WithPhase returns a new gate and never touches the receiver,
// so the same named gate can be shared by every qubit of a sequence.
package gates

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aristath/qpulse/internal/modules/pulses"
)

// ErrInvalidAxis is returned for rotation axes other than X, Y or Z.
var ErrInvalidAxis = errors.New("invalid rotation axis")

// ErrUnknownGate is returned by ByName for names that are not registered.
var ErrUnknownGate = errors.New("unknown gate")

// Kind identifies a gate variant.
type Kind int

const (
	KindIdentity Kind = iota
	KindXY
	KindZ
	KindVirtualZ
	KindTwoQubit
	KindReadout
	KindCustom
	KindRabi
)

func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindXY:
		return "xy"
	case KindZ:
		return "z"
	case KindVirtualZ:
		return "virtual_z"
	case KindTwoQubit:
		return "two_qubit"
	case KindReadout:
		return "readout"
	case KindCustom:
		return "custom"
	case KindRabi:
		return "rabi"
	}
	return "unknown"
}

// Channel is the control line a gate renders on.
type Channel int

const (
	// ChannelNone gates occupy time but emit nothing (virtual Z).
	ChannelNone Channel = iota
	ChannelXY
	ChannelZ
	ChannelTwoQubit
	ChannelReadout
)

// Gate is the sealed interface implemented by every gate variant.
type Gate interface {
	Kind() Kind
	Channel() Channel
	// PhaseShift is the accumulated phase added to the rendered pulse.
	PhaseShift() float64
	// WithPhase returns a copy with shift added to the accumulated phase.
	WithPhase(shift float64) Gate
	// AdjustPulse returns the concrete pulse for this gate given a template.
	AdjustPulse(template pulses.Pulse) pulses.Pulse
	String() string

	sealed()
}

// Render adjusts the template for the gate and evaluates it on the grid around t0.
func Render(g Gate, template pulses.Pulse, t0 float64, t []float64) []complex128 {
	if g.Channel() == ChannelNone {
		return make([]complex128, len(t))
	}
	return g.AdjustPulse(template).Waveform(t0, t)
}

// Duration returns the rendered length of the gate for the given template.
func Duration(g Gate, template pulses.Pulse) float64 {
	if g.Channel() == ChannelNone {
		return 0
	}
	return g.AdjustPulse(template).TotalDuration()
}

type base struct {
	phase float64
}

func (b base) PhaseShift() float64 { return b.phase }

func (base) sealed() {}

func (b base) adjust(template pulses.Pulse) pulses.Pulse {
	p := template
	p.Phase += b.phase
	return p
}

// Identity is a zero-amplitude gate. A non-nil Width turns it into a delay of that length.
type Identity struct {
	base
	Width *float64
}

// Delay returns an identity gate lasting exactly width seconds.
func Delay(width float64) Identity {
	return Identity{Width: &width}
}

func (Identity) Kind() Kind       { return KindIdentity }
func (Identity) Channel() Channel { return ChannelXY }

func (g Identity) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g Identity) AdjustPulse(template pulses.Pulse) pulses.Pulse {
	p := g.adjust(template)
	p.Amplitude = 0
	p.UseDrag = false
	if g.Width != nil {
		// plateau-only square keeps the duration exact for every shape
		p.Shape = pulses.Square
		p.Width = 0
		p.Plateau = *g.Width
	}
	return p
}

func (g Identity) String() string {
	if g.Width != nil {
		return fmt.Sprintf("I(%g)", *g.Width)
	}
	return "I"
}

// XYRotation rotates by Theta around an axis in the XY plane at angle Phi from X.
type XYRotation struct {
	base
	Phi   float64
	Theta float64
	Name  string
}

func (XYRotation) Kind() Kind       { return KindXY }
func (XYRotation) Channel() Channel { return ChannelXY }

func (g XYRotation) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g XYRotation) AdjustPulse(template pulses.Pulse) pulses.Pulse {
	p := template
	p.Phase = g.Phi + g.phase
	// a pi rotation uses the full template amplitude
	p.Amplitude *= g.Theta / math.Pi
	return p
}

func (g XYRotation) String() string {
	if g.Name != "" {
		return g.Name
	}
	return fmt.Sprintf("R(phi=%.4g, theta=%.4g)", g.Phi, g.Theta)
}

// ZRotation is a flux pulse on the Z line; it is rendered as a real pulse.
type ZRotation struct {
	base
	Theta float64
	Name  string
}

func (ZRotation) Kind() Kind       { return KindZ }
func (ZRotation) Channel() Channel { return ChannelZ }

func (g ZRotation) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g ZRotation) AdjustPulse(template pulses.Pulse) pulses.Pulse {
	p := template
	p.Complex = false
	p.Phase = 0
	p.UseDrag = false
	p.Amplitude *= g.Theta / math.Pi
	return p
}

func (g ZRotation) String() string {
	if g.Name != "" {
		return g.Name
	}
	return fmt.Sprintf("Rz(%.4g)", g.Theta)
}

// VirtualZ shifts the phase of every later pulse on the same qubit by Theta.
// It renders nothing and takes no time.
type VirtualZ struct {
	base
	Theta float64
}

func (VirtualZ) Kind() Kind       { return KindVirtualZ }
func (VirtualZ) Channel() Channel { return ChannelNone }

func (g VirtualZ) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g VirtualZ) AdjustPulse(template pulses.Pulse) pulses.Pulse {
	p := template
	p.Amplitude = 0
	p.Width = 0
	p.Plateau = 0
	return p
}

func (g VirtualZ) String() string { return fmt.Sprintf("VZ(%.4g)", g.Theta) }

// TwoQubit marks a two-qubit interaction. The compiler renders the pair's template on
// the Z line of the first qubit; the partner qubit only reserves the time.
type TwoQubit struct {
	base
	Name string
	// Fraction scales the template plateau; zero means the full gate.
	Fraction float64
}

// CPhase returns the full controlled-phase marker.
func CPhase() TwoQubit {
	return TwoQubit{Name: "CPh", Fraction: 1}
}

func (TwoQubit) Kind() Kind       { return KindTwoQubit }
func (TwoQubit) Channel() Channel { return ChannelTwoQubit }

func (g TwoQubit) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g TwoQubit) AdjustPulse(template pulses.Pulse) pulses.Pulse {
	p := template
	p.Complex = false
	p.UseDrag = false
	if g.Fraction > 0 && g.Fraction != 1 {
		p.Plateau *= g.Fraction
	}
	return p
}

func (g TwoQubit) String() string {
	if g.Name == "" {
		return "2QB"
	}
	return g.Name
}

// Readout marks a measurement; the compiler turns it into the readout tone and trigger.
type Readout struct {
	base
}

func (Readout) Kind() Kind       { return KindReadout }
func (Readout) Channel() Channel { return ChannelReadout }

func (g Readout) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g Readout) AdjustPulse(template pulses.Pulse) pulses.Pulse {
	return g.adjust(template)
}

func (Readout) String() string { return "Readout" }

// Custom renders an explicit pulse instead of the qubit's template.
type Custom struct {
	base
	Pulse pulses.Pulse
	Name  string
}

func (Custom) Kind() Kind { return KindCustom }

func (g Custom) Channel() Channel {
	if g.Pulse.Complex {
		return ChannelXY
	}
	return ChannelZ
}

func (g Custom) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g Custom) AdjustPulse(pulses.Pulse) pulses.Pulse {
	return g.adjust(g.Pulse)
}

func (g Custom) String() string {
	if g.Name != "" {
		return g.Name
	}
	return "Custom(" + g.Pulse.Shape.String() + ")"
}

// Rabi overrides amplitude, plateau and phase directly. Used for spin locking.
type Rabi struct {
	base
	Amplitude float64
	Plateau   float64
	Phase     float64
}

func (Rabi) Kind() Kind       { return KindRabi }
func (Rabi) Channel() Channel { return ChannelXY }

func (g Rabi) WithPhase(shift float64) Gate {
	g.phase += shift
	return g
}

func (g Rabi) AdjustPulse(template pulses.Pulse) pulses.Pulse {
	p := template
	p.Amplitude = g.Amplitude
	p.Plateau = g.Plateau
	p.Phase = g.Phase + g.phase
	return p
}

func (g Rabi) String() string {
	return fmt.Sprintf("Rabi(a=%.4g, plateau=%.4g)", g.Amplitude, g.Plateau)
}

// Axis is a rotation axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return AxisX, nil
	case "Y":
		return AxisY, nil
	case "Z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAxis, s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// NewRotation builds a single-qubit rotation by angle around axis.
func NewRotation(axis Axis, angle float64) (Gate, error) {
	switch axis {
	case AxisX:
		return XYRotation{Phi: 0, Theta: angle}, nil
	case AxisY:
		return XYRotation{Phi: math.Pi / 2, Theta: angle}, nil
	case AxisZ:
		return ZRotation{Theta: angle}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidAxis, int(axis))
}
