package gates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMomentSize is returned when a moment does not hold exactly one gate per qubit.
var ErrMomentSize = errors.New("moment size does not match qubit count")

// Moment is one gate per qubit, rendered at a shared anchor time.
type Moment []Gate

// CompositeGate is a fixed, ordered list of moments over NQubit qubits.
// AddMoment returns a new value; a composite never changes after construction.
type CompositeGate struct {
	name    string
	nQubit  int
	moments []Moment
}

// NewComposite returns an empty composite gate acting on nQubit qubits.
func NewComposite(name string, nQubit int) CompositeGate {
	return CompositeGate{name: name, nQubit: nQubit}
}

// AddMoment returns a copy of c with one more moment appended.
func (c CompositeGate) AddMoment(gs ...Gate) (CompositeGate, error) {
	if len(gs) != c.nQubit {
		return c, fmt.Errorf("%w: %s expects %d gates, got %d", ErrMomentSize, c.name, c.nQubit, len(gs))
	}
	for i, g := range gs {
		if g == nil {
			return c, fmt.Errorf("%w: %s has nil gate at qubit %d", ErrMomentSize, c.name, i)
		}
	}

	moments := make([]Moment, len(c.moments), len(c.moments)+1)
	copy(moments, c.moments)
	m := make(Moment, len(gs))
	copy(m, gs)
	moments = append(moments, m)

	return CompositeGate{name: c.name, nQubit: c.nQubit, moments: moments}, nil
}

// mustAdd is used for the fixed built-in composites whose shapes are known to be valid.
func (c CompositeGate) mustAdd(gs ...Gate) CompositeGate {
	next, err := c.AddMoment(gs...)
	if err != nil {
		panic(err)
	}
	return next
}

func (c CompositeGate) Name() string    { return c.name }
func (c CompositeGate) NQubit() int     { return c.nQubit }
func (c CompositeGate) NumMoments() int { return len(c.moments) }

// Moment returns a copy of moment i.
func (c CompositeGate) Moment(i int) (Moment, error) {
	if i < 0 || i >= len(c.moments) {
		return nil, fmt.Errorf("moment index %d out of range [0,%d)", i, len(c.moments))
	}
	m := make(Moment, len(c.moments[i]))
	copy(m, c.moments[i])
	return m, nil
}

func (c CompositeGate) String() string {
	parts := make([]string, len(c.moments))
	for i, m := range c.moments {
		names := make([]string, len(m))
		for j, g := range m {
			names[j] = g.String()
		}
		parts[i] = "[" + strings.Join(names, ", ") + "]"
	}
	return c.name + strings.Join(parts, "")
}

// CZ is a controlled-phase interaction followed by single-qubit phase corrections.
func CZ(phi1, phi2 float64) CompositeGate {
	return NewComposite("CZ", 2).
		mustAdd(CPh, CPh).
		mustAdd(VirtualZ{Theta: phi1}, VirtualZ{Theta: phi2})
}

// CZEcho splits the interaction in two halves with refocusing pi pulses in between.
func CZEcho(phi1, phi2 float64) CompositeGate {
	half := TwoQubit{Name: "CPh/2", Fraction: 0.5}
	return NewComposite("CZEcho", 2).
		mustAdd(half, half).
		mustAdd(Xp, Xp).
		mustAdd(half, half).
		mustAdd(Xp, Xp).
		mustAdd(VirtualZ{Theta: phi1}, VirtualZ{Theta: phi2})
}

// CNOT is built from a CZ conjugated by Y half rotations on the target.
func CNOT(phi1, phi2 float64) CompositeGate {
	c := NewComposite("CNOT", 2).mustAdd(I, Y2m)
	cz := CZ(phi1, phi2)
	for i := 0; i < cz.NumMoments(); i++ {
		c = c.mustAdd(cz.moments[i]...)
	}
	return c.mustAdd(I, Y2p)
}

// Measurement rotates the requested axis onto Z and reads out. sign is +1 or -1.
func Measurement(axis Axis, sign int) (CompositeGate, error) {
	if sign != 1 && sign != -1 {
		return CompositeGate{}, fmt.Errorf("measurement sign must be +1 or -1, got %d", sign)
	}

	var pre Gate
	switch axis {
	case AxisZ:
		pre = I
		if sign < 0 {
			pre = Xp
		}
	case AxisX:
		pre = Y2m
		if sign < 0 {
			pre = Y2p
		}
	case AxisY:
		pre = X2p
		if sign < 0 {
			pre = X2m
		}
	default:
		return CompositeGate{}, fmt.Errorf("%w: %d", ErrInvalidAxis, int(axis))
	}

	return NewComposite("Measure"+axis.String(), 1).
		mustAdd(pre).
		mustAdd(Readout{}), nil
}
