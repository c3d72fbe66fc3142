// Package sequences builds gate sequences: ordered moments over a qubit register, each
// placed by an absolute center time, a relative gap or the default spacing.
package sequences

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/qpulse/internal/modules/gates"
	"github.com/aristath/qpulse/internal/modules/pulses"
)

var (
	// ErrQubitMismatch is returned when a gate list and qubit list differ in length, or a
	// qubit index is outside the register.
	ErrQubitMismatch = errors.New("gate list does not match qubit list")
	// ErrSequenceFrozen is returned when a compiled sequence is modified.
	ErrSequenceFrozen = errors.New("sequence is frozen")
)

// Alignment positions gates of different length inside one moment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return fmt.Sprintf("alignment(%d)", int(a))
}

// ParseAlignment converts "left", "center" or "right".
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignCenter, fmt.Errorf("unknown alignment %q", s)
}

// Step is one moment: at most one gate per qubit. A nil gate leaves the qubit idle.
type Step struct {
	Gates []gates.Gate
	// T0 is the absolute center of the step, measured from the end of the first delay.
	T0 *float64
	// DT is the gap between the end of the previous step and the start of this one.
	DT    *float64
	Align Alignment
}

// StepOption configures the placement of a step.
type StepOption func(*Step)

// At centers the step at the absolute time t0.
func At(t0 float64) StepOption {
	return func(s *Step) { s.T0 = &t0 }
}

// After starts the step dt after the end of the previous one.
func After(dt float64) StepOption {
	return func(s *Step) { s.DT = &dt }
}

// Align sets the alignment of gates inside the step.
func Align(a Alignment) StepOption {
	return func(s *Step) { s.Align = a }
}

// Templates holds the pulse templates the gates of a sequence are rendered from.
// XY, Z and Readout have one entry per qubit; TwoQubit has one entry per neighbouring
// pair (q, q+1).
type Templates struct {
	XY       []pulses.Pulse
	Z        []pulses.Pulse
	TwoQubit []pulses.Pulse
	Readout  []pulses.Pulse
}

// Sequence is an ordered list of steps over an n-qubit register.
type Sequence struct {
	nQubit     int
	steps      []Step
	templates  Templates
	firstDelay float64
	alignment  Alignment
	frozen     bool
}

// New returns an empty sequence. The default alignment applies to steps added without
// an Align option.
func New(nQubit int, alignment Alignment) (*Sequence, error) {
	if nQubit < 1 {
		return nil, fmt.Errorf("%w: register needs at least one qubit, got %d", ErrQubitMismatch, nQubit)
	}
	return &Sequence{nQubit: nQubit, alignment: alignment}, nil
}

func (s *Sequence) NQubit() int             { return s.nQubit }
func (s *Sequence) Len() int                { return len(s.steps) }
func (s *Sequence) FirstDelay() float64     { return s.firstDelay }
func (s *Sequence) Templates() Templates    { return s.templates }
func (s *Sequence) Alignment() Alignment    { return s.alignment }
func (s *Sequence) Frozen() bool            { return s.frozen }
func (s *Sequence) SetFirstDelay(d float64) { s.firstDelay = d }

// SetTemplates replaces the pulse templates.
func (s *Sequence) SetTemplates(t Templates) error {
	if len(t.XY) != s.nQubit || len(t.Z) != s.nQubit || len(t.Readout) != s.nQubit {
		return fmt.Errorf("%w: templates must cover %d qubits", ErrQubitMismatch, s.nQubit)
	}
	if len(t.TwoQubit) < s.nQubit-1 {
		return fmt.Errorf("%w: need %d two-qubit templates, got %d", ErrQubitMismatch, s.nQubit-1, len(t.TwoQubit))
	}
	s.templates = t
	return nil
}

// Freeze marks the sequence as compiled; later modifications fail.
func (s *Sequence) Freeze() { s.frozen = true }

// Steps returns a copy of the steps.
func (s *Sequence) Steps() []Step {
	out := make([]Step, len(s.steps))
	for i, st := range s.steps {
		out[i] = st
		out[i].Gates = append([]gates.Gate(nil), st.Gates...)
	}
	return out
}

func (s *Sequence) newStep(opts []StepOption) Step {
	st := Step{Gates: make([]gates.Gate, s.nQubit), Align: s.alignment}
	for _, opt := range opts {
		opt(&st)
	}
	return st
}

// AddGate adds one step placing gs[i] on qubits[i] (0-based).
func (s *Sequence) AddGate(qubits []int, gs []gates.Gate, opts ...StepOption) error {
	if s.frozen {
		return ErrSequenceFrozen
	}
	if len(qubits) != len(gs) {
		return fmt.Errorf("%w: %d qubits, %d gates", ErrQubitMismatch, len(qubits), len(gs))
	}
	st := s.newStep(opts)
	for i, q := range qubits {
		if q < 0 || q >= s.nQubit {
			return fmt.Errorf("%w: qubit %d outside register of %d", ErrQubitMismatch, q, s.nQubit)
		}
		if st.Gates[q] != nil {
			return fmt.Errorf("%w: qubit %d listed twice", ErrQubitMismatch, q)
		}
		st.Gates[q] = gs[i]
	}
	s.steps = append(s.steps, st)
	return nil
}

// AddSingle adds one step with g on a single qubit.
func (s *Sequence) AddSingle(qubit int, g gates.Gate, opts ...StepOption) error {
	return s.AddGate([]int{qubit}, []gates.Gate{g}, opts...)
}

// AddGateToAll adds one step with g on every qubit.
func (s *Sequence) AddGateToAll(g gates.Gate, opts ...StepOption) error {
	qubits := make([]int, s.nQubit)
	gs := make([]gates.Gate, s.nQubit)
	for i := range qubits {
		qubits[i] = i
		gs[i] = g
	}
	return s.AddGate(qubits, gs, opts...)
}

// AddComposite expands cg onto qubits, one step per moment. Placement options apply to
// the first moment; later moments follow with the default spacing.
func (s *Sequence) AddComposite(qubits []int, cg gates.CompositeGate, opts ...StepOption) error {
	if len(qubits) != cg.NQubit() {
		return fmt.Errorf("%w: composite %s acts on %d qubits, got %d", ErrQubitMismatch, cg.Name(), cg.NQubit(), len(qubits))
	}
	for i := 0; i < cg.NumMoments(); i++ {
		m, err := cg.Moment(i)
		if err != nil {
			return err
		}
		stepOpts := opts
		if i > 0 {
			stepOpts = alignOnly(opts)
		}
		if err := s.AddGate(qubits, m, stepOpts...); err != nil {
			return err
		}
	}
	return nil
}

// alignOnly keeps the alignment of opts and drops placement.
func alignOnly(opts []StepOption) []StepOption {
	var scratch Step
	scratch.Align = -1
	for _, opt := range opts {
		opt(&scratch)
	}
	if scratch.Align < 0 {
		return nil
	}
	return []StepOption{Align(scratch.Align)}
}

// AddMeasurement appends a pre-rotation and a readout on every qubit.
func (s *Sequence) AddMeasurement(axis gates.Axis, sign int, predelay float64) error {
	m, err := gates.Measurement(axis, sign)
	if err != nil {
		return err
	}
	pre, err := m.Moment(0)
	if err != nil {
		return err
	}
	if err := s.AddGateToAll(pre[0]); err != nil {
		return err
	}
	return s.AddGateToAll(gates.Readout{}, After(predelay))
}
