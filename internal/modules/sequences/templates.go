package sequences

import (
	"fmt"

	"github.com/aristath/qpulse/internal/modules/pulses"
	"github.com/aristath/qpulse/internal/modules/settings"
)

// TemplatesFromSnapshot builds the pulse templates of an n-qubit register from the
// xy.*, z.*, cz.* and readout.* settings. Per-qubit ".N" overrides are honoured.
func TemplatesFromSnapshot(p settings.Snapshot, nQubit int) (Templates, error) {
	t := Templates{
		XY:       make([]pulses.Pulse, nQubit),
		Z:        make([]pulses.Pulse, nQubit),
		TwoQubit: make([]pulses.Pulse, max(nQubit-1, 0)),
		Readout:  make([]pulses.Pulse, nQubit),
	}

	for i := 0; i < nQubit; i++ {
		q := i + 1

		xy, err := xyTemplate(p, q)
		if err != nil {
			return Templates{}, fmt.Errorf("failed to build xy template for qubit %d: %w", q, err)
		}
		t.XY[i] = xy

		z, err := realTemplate(p, "z", q)
		if err != nil {
			return Templates{}, fmt.Errorf("failed to build z template for qubit %d: %w", q, err)
		}
		t.Z[i] = z

		ro, err := readoutTemplate(p, q)
		if err != nil {
			return Templates{}, fmt.Errorf("failed to build readout template for qubit %d: %w", q, err)
		}
		t.Readout[i] = ro

		if i < nQubit-1 {
			cz, err := realTemplate(p, "cz", q)
			if err != nil {
				return Templates{}, fmt.Errorf("failed to build two-qubit template for pair %d-%d: %w", q, q+1, err)
			}
			t.TwoQubit[i] = cz
		}
	}
	return t, nil
}

// reader collects the first error of a run of per-qubit lookups.
type reader struct {
	p     settings.Snapshot
	qubit int
	err   error
}

func (r *reader) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.FloatFor(key, r.qubit)
	r.err = err
	return v
}

func (r *reader) flag(key string) bool {
	if r.err != nil {
		return false
	}
	v, err := r.p.BoolFor(key, r.qubit)
	r.err = err
	return v
}

func (r *reader) shape(key string) pulses.Shape {
	if r.err != nil {
		return pulses.Gaussian
	}
	name, err := r.p.StringFor(key, r.qubit)
	if err != nil {
		r.err = err
		return pulses.Gaussian
	}
	s, err := pulses.ParseShape(name)
	r.err = err
	return s
}

func xyTemplate(p settings.Snapshot, q int) (pulses.Pulse, error) {
	r := &reader{p: p, qubit: q}
	pulse := pulses.New(r.shape("xy.shape"), true)
	pulse.Amplitude = r.float("xy.amplitude")
	pulse.Width = r.float("xy.width")
	pulse.Plateau = r.float("xy.plateau")
	pulse.Frequency = r.float("xy.frequency")
	pulse.UseDrag = r.flag("xy.use_drag")
	pulse.DragCoefficient = r.float("xy.drag_coefficient")
	pulse.DragDetuning = r.float("xy.drag_detuning")
	pulse.TruncationRange = r.float("xy.truncation_range")
	pulse.StartAtZero = r.flag("xy.start_at_zero")
	if r.err != nil {
		return pulses.Pulse{}, r.err
	}
	return pulse, pulse.Validate()
}

// realTemplate reads a baseband template (z or cz) for qubit or pair q.
func realTemplate(p settings.Snapshot, prefix string, q int) (pulses.Pulse, error) {
	r := &reader{p: p, qubit: q}
	pulse := pulses.New(r.shape(prefix+".shape"), false)
	pulse.Amplitude = r.float(prefix + ".amplitude")
	pulse.Width = r.float(prefix + ".width")
	pulse.Plateau = r.float(prefix + ".plateau")
	pulse.TruncationRange = r.float(prefix + ".truncation_range")
	if p.Has(prefix + ".start_at_zero") {
		pulse.StartAtZero = r.flag(prefix + ".start_at_zero")
	}
	if r.err != nil {
		return pulses.Pulse{}, r.err
	}
	return pulse, pulse.Validate()
}

// readoutTemplate is a complex square tone at the readout frequency.
func readoutTemplate(p settings.Snapshot, q int) (pulses.Pulse, error) {
	r := &reader{p: p, qubit: q}
	pulse := pulses.New(pulses.Square, true)
	pulse.Amplitude = r.float("readout.amplitude")
	pulse.Width = r.float("readout.duration")
	pulse.Frequency = r.float("readout.frequency")
	if r.err != nil {
		return pulses.Pulse{}, r.err
	}
	return pulse, pulse.Validate()
}
