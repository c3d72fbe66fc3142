// Package waveforms compiles gate sequences into sampled AWG waveforms.
package waveforms

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/qpulse/internal/modules/conditioning"
	"github.com/aristath/qpulse/internal/modules/gates"
	"github.com/aristath/qpulse/internal/modules/pulses"
	"github.com/aristath/qpulse/internal/modules/readout"
	"github.com/aristath/qpulse/internal/modules/sequences"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrFrequencyOutOfBand is returned when a drive or readout tone exceeds the Nyquist frequency.
	ErrFrequencyOutOfBand = errors.New("frequency out of band")
	// ErrSequenceTooLong is returned when a fixed-length waveform cannot hold the sequence.
	ErrSequenceTooLong = errors.New("sequence longer than waveform")
)

// renderMargin is the number of extra samples rendered on each side of a pulse window.
const renderMargin = 2

// timeEps absorbs rounding when converting times to sample counts.
const timeEps = 1e-9

// Calibration carries the measured conditioning data. Nil fields disable the stage.
type Calibration struct {
	// IQ holds one predistorter per qubit XY line; nil entries pass through.
	IQ        []*conditioning.IQPredistorter
	Crosstalk *conditioning.Crosstalk
}

// placement is one gate bound to a channel and an absolute center time.
type placement struct {
	qubit   int
	gate    gates.Gate
	pulse   pulses.Pulse
	channel gates.Channel
	center  float64
	dur     float64
}

func (p placement) start() float64 { return p.center - p.dur/2 }
func (p placement) end() float64   { return p.center + p.dur/2 }

// Layout is the timing of a compiled sequence before rendering.
type Layout struct {
	placements []placement
	// End is the end of the last pulse (s).
	End float64
	// Reach is the end of the last gate marker or readout trigger (s). It can pass End
	// when marker padding or trigger duration extends beyond the pulses.
	Reach float64
	// Shift is the offset added to every pulse, from negative-start correction and
	// align_to_end.
	Shift float64
}

// Compile renders seq with cfg and applies the conditioning pipeline:
// XY predistortion, Z crosstalk compensation, Z single-pole predistortion, then
// readout IQ correction and the I/Q swaps.
func Compile(seq *sequences.Sequence, cfg Config, cal Calibration) (*Waveforms, error) {
	if seq.NQubit() != cfg.NQubit {
		return nil, fmt.Errorf("%w: sequence has %d qubits, configuration %d", sequences.ErrQubitMismatch, seq.NQubit(), cfg.NQubit)
	}
	if err := checkTemplates(seq.Templates(), cfg.Nyquist()); err != nil {
		return nil, err
	}

	layout, err := Schedule(seq, cfg.Spacing)
	if err != nil {
		return nil, err
	}
	layout.reserve(cfg)
	n, err := layout.fit(cfg)
	if err != nil {
		return nil, err
	}

	w := newWaveforms(cfg.NQubit, n, cfg.SampleRate)
	render(w, layout, cfg)

	if err := condition(w, cfg, cal); err != nil {
		return nil, err
	}
	return w, nil
}

func checkTemplates(t sequences.Templates, nyquist float64) error {
	for q, p := range t.XY {
		if err := checkBand(fmt.Sprintf("xy.frequency.%d", q+1), p.Frequency, nyquist); err != nil {
			return err
		}
	}
	for q, p := range t.Readout {
		if err := checkBand(fmt.Sprintf("readout.frequency.%d", q+1), p.Frequency, nyquist); err != nil {
			return err
		}
	}
	return nil
}

// Schedule threads virtual-Z phases and binds every gate of seq to an absolute center.
func Schedule(seq *sequences.Sequence, spacing float64) (*Layout, error) {
	steps := threadVirtualZ(seq.Steps(), seq.NQubit())
	templates := seq.Templates()
	firstDelay := seq.FirstDelay()

	layout := &Layout{}
	prevEnd := firstDelay
	started := false

	for i, st := range steps {
		pls, err := resolveStep(st, templates, seq.NQubit())
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		var dur float64
		for _, p := range pls {
			dur = math.Max(dur, p.dur)
		}
		if dur <= 0 {
			continue
		}

		var start float64
		switch {
		case st.T0 != nil:
			start = firstDelay + *st.T0 - dur/2
		case st.DT != nil:
			start = prevEnd + *st.DT
		case !started:
			start = firstDelay
		default:
			start = prevEnd + spacing
		}
		end := start + dur

		for _, p := range pls {
			if p.dur <= 0 {
				continue
			}
			switch st.Align {
			case sequences.AlignLeft:
				p.center = start + p.dur/2
			case sequences.AlignRight:
				p.center = end - p.dur/2
			default:
				p.center = start + dur/2
			}
			layout.placements = append(layout.placements, p)
		}
		prevEnd = end
		started = true
	}

	minStart := math.Inf(1)
	for _, p := range layout.placements {
		minStart = math.Min(minStart, p.start())
	}
	if minStart < 0 {
		layout.shift(-minStart)
	}
	for _, p := range layout.placements {
		layout.End = math.Max(layout.End, p.end())
	}
	return layout, nil
}

func (l *Layout) shift(d float64) {
	for i := range l.placements {
		l.placements[i].center += d
	}
	l.End += d
	l.Reach += d
	l.Shift += d
}

// marked reports whether p raises its qubit's gate marker.
func marked(p placement, cfg Config) bool {
	return cfg.MarkerEnabled && p.channel == gates.ChannelXY &&
		p.gate.Kind() != gates.KindIdentity && p.pulse.Amplitude != 0
}

// reserve makes room for the marker and trigger windows around the pulses. A marker
// lead that would start before zero shifts the whole layout right.
func (l *Layout) reserve(cfg Config) {
	lead, reach := 0.0, l.End
	for _, p := range l.placements {
		switch {
		case marked(p, cfg):
			lead = math.Min(lead, p.start()-cfg.MarkerPadding)
			reach = math.Max(reach, p.end()+cfg.MarkerPadding)
		case p.channel == gates.ChannelReadout:
			reach = math.Max(reach, p.start()+cfg.TrigDuration)
		}
	}
	l.Reach = reach
	if lead < 0 {
		l.shift(-lead)
	}
}

// Pulses returns the number of placed pulses.
func (l *Layout) Pulses() int {
	return len(l.placements)
}

// fit chooses the waveform length and applies align_to_end.
func (l *Layout) fit(cfg Config) (int, error) {
	dt := cfg.SamplePeriod()
	needed := math.Max(l.End+cfg.Padding, l.Reach)

	var n int
	if cfg.TrimToSequence {
		n = max(int(math.Ceil(needed/dt-timeEps)), cfg.MinPoints)
	} else {
		n = cfg.NPoints
		if needed > float64(n)*dt*(1+timeEps) {
			return 0, fmt.Errorf("%w: sequence needs %g s, waveform holds %d samples (%g s)", ErrSequenceTooLong, needed, n, float64(n)*dt)
		}
	}

	if cfg.AlignToEnd && len(l.placements) > 0 {
		total := float64(n) * dt
		if d := math.Min(total-cfg.Padding-l.End, total-l.Reach); d > 0 {
			l.shift(d)
		}
	}
	return n, nil
}

// threadVirtualZ adds the accumulated virtual-Z phase of each qubit to every later
// drive gate on that qubit.
func threadVirtualZ(steps []sequences.Step, nQubit int) []sequences.Step {
	acc := make([]float64, nQubit)
	for _, st := range steps {
		for q, g := range st.Gates {
			if g == nil {
				continue
			}
			if vz, ok := g.(gates.VirtualZ); ok {
				acc[q] += vz.Theta
				continue
			}
			if acc[q] != 0 && g.Channel() == gates.ChannelXY {
				st.Gates[q] = g.WithPhase(acc[q])
			}
		}
	}
	return steps
}

// resolveStep pairs every gate of a step with its template.
func resolveStep(st sequences.Step, t sequences.Templates, nQubit int) ([]placement, error) {
	var out []placement
	consumed := make([]bool, nQubit)

	for q, g := range st.Gates {
		if g == nil || consumed[q] {
			continue
		}
		p := placement{qubit: q, gate: g, channel: g.Channel()}

		switch g.Channel() {
		case gates.ChannelNone:
			continue
		case gates.ChannelXY:
			p.pulse = g.AdjustPulse(t.XY[q])
		case gates.ChannelZ:
			p.pulse = g.AdjustPulse(t.Z[q])
		case gates.ChannelReadout:
			p.pulse = g.AdjustPulse(t.Readout[q])
		case gates.ChannelTwoQubit:
			if q >= len(t.TwoQubit) {
				return nil, fmt.Errorf("%w: two-qubit gate on qubit %d has no partner", sequences.ErrQubitMismatch, q+1)
			}
			p.pulse = g.AdjustPulse(t.TwoQubit[q])
			if q+1 < nQubit {
				if partner := st.Gates[q+1]; partner != nil && partner.Channel() == gates.ChannelTwoQubit {
					consumed[q+1] = true
				}
			}
		}
		if err := p.pulse.Validate(); err != nil {
			return nil, fmt.Errorf("qubit %d %s: %w", q+1, g, err)
		}
		p.dur = p.pulse.TotalDuration()
		out = append(out, p)
	}
	return out, nil
}

// window returns the sample range [lo, hi) that covers [t0, t1] plus the render margin.
func window(t0, t1, dt float64, n int) (int, int) {
	lo := int(math.Floor(t0/dt)) - renderMargin
	hi := int(math.Ceil(t1/dt)) + renderMargin + 1
	return max(lo, 0), min(hi, n)
}

func render(w *Waveforms, l *Layout, cfg Config) {
	n := w.Len()
	dt := cfg.SamplePeriod()

	for _, p := range l.placements {
		lo, hi := window(p.start(), p.end(), dt, n)
		if lo >= hi {
			continue
		}
		t := pulses.Grid(hi-lo, dt, float64(lo)*dt)
		y := p.pulse.Waveform(p.center, t)

		switch p.channel {
		case gates.ChannelXY:
			target := p.qubit
			if !cfg.LocalXY {
				target = 0
			}
			addComplex(w.XYI[target][lo:hi], w.XYQ[target][lo:hi], y)
			if marked(p, cfg) {
				fill(w.Gate[p.qubit], p.start()-cfg.MarkerPadding, p.end()+cfg.MarkerPadding, dt, cfg.MarkerAmplitude)
			}
		case gates.ChannelZ, gates.ChannelTwoQubit:
			for k, v := range y {
				w.Z[p.qubit][lo+k] += real(v)
			}
		case gates.ChannelReadout:
			addComplex(w.ReadoutI[lo:hi], w.ReadoutQ[lo:hi], y)
			fill(w.ReadoutTrig, p.start(), p.start()+cfg.TrigDuration, dt, cfg.TrigAmplitude)
		}
	}
}

func addComplex(i, q []float64, y []complex128) {
	for k, v := range y {
		i[k] += real(v)
		q[k] += imag(v)
	}
}

// fill sets the samples inside [t0, t1) to level. Overlapping windows do not add up.
func fill(dst []float64, t0, t1, dt, level float64) {
	lo := max(int(math.Ceil(t0/dt-timeEps)), 0)
	hi := min(int(math.Ceil(t1/dt-timeEps)), len(dst))
	for k := lo; k < hi; k++ {
		dst[k] = level
	}
}

func condition(w *Waveforms, cfg Config, cal Calibration) error {
	dt := cfg.SamplePeriod()

	for q := 0; q < w.NQubit() && q < len(cal.IQ); q++ {
		if cal.IQ[q] == nil {
			continue
		}
		i, qq, err := cal.IQ[q].Apply(w.XYI[q], w.XYQ[q], dt)
		if err != nil {
			return fmt.Errorf("failed to predistort xy line %d: %w", q+1, err)
		}
		w.XYI[q], w.XYQ[q] = i, qq
	}

	if cal.Crosstalk != nil {
		z, err := cal.Crosstalk.Compensate(w.Z)
		if err != nil {
			return fmt.Errorf("failed to compensate crosstalk: %w", err)
		}
		w.Z = z
	}

	for q, sp := range cfg.ZPredistortion {
		if q >= w.NQubit() {
			break
		}
		z, err := sp.Predistort(w.Z[q], dt)
		if err != nil {
			return fmt.Errorf("failed to predistort z line %d: %w", q+1, err)
		}
		w.Z[q] = z
	}

	if floats.Norm(w.ReadoutI, math.Inf(1)) > 0 || floats.Norm(w.ReadoutQ, math.Inf(1)) > 0 {
		i, q, err := readout.CorrectIQ(w.ReadoutI, w.ReadoutQ, cfg.Readout.IQRatio, cfg.Readout.IQSkew)
		if err != nil {
			return fmt.Errorf("failed to correct readout IQ: %w", err)
		}
		w.ReadoutI, w.ReadoutQ = i, q
	}
	if cfg.Readout.SwapIQ {
		w.ReadoutI, w.ReadoutQ = w.ReadoutQ, w.ReadoutI
	}
	if cfg.SwapIQ {
		w.XYI, w.XYQ = w.XYQ, w.XYI
	}
	return nil
}
