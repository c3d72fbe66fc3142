package sequences

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aristath/qpulse/internal/modules/gates"
	"github.com/aristath/qpulse/internal/modules/settings"
)

// Built-in generator names.
const (
	NameRabi         = "rabi"
	NameCPMG         = "cpmg"
	NamePulseTrain   = "pulse_train"
	NameSpinLocking  = "spin_locking"
	NameRandomizedBM = "randomized_benchmarking"
)

func builtins() map[string]Generator {
	return map[string]Generator{
		NameRabi:         Rabi{},
		NameCPMG:         CPMG{},
		NamePulseTrain:   PulseTrain{},
		NameSpinLocking:  SpinLocking{},
		NameRandomizedBM: RandomizedBenchmarking{},
	}
}

// Rabi drives one pi pulse on every qubit. Sweeping the XY amplitude or width traces
// out the Rabi oscillation.
type Rabi struct{}

func (Rabi) Description() string { return "One Xp on every qubit, aligned right" }

func (Rabi) Generate(_ settings.Snapshot, seq *Sequence) error {
	return seq.AddGateToAll(gates.Xp, Align(AlignRight))
}

// CPMG builds Ramsey (n=0), echo / CPMG (n>0) and T1 (n<0) sequences.
type CPMG struct{}

func (CPMG) Description() string {
	return "X2p, n refocusing pi pulses, X2p; n=0 is Ramsey, n<0 is T1"
}

func (CPMG) Generate(p settings.Snapshot, seq *Sequence) error {
	n, err := p.Int("cpmg.n_pulse")
	if err != nil {
		return err
	}
	duration, err := p.Float("cpmg.duration")
	if err != nil {
		return err
	}
	piToQ, err := p.Bool("cpmg.pi_to_q")
	if err != nil {
		return err
	}
	edgeToEdge, err := p.Bool("cpmg.edge_to_edge")
	if err != nil {
		return err
	}
	if duration < 0 {
		return fmt.Errorf("%w: cpmg.duration must not be negative", settings.ErrInvalidValue)
	}

	var pi gates.Gate = gates.Xp
	if piToQ {
		pi = gates.Yp
	}

	// T1: excite, then wait before the readout
	if n < 0 {
		if err := seq.AddGateToAll(gates.Xp); err != nil {
			return err
		}
		return seq.AddGateToAll(gates.Delay(duration), After(0))
	}

	if edgeToEdge {
		return cpmgEdgeToEdge(seq, pi, n, duration)
	}
	return cpmgCenterToCenter(seq, pi, n, duration)
}

// cpmgEdgeToEdge spaces pulses by the gap between their edges: half spacing before the
// first and after the last refocusing pulse.
func cpmgEdgeToEdge(seq *Sequence, pi gates.Gate, n int, duration float64) error {
	if err := seq.AddGateToAll(gates.X2p); err != nil {
		return err
	}
	if n == 0 {
		return seq.AddGateToAll(gates.X2p, After(duration))
	}

	dt := duration / float64(n)
	for i := 0; i < n; i++ {
		gap := dt
		if i == 0 {
			gap = dt / 2
		}
		if err := seq.AddGateToAll(pi, After(gap)); err != nil {
			return err
		}
	}
	return seq.AddGateToAll(gates.X2p, After(dt/2))
}

// cpmgCenterToCenter places pulse centers at absolute times: X2p at 0, pi pulse i at
// (i+0.5)*duration/n and the closing X2p at duration.
func cpmgCenterToCenter(seq *Sequence, pi gates.Gate, n int, duration float64) error {
	if err := seq.AddGateToAll(gates.X2p, At(0)); err != nil {
		return err
	}
	if n > 0 {
		spacing := duration / float64(n)
		for i := 0; i < n; i++ {
			if err := seq.AddGateToAll(pi, At((float64(i)+0.5)*spacing)); err != nil {
				return err
			}
		}
	}
	return seq.AddGateToAll(gates.X2p, At(duration))
}

// PulseTrain repeats one named gate, optionally alternating its rotation sign. An empty
// train adds no gates and compiles to an all-zero waveform of minimum length.
type PulseTrain struct{}

func (PulseTrain) Description() string {
	return "n repetitions of a named gate, optionally with alternating sign"
}

func (PulseTrain) Generate(p settings.Snapshot, seq *Sequence) error {
	n, err := p.Int("pulse_train.n_pulse")
	if err != nil {
		return err
	}
	name, err := p.String("pulse_train.gate")
	if err != nil {
		return err
	}
	alternate, err := p.Bool("pulse_train.alternate")
	if err != nil {
		return err
	}
	g, err := gates.ByName(name)
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%w: pulse_train.n_pulse must not be negative, got %d", settings.ErrInvalidValue, n)
	}

	for i := 0; i < n; i++ {
		gi := g
		if alternate && i%2 == 1 {
			gi = gates.Inverted(g)
		}
		if err := seq.AddGateToAll(gi); err != nil {
			return err
		}
	}
	return nil
}

// SpinLocking prepares an equator state, locks it with a long drive along Y and maps it
// back.
type SpinLocking struct{}

func (SpinLocking) Description() string {
	return "X2p, Y-phase drive of given amplitude and duration, X2p"
}

func (SpinLocking) Generate(p settings.Snapshot, seq *Sequence) error {
	amp, err := p.Float("spin_locking.amplitude")
	if err != nil {
		return err
	}
	duration, err := p.Float("spin_locking.duration")
	if err != nil {
		return err
	}
	if duration < 0 {
		return fmt.Errorf("%w: spin_locking.duration must not be negative", settings.ErrInvalidValue)
	}

	if err := seq.AddGateToAll(gates.X2p); err != nil {
		return err
	}
	if err := seq.AddGateToAll(gates.Rabi{Amplitude: amp, Plateau: duration, Phase: math.Pi / 2}); err != nil {
		return err
	}
	return seq.AddGateToAll(gates.X2p)
}

// RandomizedBenchmarking draws random single-qubit Cliffords and appends the recovery
// Clifford so the ideal net operation is the identity.
type RandomizedBenchmarking struct{}

func (RandomizedBenchmarking) Description() string {
	return "Seeded random Clifford sequence with optional interleaved gate and recovery"
}

func (RandomizedBenchmarking) Generate(p settings.Snapshot, seq *Sequence) error {
	length, err := p.Int("rb.length")
	if err != nil {
		return err
	}
	seed, err := p.Int("rb.seed")
	if err != nil {
		return err
	}
	interleavedName, err := p.String("rb.interleaved_gate")
	if err != nil {
		return err
	}
	if length < 0 {
		return fmt.Errorf("%w: rb.length must not be negative, got %d", settings.ErrInvalidValue, length)
	}

	var interleaved gates.Gate
	if interleavedName != "" {
		interleaved, err = gates.ByName(interleavedName)
		if err != nil {
			return err
		}
		if _, err := gates.UnitaryOf(interleaved); err != nil {
			return fmt.Errorf("%w: rb.interleaved_gate: %v", settings.ErrInvalidValue, err)
		}
	}

	seqGates, err := RandomCliffordSequence(length, uint64(seed), interleaved)
	if err != nil {
		return err
	}
	for _, g := range seqGates {
		if err := seq.AddGateToAll(g); err != nil {
			return err
		}
	}
	return nil
}

// RandomCliffordSequence returns the flattened gates of length random Cliffords (each
// optionally followed by interleaved) and the recovery Clifford.
func RandomCliffordSequence(length int, seed uint64, interleaved gates.Gate) ([]gates.Gate, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var out []gates.Gate
	for i := 0; i < length; i++ {
		out = append(out, gates.Cliffords[rng.IntN(len(gates.Cliffords))]...)
		if interleaved != nil {
			out = append(out, interleaved)
		}
	}

	u, err := gates.SequenceUnitary(out)
	if err != nil {
		return nil, err
	}
	idx, err := gates.Recovery(u)
	if err != nil {
		return nil, err
	}
	return append(out, gates.Cliffords[idx]...), nil
}
