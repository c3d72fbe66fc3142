package sequences

import (
	"fmt"

	"github.com/aristath/qpulse/internal/modules/gates"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/rs/zerolog"
)

// Service builds gate sequences from a settings snapshot.
// It resolves the generator named by the "sequence" setting, prepares an empty sequence
// with templates and first delay, runs the generator and appends the optional readout.
type Service struct {
	registry *Registry
	log      zerolog.Logger
}

// NewService creates a sequences service over registry.
func NewService(registry *Registry, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		log:      log.With().Str("module", "sequences").Logger(),
	}
}

// Registry returns the generator registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Prepare returns an empty sequence configured from p: register size, alignment,
// first delay and pulse templates.
func (s *Service) Prepare(p settings.Snapshot) (*Sequence, error) {
	nQubit, err := p.Int("n_qubit")
	if err != nil {
		return nil, err
	}
	maxQubits, err := p.Int("max_qubits")
	if err != nil {
		return nil, err
	}
	if nQubit < 1 || nQubit > maxQubits {
		return nil, fmt.Errorf("%w: n_qubit must be in [1, %d], got %d", settings.ErrInvalidValue, maxQubits, nQubit)
	}

	alignName, err := p.String("alignment")
	if err != nil {
		return nil, err
	}
	alignment, err := ParseAlignment(alignName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", settings.ErrInvalidValue, err)
	}

	firstDelay, err := p.Float("first_delay")
	if err != nil {
		return nil, err
	}

	seq, err := New(nQubit, alignment)
	if err != nil {
		return nil, err
	}
	seq.SetFirstDelay(firstDelay)

	templates, err := TemplatesFromSnapshot(p, nQubit)
	if err != nil {
		return nil, err
	}
	if err := seq.SetTemplates(templates); err != nil {
		return nil, err
	}
	return seq, nil
}

// Build runs the generator named by the "sequence" setting.
func (s *Service) Build(p settings.Snapshot) (*Sequence, error) {
	name, err := p.String("sequence")
	if err != nil {
		return nil, err
	}
	gen, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	seq, err := s.Prepare(p)
	if err != nil {
		return nil, err
	}
	if err := gen.Generate(p, seq); err != nil {
		return nil, fmt.Errorf("failed to generate %s sequence: %w", name, err)
	}

	if err := s.appendReadout(p, seq); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("sequence", name).
		Int("qubits", seq.NQubit()).
		Int("steps", seq.Len()).
		Msg("Sequence built")
	return seq, nil
}

func (s *Service) appendReadout(p settings.Snapshot, seq *Sequence) error {
	generate, err := p.Bool("readout.generate")
	if err != nil || !generate {
		return err
	}
	axisName, err := p.String("readout.axis")
	if err != nil {
		return err
	}
	axis, err := gates.ParseAxis(axisName)
	if err != nil {
		return err
	}
	sign, err := p.Int("readout.sign")
	if err != nil {
		return err
	}
	predelay, err := p.Float("readout.predelay")
	if err != nil {
		return err
	}
	if err := seq.AddMeasurement(axis, sign, predelay); err != nil {
		return fmt.Errorf("failed to append readout: %w", err)
	}
	return nil
}

// StepSummary describes one step for API responses.
type StepSummary struct {
	Index int      `json:"index"`
	Gates []string `json:"gates"`
	T0    *float64 `json:"t0,omitempty"`
	DT    *float64 `json:"dt,omitempty"`
	Align string   `json:"align"`
}

// Summarize lists the steps of seq with gate names, "-" marking idle qubits.
func Summarize(seq *Sequence) []StepSummary {
	steps := seq.Steps()
	out := make([]StepSummary, len(steps))
	for i, st := range steps {
		names := make([]string, len(st.Gates))
		for q, g := range st.Gates {
			if g == nil {
				names[q] = "-"
				continue
			}
			names[q] = g.String()
		}
		out[i] = StepSummary{Index: i, Gates: names, T0: st.T0, DT: st.DT, Align: st.Align.String()}
	}
	return out
}
