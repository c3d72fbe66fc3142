package readout

import (
	"fmt"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/rs/zerolog"
)

// Service demodulates frequency-multiplexed readout traces, one tone per qubit.
type Service struct {
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a readout service. eventManager may be nil.
func NewService(eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		eventManager: eventManager,
		log:          log.With().Str("service", "readout").Logger(),
	}
}

// Demodulate extracts the complex amplitude of every qubit's tone from trace.
// The result is indexed by 0-based qubit, then segment. ref is used only when
// readout.use_ref is enabled.
func (s *Service) Demodulate(trace Trace, ref *Trace, p settings.Snapshot) ([][]complex128, error) {
	nQubit, err := p.Int("n_qubit")
	if err != nil {
		return nil, err
	}
	if nQubit < 1 {
		return nil, fmt.Errorf("%w: n_qubit must be positive, got %d", settings.ErrInvalidValue, nQubit)
	}
	cfg, err := ConfigFromSnapshot(p, nQubit)
	if err != nil {
		return nil, err
	}

	if !cfg.UseRef {
		ref = nil
	}

	out := make([][]complex128, nQubit)
	for q := 0; q < nQubit; q++ {
		values, err := Demodulate(trace, cfg.Params(q), ref)
		if err != nil {
			return nil, fmt.Errorf("failed to demodulate qubit %d: %w", q+1, err)
		}
		out[q] = values
	}

	s.log.Debug().
		Int("qubits", nQubit).
		Int("segments", cfg.Segments).
		Int("samples", trace.Len()).
		Bool("reference", ref != nil).
		Msg("Traces demodulated")

	if s.eventManager != nil {
		s.eventManager.EmitTyped(events.TracesDemodulated, "readout", &events.TracesDemodulatedData{
			Qubits:   nQubit,
			Segments: cfg.Segments,
		})
	}
	return out, nil
}
