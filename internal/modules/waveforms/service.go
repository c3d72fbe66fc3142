package waveforms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/conditioning"
	"github.com/aristath/qpulse/internal/modules/sequences"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/aristath/qpulse/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxCacheEntries bounds the in-memory cache; the oldest entry is evicted first.
const maxCacheEntries = 32

// CalibrationProvider turns calibration file references into conditioning objects.
type CalibrationProvider interface {
	Predistorter(ctx context.Context, path string, tolerance float64) (*conditioning.IQPredistorter, error)
	Crosstalk(ctx context.Context, path string, coupling []int) (*conditioning.Crosstalk, error)
}

// Service compiles the sequence described by a settings snapshot into waveforms.
// Results are cached by snapshot hash until the configuration changes.
type Service struct {
	mu sync.Mutex

	sequences    *sequences.Service
	calibration  CalibrationProvider
	eventManager *events.Manager
	log          zerolog.Logger

	store    *Store
	storeTTL time.Duration

	cache map[string]*Result
	order []string
	stats Stats
}

// NewService creates a waveform service. calibration and eventManager may be nil; a nil
// calibration provider rejects snapshots that reference calibration files.
func NewService(seqService *sequences.Service, calibration CalibrationProvider, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		sequences:    seqService,
		calibration:  calibration,
		eventManager: eventManager,
		log:          log.With().Str("service", "waveforms").Logger(),
		cache:        make(map[string]*Result),
	}
}

// SetStore enables the persistent cache.
func (s *Service) SetStore(store *Store, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	s.storeTTL = ttl
}

// Sequences returns the sequence service used to build gate sequences.
func (s *Service) Sequences() *sequences.Service {
	return s.sequences
}

// Compile builds and renders the sequence described by p.
func (s *Service) Compile(ctx context.Context, p settings.Snapshot) (*Result, error) {
	key := p.Hash()

	s.mu.Lock()
	result, cached, err := s.compileLocked(ctx, key, p)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if s.eventManager != nil {
		s.eventManager.EmitTyped(events.WaveformsCompiled, "waveforms", &events.WaveformsCompiledData{
			CompileID:  result.CompileID,
			ConfigHash: result.ConfigHash,
			Sequence:   result.Sequence,
			Qubits:     result.NQubit,
			Steps:      len(result.Steps),
			Samples:    result.Samples,
			Cached:     cached,
		})
	}
	return result, nil
}

func (s *Service) compileLocked(ctx context.Context, key string, p settings.Snapshot) (*Result, bool, error) {
	s.stats.LastHash = key

	if r, ok := s.cache[key]; ok {
		s.stats.Hits++
		s.log.Debug().Str("hash", key).Msg("Compiled waveforms served from memory")
		return withCached(r), true, nil
	}

	if s.store != nil {
		r, err := s.store.Get(key)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to read compiled waveform store")
		} else if r != nil {
			s.stats.StoreHits++
			s.remember(key, r)
			s.log.Debug().Str("hash", key).Msg("Compiled waveforms served from store")
			return withCached(r), true, nil
		}
	}

	s.stats.Misses++
	r, err := s.build(ctx, key, p)
	if err != nil {
		return nil, false, err
	}
	s.remember(key, r)

	if s.store != nil {
		if err := s.store.Put(key, r, s.storeTTL); err != nil {
			s.log.Warn().Err(err).Msg("Failed to persist compiled waveforms")
		}
	}
	return r, false, nil
}

func (s *Service) build(ctx context.Context, key string, p settings.Snapshot) (*Result, error) {
	timer := utils.NewTimer("compile_waveforms", s.log)

	seq, err := s.sequences.Build(p)
	if err != nil {
		return nil, err
	}
	cfg, err := ConfigFromSnapshot(p)
	if err != nil {
		return nil, err
	}
	cal, err := s.loadCalibration(ctx, p, cfg.NQubit)
	if err != nil {
		return nil, err
	}

	w, err := Compile(seq, cfg, cal)
	if err != nil {
		return nil, fmt.Errorf("failed to compile waveforms: %w", err)
	}
	seq.Freeze()

	name, _ := p.String("sequence")
	r := &Result{
		CompileID:  uuid.New().String(),
		ConfigHash: key,
		Sequence:   name,
		NQubit:     cfg.NQubit,
		Samples:    w.Len(),
		Duration:   float64(w.Len()) / cfg.SampleRate,
		Steps:      sequences.Summarize(seq),
		Waveforms:  w,
		CompiledAt: time.Now(),
	}

	s.log.Info().
		Str("compile_id", r.CompileID).
		Str("sequence", name).
		Int("qubits", cfg.NQubit).
		Int("steps", seq.Len()).
		Int("samples", r.Samples).
		Dur("elapsed", timer.Stop()).
		Msg("Waveforms compiled")
	return r, nil
}

// loadCalibration resolves the calibration files referenced by p. Empty paths disable
// the corresponding stage.
func (s *Service) loadCalibration(ctx context.Context, p settings.Snapshot, nQubit int) (Calibration, error) {
	var cal Calibration

	xyEnabled, err := p.Bool("predistortion.xy_enabled")
	if err != nil {
		return cal, err
	}
	if xyEnabled {
		tolerance, err := p.Float("predistortion.tolerance")
		if err != nil {
			return cal, err
		}
		cal.IQ = make([]*conditioning.IQPredistorter, nQubit)
		for q := 0; q < nQubit; q++ {
			path, err := p.StringFor("predistortion.transfer_function", q+1)
			if err != nil {
				return cal, err
			}
			if path == "" {
				continue
			}
			if s.calibration == nil {
				return cal, fmt.Errorf("%w: no calibration source configured for %s", settings.ErrInvalidValue, path)
			}
			if cal.IQ[q], err = s.calibration.Predistorter(ctx, path, tolerance); err != nil {
				return cal, fmt.Errorf("failed to load transfer function for qubit %d: %w", q+1, err)
			}
		}
	}

	xtEnabled, err := p.Bool("crosstalk.enabled")
	if err != nil {
		return cal, err
	}
	if !xtEnabled {
		return cal, nil
	}
	path, err := p.String("crosstalk.matrix_path")
	if err != nil || path == "" {
		return cal, err
	}
	couplingSpec, err := p.String("crosstalk.coupling")
	if err != nil {
		return cal, err
	}
	coupling, err := ParseCoupling(couplingSpec)
	if err != nil {
		return cal, err
	}
	for _, q := range coupling {
		if q >= nQubit {
			return cal, fmt.Errorf("%w: crosstalk.coupling names qubit %d, register has %d", settings.ErrInvalidValue, q+1, nQubit)
		}
	}
	if s.calibration == nil {
		return cal, fmt.Errorf("%w: no calibration source configured for %s", settings.ErrInvalidValue, path)
	}
	if cal.Crosstalk, err = s.calibration.Crosstalk(ctx, path, coupling); err != nil {
		return cal, fmt.Errorf("failed to load crosstalk matrix: %w", err)
	}
	return cal, nil
}

func (s *Service) remember(key string, r *Result) {
	if _, ok := s.cache[key]; !ok {
		s.order = append(s.order, key)
	}
	s.cache[key] = r
	for len(s.order) > maxCacheEntries {
		delete(s.cache, s.order[0])
		s.order = s.order[1:]
	}
}

func withCached(r *Result) *Result {
	out := *r
	out.Cached = true
	return &out
}

// Invalidate drops every cached result, in memory and in the store.
func (s *Service) Invalidate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := len(s.cache)
	s.cache = make(map[string]*Result)
	s.order = nil
	s.stats.Invalidated++

	var stored int64
	if s.store != nil {
		var err error
		if stored, err = s.store.Clear(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to clear compiled waveform store")
		}
	}

	s.log.Info().
		Str("reason", reason).
		Int("memory_entries", dropped).
		Int64("stored_entries", stored).
		Msg("Compiled waveform cache invalidated")
}

// Stats returns the cache counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Entries = len(s.cache)
	return st
}

// Subscribe invalidates the cache on every ConfigurationChanged event on bus.
// The returned function removes the subscription.
func (s *Service) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(events.ConfigurationChanged, func(e *events.Event) {
		reason := "configuration changed"
		if d, ok := e.GetTypedData().(*events.ConfigurationChangedData); ok && d.Reason != "" {
			reason = d.Reason
		}
		s.Invalidate(reason)
	})
}
