package waveforms

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aristath/qpulse/internal/modules/conditioning"
	"github.com/aristath/qpulse/internal/modules/readout"
	"github.com/aristath/qpulse/internal/modules/settings"
)

// Config holds the compiler settings read from one snapshot.
type Config struct {
	NQubit     int
	SampleRate float64

	Spacing        float64
	Padding        float64
	MinPoints      int
	NPoints        int
	TrimToSequence bool
	AlignToEnd     bool
	LocalXY        bool
	SwapIQ         bool

	MarkerEnabled   bool
	MarkerPadding   float64
	MarkerAmplitude float64

	TrigAmplitude float64
	TrigDuration  float64
	Readout       readout.Config

	// ZPredistortion is nil when single-pole predistortion is disabled.
	ZPredistortion []conditioning.SinglePole
}

// ConfigFromSnapshot reads and validates the compiler settings.
func ConfigFromSnapshot(p settings.Snapshot) (Config, error) {
	var cfg Config
	var err error

	if cfg.NQubit, err = p.Int("n_qubit"); err != nil {
		return Config{}, err
	}
	if cfg.SampleRate, err = p.Float("sample_rate"); err != nil {
		return Config{}, err
	}
	if !(cfg.SampleRate > 0) {
		return Config{}, fmt.Errorf("%w: sample_rate must be positive, got %g", settings.ErrInvalidValue, cfg.SampleRate)
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"spacing", &cfg.Spacing},
		{"padding", &cfg.Padding},
		{"marker.padding", &cfg.MarkerPadding},
		{"marker.amplitude", &cfg.MarkerAmplitude},
		{"readout.trig_amplitude", &cfg.TrigAmplitude},
		{"readout.trig_duration", &cfg.TrigDuration},
	}
	for _, f := range floats {
		if *f.dst, err = p.Float(f.key); err != nil {
			return Config{}, err
		}
	}
	if cfg.Padding < 0 || cfg.TrigDuration < 0 {
		return Config{}, fmt.Errorf("%w: padding and trigger duration must not be negative", settings.ErrInvalidValue)
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{"trim_to_sequence", &cfg.TrimToSequence},
		{"align_to_end", &cfg.AlignToEnd},
		{"local_xy", &cfg.LocalXY},
		{"swap_iq", &cfg.SwapIQ},
		{"marker.enabled", &cfg.MarkerEnabled},
	}
	for _, f := range flags {
		if *f.dst, err = p.Bool(f.key); err != nil {
			return Config{}, err
		}
	}

	if cfg.MinPoints, err = p.Int("min_points"); err != nil {
		return Config{}, err
	}
	if cfg.NPoints, err = p.Int("n_points"); err != nil {
		return Config{}, err
	}
	if cfg.MinPoints < 1 || cfg.NPoints < 1 {
		return Config{}, fmt.Errorf("%w: min_points and n_points must be positive", settings.ErrInvalidValue)
	}

	if cfg.Readout, err = readout.ConfigFromSnapshot(p, cfg.NQubit); err != nil {
		return Config{}, err
	}

	zEnabled, err := p.Bool("predistortion.z_enabled")
	if err != nil {
		return Config{}, err
	}
	if zEnabled {
		cfg.ZPredistortion = make([]conditioning.SinglePole, cfg.NQubit)
		for q := range cfg.ZPredistortion {
			sp := &cfg.ZPredistortion[q]
			if sp.Amplitude, err = p.FloatFor("predistortion.z_amplitude", q+1); err != nil {
				return Config{}, err
			}
			if sp.Tau, err = p.FloatFor("predistortion.z_tau", q+1); err != nil {
				return Config{}, err
			}
			if err := sp.Validate(); err != nil {
				return Config{}, fmt.Errorf("%w: qubit %d: %v", settings.ErrInvalidValue, q+1, err)
			}
		}
	}
	return cfg, nil
}

// Nyquist returns half the sample rate.
func (c Config) Nyquist() float64 {
	return c.SampleRate / 2
}

// SamplePeriod returns 1/sample_rate.
func (c Config) SamplePeriod() float64 {
	return 1 / c.SampleRate
}

// ParseCoupling converts a comma-separated list of 1-based qubits into 0-based indices.
// An empty list returns nil, meaning row i maps to qubit i.
func ParseCoupling(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		q, err := strconv.Atoi(part)
		if err != nil || q < 1 {
			return nil, fmt.Errorf("%w: crosstalk.coupling entry %q is not a 1-based qubit", settings.ErrInvalidValue, part)
		}
		out = append(out, q-1)
	}
	return out, nil
}

// checkBand rejects frequencies the AWG cannot synthesize.
func checkBand(name string, f, nyquist float64) error {
	if math.Abs(f) > nyquist {
		return fmt.Errorf("%w: %s = %g Hz exceeds the Nyquist frequency %g Hz", ErrFrequencyOutOfBand, name, f, nyquist)
	}
	return nil
}
