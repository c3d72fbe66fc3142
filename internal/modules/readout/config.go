package readout

import (
	"fmt"
	"math"

	"github.com/aristath/qpulse/internal/modules/settings"
)

// Config holds the readout settings of an n-qubit register.
type Config struct {
	Frequencies []float64 // per qubit (Hz)
	Offset      float64   // added to every frequency (Hz)
	Skip        float64
	Length      float64
	Segments    int
	UseRef      bool
	IQRatio     float64
	IQSkew      float64 // rad
	SwapIQ      bool    // swap the generated readout I and Q outputs
}

// ConfigFromSnapshot reads the readout.* settings for nQubit qubits.
func ConfigFromSnapshot(p settings.Snapshot, nQubit int) (Config, error) {
	var cfg Config
	var err error

	cfg.Frequencies = make([]float64, nQubit)
	for i := range cfg.Frequencies {
		if cfg.Frequencies[i], err = p.FloatFor("readout.frequency", i+1); err != nil {
			return Config{}, err
		}
	}
	if cfg.Offset, err = p.Float("readout.offset"); err != nil {
		return Config{}, err
	}
	if cfg.Skip, err = p.Float("readout.skip"); err != nil {
		return Config{}, err
	}
	if cfg.Length, err = p.Float("readout.length"); err != nil {
		return Config{}, err
	}
	if cfg.Segments, err = p.Int("readout.segments"); err != nil {
		return Config{}, err
	}
	if cfg.UseRef, err = p.Bool("readout.use_ref"); err != nil {
		return Config{}, err
	}
	if cfg.IQRatio, err = p.Float("readout.iq_ratio"); err != nil {
		return Config{}, err
	}
	if cfg.IQSkew, err = p.Float("readout.iq_skew"); err != nil {
		return Config{}, err
	}
	if cfg.SwapIQ, err = p.Bool("readout.i_q_swap"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Params returns the demodulation parameters of one 0-based qubit.
func (c Config) Params(qubit int) Params {
	return Params{
		Frequency: c.Frequencies[qubit] + c.Offset,
		Skip:      c.Skip,
		Length:    c.Length,
		Segments:  c.Segments,
	}
}

// CorrectIQ pre-compensates the gain ratio and phase skew of an IQ mixer:
// I' = I, Q' = ratio*(Q*cos(skew) + I*sin(skew)). Ratio 1 and skew 0 leave the pair
// unchanged. The inputs are not modified.
func CorrectIQ(i, q []float64, ratio, skew float64) ([]float64, []float64, error) {
	if len(i) != len(q) {
		return nil, nil, fmt.Errorf("%w: I has %d samples, Q has %d", ErrShapeMismatch, len(i), len(q))
	}
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return nil, nil, fmt.Errorf("%w: IQ ratio must be positive, got %g", ErrInvalidParameter, ratio)
	}
	outI := append([]float64(nil), i...)
	outQ := make([]float64, len(q))
	c, s := math.Cos(skew), math.Sin(skew)
	for k := range q {
		outQ[k] = ratio * (q[k]*c + i[k]*s)
	}
	return outI, outQ, nil
}
