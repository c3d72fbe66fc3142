package waveforms

import (
	"fmt"
	"time"

	"github.com/aristath/qpulse/internal/modules/sequences"
)

// Waveforms is the sampled output of one compiled sequence.
// Per-qubit slices are indexed by 0-based qubit; every channel has the same length.
type Waveforms struct {
	SampleRate  float64     `json:"sample_rate" msgpack:"sample_rate"`
	XYI         [][]float64 `json:"xy_i" msgpack:"xy_i"`
	XYQ         [][]float64 `json:"xy_q" msgpack:"xy_q"`
	Z           [][]float64 `json:"z" msgpack:"z"`
	Gate        [][]float64 `json:"gate" msgpack:"gate"`
	ReadoutTrig []float64   `json:"readout_trig" msgpack:"readout_trig"`
	ReadoutI    []float64   `json:"readout_i" msgpack:"readout_i"`
	ReadoutQ    []float64   `json:"readout_q" msgpack:"readout_q"`
}

func newWaveforms(nQubit, n int, sampleRate float64) *Waveforms {
	alloc := func() [][]float64 {
		out := make([][]float64, nQubit)
		for q := range out {
			out[q] = make([]float64, n)
		}
		return out
	}
	return &Waveforms{
		SampleRate:  sampleRate,
		XYI:         alloc(),
		XYQ:         alloc(),
		Z:           alloc(),
		Gate:        alloc(),
		ReadoutTrig: make([]float64, n),
		ReadoutI:    make([]float64, n),
		ReadoutQ:    make([]float64, n),
	}
}

// Len returns the number of samples per channel.
func (w *Waveforms) Len() int {
	return len(w.ReadoutTrig)
}

// NQubit returns the number of per-qubit channel groups.
func (w *Waveforms) NQubit() int {
	return len(w.Z)
}

// ChannelNames returns the channel names in output order.
func (w *Waveforms) ChannelNames() []string {
	names := make([]string, 0, 4*w.NQubit()+3)
	for _, prefix := range []string{"xy_i", "xy_q", "z", "gate"} {
		for q := 1; q <= w.NQubit(); q++ {
			names = append(names, fmt.Sprintf("%s_%d", prefix, q))
		}
	}
	return append(names, "readout_trig", "readout_i", "readout_q")
}

// Channels returns every channel keyed by its name (xy_i_1, z_2, readout_q, ...).
// The slices are shared with w.
func (w *Waveforms) Channels() map[string][]float64 {
	out := make(map[string][]float64, 4*w.NQubit()+3)
	for q := 0; q < w.NQubit(); q++ {
		out[fmt.Sprintf("xy_i_%d", q+1)] = w.XYI[q]
		out[fmt.Sprintf("xy_q_%d", q+1)] = w.XYQ[q]
		out[fmt.Sprintf("z_%d", q+1)] = w.Z[q]
		out[fmt.Sprintf("gate_%d", q+1)] = w.Gate[q]
	}
	out["readout_trig"] = w.ReadoutTrig
	out["readout_i"] = w.ReadoutI
	out["readout_q"] = w.ReadoutQ
	return out
}

// Result is a compiled sequence as returned by the service and stored in the cache.
type Result struct {
	CompileID  string                  `json:"compile_id" msgpack:"compile_id"`
	ConfigHash string                  `json:"config_hash" msgpack:"config_hash"`
	Sequence   string                  `json:"sequence" msgpack:"sequence"`
	NQubit     int                     `json:"n_qubit" msgpack:"n_qubit"`
	Samples    int                     `json:"samples" msgpack:"samples"`
	Duration   float64                 `json:"duration" msgpack:"duration"`
	Steps      []sequences.StepSummary `json:"steps" msgpack:"steps"`
	Waveforms  *Waveforms              `json:"waveforms" msgpack:"waveforms"`
	Cached     bool                    `json:"cached" msgpack:"-"`
	CompiledAt time.Time               `json:"compiled_at" msgpack:"compiled_at"`
}

// Stats describes the in-memory cache.
type Stats struct {
	Entries     int    `json:"entries"`
	Hits        int64  `json:"hits"`
	Misses      int64  `json:"misses"`
	StoreHits   int64  `json:"store_hits"`
	Invalidated int64  `json:"invalidated"`
	LastHash    string `json:"last_hash,omitempty"`
}
