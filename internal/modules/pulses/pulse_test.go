package pulses

import (
	"fmt"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1e-9

func allShapes() []Pulse {
	var out []Pulse
	for _, shape := range []Shape{Gaussian, Square, Ramp, Cosine} {
		for _, plateau := range []float64{0, 15e-9} {
			p := New(shape, true)
			p.Width = 12e-9
			p.Plateau = plateau
			p.Amplitude = 0.8
			p.Frequency = 100e6
			p.Phase = 0.3
			p.UseDrag = true
			p.DragCoefficient = 0.5e-9
			p.DragDetuning = 5e6
			out = append(out, p)
		}
	}
	return out
}

func TestEnvelope_ZeroOutsideDuration(t *testing.T) {
	grid := Grid(400, dt, -200e-9)
	t0 := 3e-9

	for _, p := range allShapes() {
		t.Run(p.Shape.String(), func(t *testing.T) {
			d := p.TotalDuration()
			require.Greater(t, d, 0.0)

			env := p.Envelope(t0, grid)
			wave := p.Waveform(t0, grid)
			require.Len(t, env, len(grid))
			require.Len(t, wave, len(grid))

			// grid rounding may put an edge sample a hair outside the window
			tol := dt * 1e-6
			nonZero := 0
			for i, ti := range grid {
				if ti < t0-d/2-tol || ti > t0+d/2+tol {
					assert.Equal(t, 0.0, env[i], "envelope at t=%g", ti)
					assert.Equal(t, complex(0, 0), wave[i], "waveform at t=%g", ti)
				} else if env[i] != 0 {
					nonZero++
				}
			}
			assert.Greater(t, nonZero, 0)
		})
	}
}

func TestTotalDuration(t *testing.T) {
	testCases := []struct {
		name     string
		shape    Shape
		expected float64
	}{
		{"square", Square, 10e-9 + 4e-9},
		{"cosine", Cosine, 10e-9 + 4e-9},
		{"ramp", Ramp, 20e-9 + 4e-9},
		{"gaussian", Gaussian, 2*DefaultTruncationRange*10e-9/math.Sqrt(2*math.Pi) + 4e-9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(tc.shape, false)
			p.Width = 10e-9
			p.Plateau = 4e-9
			assert.InDelta(t, tc.expected, p.TotalDuration(), 1e-18)
		})
	}
}

func TestSquare_IntegratesToAreaWithinOneSample(t *testing.T) {
	p := New(Square, false)
	p.Amplitude = 0.7
	p.Width = 12e-9
	p.Plateau = 8e-9

	grid := Grid(200, dt, -100e-9)
	env := p.Envelope(0, grid)

	area := 0.0
	for _, v := range env {
		area += v * dt
	}
	assert.InDelta(t, p.Amplitude*(p.Width+p.Plateau), area, p.Amplitude*dt)
}

func TestSquare_SampleCountIndependentOfCenter(t *testing.T) {
	testCases := []struct {
		name    string
		width   float64
		plateau float64
	}{
		{"10 ns", 10e-9, 0},
		{"7 ns with plateau", 4e-9, 3e-9},
		{"1 ns", 1e-9, 0},
	}
	centers := []float64{20e-9, 25e-9, 30e-9, 40e-9, 55e-9, 33.5e-9, 47.3e-9}

	grid := Grid(100, dt, 0)
	for _, tc := range testCases {
		p := New(Square, false)
		p.Amplitude = 1
		p.Width = tc.width
		p.Plateau = tc.plateau
		want := int(math.Round((tc.width + tc.plateau) / dt))

		for _, t0 := range centers {
			t.Run(fmt.Sprintf("%s at %g", tc.name, t0), func(t *testing.T) {
				env := p.Envelope(t0, grid)
				nonZero := 0
				for _, v := range env {
					if v != 0 {
						nonZero++
					}
				}
				assert.Equal(t, want, nonZero)
			})
		}
	}
}

func TestGaussian_PeakAndPlateau(t *testing.T) {
	p := New(Gaussian, false)
	p.Amplitude = 0.4
	p.Width = 10e-9
	p.Plateau = 10e-9

	grid := Grid(101, dt, -50e-9)
	env := p.Envelope(0, grid)

	// plateau samples sit at full amplitude
	for i, ti := range grid {
		if ti >= -5e-9 && ti < 5e-9 {
			assert.InDelta(t, 0.4, env[i], 1e-12)
		}
	}
	assert.Less(t, env[0], 0.4)
}

func TestGaussian_StartAtZero(t *testing.T) {
	p := New(Gaussian, false)
	p.Amplitude = 1
	p.Width = 20e-9
	p.StartAtZero = true

	d := p.TotalDuration()
	grid := Grid(int(d/dt)+1, dt, -d/2)
	env := p.Envelope(0, grid)

	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range env {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	assert.InDelta(t, 0.0, minV, 1e-12)
	assert.InDelta(t, 1.0, maxV, 1e-12)
}

func TestRamp_ClippedToAmplitude(t *testing.T) {
	p := New(Ramp, false)
	p.Amplitude = 0.5
	p.Width = 10e-9
	p.Plateau = 10e-9

	grid := Grid(100, dt, -50e-9)
	for _, v := range p.Envelope(0, grid) {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 0.5+1e-15)
	}
}

func TestCosine_FlatTop(t *testing.T) {
	p := New(Cosine, false)
	p.Amplitude = 1
	p.Width = 8e-9
	p.Plateau = 6e-9

	env := p.Envelope(0, []float64{-7e-9, -3e-9, 0, 3e-9, 7e-9})
	assert.InDelta(t, 0.0, env[0], 1e-12)
	assert.InDelta(t, 1.0, env[1], 1e-12)
	assert.InDelta(t, 1.0, env[2], 1e-12)
	assert.InDelta(t, 1.0, env[3], 1e-12)
	assert.InDelta(t, 0.0, env[4], 1e-12)
}

func TestWaveform_RealPulseHasNoQuadrature(t *testing.T) {
	p := New(Gaussian, false)
	p.Frequency = 50e6
	p.Phase = 1.0

	for _, v := range p.Waveform(0, Grid(60, dt, -30e-9)) {
		assert.Equal(t, 0.0, imag(v))
	}
}

func TestWaveform_PhaseRotatesBaseband(t *testing.T) {
	p := New(Square, true)
	p.Amplitude = 1
	p.Width = 20e-9
	p.Phase = math.Pi / 2

	wave := p.Waveform(0, []float64{0})
	// zero SSB frequency: I = cos(-phase), Q = sin(-phase)
	assert.InDelta(t, 0.0, real(wave[0]), 1e-12)
	assert.InDelta(t, -1.0, imag(wave[0]), 1e-12)
}

func TestWaveform_DragAddsQuadrature(t *testing.T) {
	p := New(Gaussian, true)
	p.Width = 10e-9
	grid := Grid(80, dt, -40e-9)

	plain := p.Waveform(0, grid)
	p.UseDrag = true
	p.DragCoefficient = 1e-9
	drag := p.Waveform(0, grid)

	diff := 0.0
	for i := range plain {
		assert.InDelta(t, real(plain[i]), real(drag[i]), 1e-12)
		diff += math.Abs(imag(drag[i]) - imag(plain[i]))
	}
	assert.Greater(t, diff, 0.0)
}

func TestWaveform_Deterministic(t *testing.T) {
	grid := Grid(256, dt, -128e-9)
	for _, p := range allShapes() {
		a := p.Waveform(1e-9, grid)
		b := p.Waveform(1e-9, grid)
		assert.Equal(t, a, b)
	}
}

func TestWaveform_SSBMagnitudeFollowsEnvelope(t *testing.T) {
	p := New(Square, true)
	p.Amplitude = 0.3
	p.Width = 30e-9
	p.Frequency = 120e6

	grid := Grid(60, dt, -30e-9)
	env := p.Envelope(0, grid)
	wave := p.Waveform(0, grid)
	for i := range wave {
		assert.InDelta(t, math.Abs(env[i]), cmplx.Abs(wave[i]), 1e-12)
	}
}

func TestParseShape(t *testing.T) {
	shape, err := ParseShape("Cosine")
	require.NoError(t, err)
	assert.Equal(t, Cosine, shape)

	_, err = ParseShape("triangle")
	assert.ErrorIs(t, err, ErrInvalidPulse)
}

func TestValidate(t *testing.T) {
	p := New(Gaussian, true)
	assert.NoError(t, p.Validate())

	p.Width = -1
	assert.ErrorIs(t, p.Validate(), ErrInvalidPulse)

	p = New(Gaussian, true)
	p.TruncationRange = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidPulse)
}
