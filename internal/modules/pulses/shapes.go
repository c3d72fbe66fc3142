package pulses

import "math"

// Shape evaluators return unit-amplitude values; Envelope applies masking and scaling.

func (p Pulse) gaussian(t0 float64, t []float64) []float64 {
	values := make([]float64, len(t))
	std := p.StdDev()
	twoVar := 2 * std * std

	if p.Plateau == 0 {
		if std > 0 {
			for i, ti := range t {
				d := ti - t0
				values[i] = math.Exp(-d * d / twoVar)
			}
		}
		return values
	}

	rise := t0 - p.Plateau/2
	fall := t0 + p.Plateau/2
	for i, ti := range t {
		switch {
		case ti >= rise && ti < fall:
			values[i] = 1
		case std <= 0:
		case ti < rise:
			d := ti - rise
			values[i] = math.Exp(-d * d / twoVar)
		default:
			d := ti - fall
			values[i] = math.Exp(-d * d / twoVar)
		}
	}
	return values
}

// square is on over the half-open window [t0-d/2, t0+d/2). Both edges are pulled in by
// the edge tolerance, so a sample landing on an edge up to rounding is counted once:
// on at the rising edge and off at the falling edge. A duration of n sample periods
// therefore always yields n samples.
func (p Pulse) square(t0 float64, t []float64) []float64 {
	values := make([]float64, len(t))
	tol := edgeTolerance(t)
	half := (p.Width + p.Plateau) / 2
	for i, ti := range t {
		if ti >= t0-half-tol && ti < t0+half-tol {
			values[i] = 1
		}
	}
	return values
}

func (p Pulse) ramp(t0 float64, t []float64) []float64 {
	values := make([]float64, len(t))
	if len(t) > 1 {
		t0 += (t[1] - t[0]) / 2
	}
	start := t0 - p.Plateau/2 - p.Width
	end := t0 + p.Plateau/2 + p.Width
	for i, ti := range t {
		if p.Width <= 0 {
			if ti >= t0-p.Plateau/2 && ti < t0+p.Plateau/2 {
				values[i] = 1
			}
			continue
		}
		up := (ti - start) / p.Width
		down := (end - ti) / p.Width
		values[i] = clip(math.Min(up, down), 0, 1)
	}
	return values
}

func (p Pulse) cosine(t0 float64, t []float64) []float64 {
	values := make([]float64, len(t))
	tau := p.Width
	if tau <= 0 {
		for i, ti := range t {
			if math.Abs(ti-t0) <= p.Plateau/2 {
				values[i] = 1
			}
		}
		return values
	}

	if p.Plateau == 0 {
		for i, ti := range t {
			values[i] = 0.5 * (1 - math.Cos(2*math.Pi*(ti-t0+tau/2)/tau))
		}
		return values
	}

	rise := t0 - p.Plateau/2
	fall := t0 + p.Plateau/2
	for i, ti := range t {
		switch {
		case ti < rise:
			values[i] = 0.5 * (1 - math.Cos(2*math.Pi*(ti-rise+tau/2)/tau))
		case ti > fall:
			values[i] = 0.5 * (1 - math.Cos(2*math.Pi*(ti-fall+tau/2)/tau))
		default:
			values[i] = 1
		}
	}
	return values
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
