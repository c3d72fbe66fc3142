package conditioning

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/interp"
)

// TransferFunction is a measured IQ-mixer response sampled in frequency.
// The output of the mixer for baseband inputs I and Q is Y = H_I*I + j*H_Q*Q.
type TransferFunction struct {
	Freq []float64    // Hz, strictly increasing
	HI   []complex128 // response of the I branch
	HQ   []complex128 // response of the Q branch
}

// Validate checks lengths and frequency ordering.
func (tf TransferFunction) Validate() error {
	n := len(tf.Freq)
	if n < 2 {
		return fmt.Errorf("%w: transfer function needs at least 2 frequency points, got %d", ErrShapeMismatch, n)
	}
	if len(tf.HI) != n || len(tf.HQ) != n {
		return fmt.Errorf("%w: %d frequencies, %d H_I and %d H_Q values", ErrShapeMismatch, n, len(tf.HI), len(tf.HQ))
	}
	for i := 1; i < n; i++ {
		if !(tf.Freq[i] > tf.Freq[i-1]) {
			return fmt.Errorf("%w: transfer function frequencies must be strictly increasing (row %d)", ErrShapeMismatch, i)
		}
	}
	return nil
}

// complexInterp interpolates a complex series linearly, holding the end values outside
// the sampled range.
type complexInterp struct {
	re, im interp.PiecewiseLinear
}

func newComplexInterp(x []float64, y []complex128) (*complexInterp, error) {
	re := make([]float64, len(y))
	im := make([]float64, len(y))
	for i, v := range y {
		re[i], im[i] = real(v), imag(v)
	}
	c := &complexInterp{}
	if err := c.re.Fit(x, re); err != nil {
		return nil, fmt.Errorf("failed to fit real part: %w", err)
	}
	if err := c.im.Fit(x, im); err != nil {
		return nil, fmt.Errorf("failed to fit imaginary part: %w", err)
	}
	return c, nil
}

func (c *complexInterp) at(f float64) complex128 {
	return complex(c.re.Predict(f), c.im.Predict(f))
}

// IQPredistorter inverts a measured transfer function so that the mixer output equals
// the requested I/Q waveform.
type IQPredistorter struct {
	za, zb, zc, zd *complexInterp
}

// NewIQPredistorter computes the inverse 2x2 response at every frequency of tf.
// Responses with |det| below tolerance are rejected.
func NewIQPredistorter(tf TransferFunction, tolerance float64) (*IQPredistorter, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}
	hi, err := newComplexInterp(tf.Freq, tf.HI)
	if err != nil {
		return nil, err
	}
	hq, err := newComplexInterp(tf.Freq, tf.HQ)
	if err != nil {
		return nil, err
	}

	n := len(tf.Freq)
	za := make([]complex128, n)
	zb := make([]complex128, n)
	zc := make([]complex128, n)
	zd := make([]complex128, n)
	for k, f := range tf.Freq {
		a, b, c, d := realResponse(tf.HI[k], hi.at(-f), tf.HQ[k], hq.at(-f))
		det := a*d - b*c
		if cmplx.Abs(det) < tolerance || cmplx.IsNaN(det) {
			return nil, fmt.Errorf("%w: |det| = %.3g at %.6g Hz", ErrIllConditioned, cmplx.Abs(det), f)
		}
		za[k] = d / det
		zb[k] = -b / det
		zc[k] = -c / det
		zd[k] = a / det
	}

	p := &IQPredistorter{}
	for _, pair := range []struct {
		dst **complexInterp
		src []complex128
	}{{&p.za, za}, {&p.zb, zb}, {&p.zc, zc}, {&p.zd, zd}} {
		ci, err := newComplexInterp(tf.Freq, pair.src)
		if err != nil {
			return nil, err
		}
		*pair.dst = ci
	}
	return p, nil
}

// realResponse splits the complex mixer response into the real 2x2 map from (I, Q) to
// (Re Y, Im Y) at frequency f, given H_I and H_Q at f and at -f.
func realResponse(hiPos, hiNeg, hqPos, hqNeg complex128) (a, b, c, d complex128) {
	a = (hiPos + cmplx.Conj(hiNeg)) / 2
	b = complex(0, 0.5) * (hqPos - cmplx.Conj(hqNeg))
	c = (hiPos - cmplx.Conj(hiNeg)) / complex(0, 2)
	d = (hqPos + cmplx.Conj(hqNeg)) / 2
	return a, b, c, d
}

// Apply predistorts an I/Q pair sampled every dt seconds.
func (p *IQPredistorter) Apply(i, q []float64, dt float64) ([]float64, []float64, error) {
	if len(i) != len(q) {
		return nil, nil, fmt.Errorf("%w: I has %d samples, Q has %d", ErrShapeMismatch, len(i), len(q))
	}
	if len(i) == 0 {
		return []float64{}, []float64{}, nil
	}

	fft := fourier.NewCmplxFFT(len(i))
	iSpec := fft.Coefficients(nil, realToComplex(i))
	qSpec := fft.Coefficients(nil, realToComplex(q))

	outI := make([]complex128, len(i))
	outQ := make([]complex128, len(i))
	for k := range iSpec {
		f := fft.Freq(k) / dt
		outI[k] = p.za.at(f)*iSpec[k] + p.zb.at(f)*qSpec[k]
		outQ[k] = p.zc.at(f)*iSpec[k] + p.zd.at(f)*qSpec[k]
	}
	return inverseReal(fft, outI), inverseReal(fft, outQ), nil
}

// ApplyTransferFunction is the forward model of the mixer: it returns Re Y and Im Y for
// baseband inputs I and Q sampled every dt seconds.
func ApplyTransferFunction(tf TransferFunction, i, q []float64, dt float64) ([]float64, []float64, error) {
	if err := tf.Validate(); err != nil {
		return nil, nil, err
	}
	if len(i) != len(q) {
		return nil, nil, fmt.Errorf("%w: I has %d samples, Q has %d", ErrShapeMismatch, len(i), len(q))
	}
	if len(i) == 0 {
		return []float64{}, []float64{}, nil
	}
	hi, err := newComplexInterp(tf.Freq, tf.HI)
	if err != nil {
		return nil, nil, err
	}
	hq, err := newComplexInterp(tf.Freq, tf.HQ)
	if err != nil {
		return nil, nil, err
	}

	fft := fourier.NewCmplxFFT(len(i))
	iSpec := fft.Coefficients(nil, realToComplex(i))
	qSpec := fft.Coefficients(nil, realToComplex(q))

	y := make([]complex128, len(i))
	for k := range y {
		f := fft.Freq(k) / dt
		y[k] = hi.at(f)*iSpec[k] + 1i*hq.at(f)*qSpec[k]
	}
	seq := fft.Sequence(nil, y)
	scale := complex(1/float64(len(seq)), 0)
	outI := make([]float64, len(seq))
	outQ := make([]float64, len(seq))
	for k, v := range seq {
		v *= scale
		outI[k], outQ[k] = real(v), imag(v)
	}
	return outI, outQ, nil
}

func realToComplex(x []float64) []complex128 {
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = complex(v, 0)
	}
	return out
}

// inverseReal transforms back and keeps the real part; gonum leaves the inverse
// unnormalized.
func inverseReal(fft *fourier.CmplxFFT, spectrum []complex128) []float64 {
	seq := fft.Sequence(nil, spectrum)
	n := float64(len(seq))
	out := make([]float64, len(seq))
	for i, v := range seq {
		out[i] = real(v) / n
	}
	return out
}
