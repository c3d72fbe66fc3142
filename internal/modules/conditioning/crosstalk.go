// Package conditioning applies post-synthesis corrections to rendered waveforms:
// Z-line crosstalk compensation and frequency-domain predistortion.
//
// Everything here is a pure transformation of sample arrays. Calibration data arrives
// already parsed; loading and caching it is the caller's concern.
package conditioning

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingularMatrix is returned when a matrix or response cannot be inverted.
	ErrSingularMatrix = errors.New("matrix is singular")
	// ErrIllConditioned is returned when an inverse exists but is numerically unreliable.
	ErrIllConditioned = errors.New("matrix is ill-conditioned")
	// ErrShapeMismatch is returned for inconsistent array sizes.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Crosstalk maps the Z flux seen by each qubit to the voltages on each Z line.
// Row i of the matrix belongs to qubit Coupling()[i]; qubits outside the coupling set
// pass through unchanged.
type Crosstalk struct {
	matrix   *mat.Dense
	coupling []int

	once    sync.Once
	inverse *mat.Dense
	invErr  error
}

// NewCrosstalk validates an N x N matrix and its coupling set of 0-based qubit indices.
// A nil coupling maps row i to qubit i.
func NewCrosstalk(rows [][]float64, coupling []int) (*Crosstalk, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: crosstalk matrix is empty", ErrShapeMismatch)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: crosstalk matrix row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: crosstalk matrix row %d is not finite", ErrShapeMismatch, i)
			}
		}
		data = append(data, row...)
	}

	if coupling == nil {
		coupling = make([]int, n)
		for i := range coupling {
			coupling[i] = i
		}
	}
	if len(coupling) != n {
		return nil, fmt.Errorf("%w: %d coupled qubits for a %dx%d matrix", ErrShapeMismatch, len(coupling), n, n)
	}
	seen := make(map[int]bool, n)
	for _, q := range coupling {
		if q < 0 || seen[q] {
			return nil, fmt.Errorf("%w: invalid coupling set %v", ErrShapeMismatch, coupling)
		}
		seen[q] = true
	}

	return &Crosstalk{
		matrix:   mat.NewDense(n, n, data),
		coupling: append([]int(nil), coupling...),
	}, nil
}

// Size returns N.
func (c *Crosstalk) Size() int {
	n, _ := c.matrix.Dims()
	return n
}

// Coupling returns the qubit index of each matrix row.
func (c *Crosstalk) Coupling() []int {
	return append([]int(nil), c.coupling...)
}

// Inverse returns the inverted matrix, computing it once.
func (c *Crosstalk) Inverse() (*mat.Dense, error) {
	c.once.Do(func() {
		var inv mat.Dense
		if err := inv.Inverse(c.matrix); err != nil {
			var cond mat.Condition
			if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
				c.invErr = fmt.Errorf("%w: condition number %.3g", ErrIllConditioned, float64(cond))
			} else {
				c.invErr = fmt.Errorf("%w: %v", ErrSingularMatrix, err)
			}
			return
		}
		c.inverse = &inv
	})
	return c.inverse, c.invErr
}

// Compensate returns the Z-line voltages that produce the requested per-qubit flux.
// z is indexed by qubit; the input is not modified.
func (c *Crosstalk) Compensate(z [][]float64) ([][]float64, error) {
	inv, err := c.Inverse()
	if err != nil {
		return nil, err
	}
	return c.apply(inv, z)
}

// Decompensate is the forward model: the flux produced by the given Z-line voltages.
func (c *Crosstalk) Decompensate(z [][]float64) ([][]float64, error) {
	return c.apply(c.matrix, z)
}

func (c *Crosstalk) apply(m *mat.Dense, z [][]float64) ([][]float64, error) {
	n := c.Size()
	out := make([][]float64, len(z))
	for i, w := range z {
		out[i] = append([]float64(nil), w...)
	}

	var length int
	for i, q := range c.coupling {
		if q >= len(z) {
			return nil, fmt.Errorf("%w: coupled qubit %d outside %d Z channels", ErrShapeMismatch, q, len(z))
		}
		if i == 0 {
			length = len(z[q])
		} else if len(z[q]) != length {
			return nil, fmt.Errorf("%w: Z channel %d has %d samples, want %d", ErrShapeMismatch, q, len(z[q]), length)
		}
	}
	if length == 0 {
		return out, nil
	}

	stacked := mat.NewDense(n, length, nil)
	for i, q := range c.coupling {
		stacked.SetRow(i, z[q])
	}

	var result mat.Dense
	result.Mul(m, stacked)
	for i, q := range c.coupling {
		mat.Row(out[q], i, &result)
	}
	return out, nil
}
