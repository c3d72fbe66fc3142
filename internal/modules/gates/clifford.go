package gates

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Unitary is a single-qubit operator in the computational basis.
type Unitary [2][2]complex128

// Identity2 is the 2x2 identity operator.
var Identity2 = Unitary{{1, 0}, {0, 1}}

// Mul returns u·v.
func (u Unitary) Mul(v Unitary) Unitary {
	var out Unitary
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			out[i][j] = u[i][0]*v[0][j] + u[i][1]*v[1][j]
		}
	}
	return out
}

// EqualUpToPhase reports whether u and v differ only by a global phase.
func (u Unitary) EqualUpToPhase(v Unitary, tol float64) bool {
	// for unitaries |tr(v†u)| = 2 exactly when u ∝ v
	var tr complex128
	for i := 0; i < 2; i++ {
		for k := 0; k < 2; k++ {
			tr += cmplx.Conj(v[k][i]) * u[k][i]
		}
	}
	return math.Abs(cmplx.Abs(tr)-2) < tol
}

// UnitaryOf returns the ideal single-qubit operator of g. Marker gates (readout, two-qubit)
// are not single-qubit operations and return an error.
func UnitaryOf(g Gate) (Unitary, error) {
	switch v := g.(type) {
	case Identity:
		return Identity2, nil
	case XYRotation:
		return rotation(v.Phi+v.PhaseShift(), v.Theta), nil
	case ZRotation:
		return zRotation(v.Theta), nil
	case VirtualZ:
		return zRotation(v.Theta), nil
	}
	return Unitary{}, fmt.Errorf("gate %s has no single-qubit unitary", g)
}

func rotation(phi, theta float64) Unitary {
	c := complex(math.Cos(theta/2), 0)
	s := math.Sin(theta / 2)
	// -i·sin(θ/2)·(cosφ·X + sinφ·Y)
	off01 := complex(0, -s) * complex(math.Cos(phi), -math.Sin(phi))
	off10 := complex(0, -s) * complex(math.Cos(phi), math.Sin(phi))
	return Unitary{{c, off01}, {off10, c}}
}

func zRotation(theta float64) Unitary {
	return Unitary{
		{cmplx.Exp(complex(0, -theta/2)), 0},
		{0, cmplx.Exp(complex(0, theta/2))},
	}
}

// Cliffords is the single-qubit Clifford group, each element decomposed into X/Y pi and
// pi/2 rotations applied left to right.
var Cliffords = [24][]Gate{
	{I},
	{Xp},
	{Yp},
	{Yp, Xp},

	{X2p, Y2p},
	{X2p, Y2m},
	{X2m, Y2p},
	{X2m, Y2m},
	{Y2p, X2p},
	{Y2p, X2m},
	{Y2m, X2p},
	{Y2m, X2m},

	{X2p},
	{X2m},
	{Y2p},
	{Y2m},
	{X2m, Y2p, X2p},
	{X2m, Y2m, X2p},

	{Xp, Y2p},
	{Xp, Y2m},
	{Yp, X2p},
	{Yp, X2m},
	{X2p, Y2p, X2p},
	{X2m, Y2p, X2m},
}

// SequenceUnitary returns the operator of gates applied in order.
func SequenceUnitary(gs []Gate) (Unitary, error) {
	u := Identity2
	for _, g := range gs {
		gu, err := UnitaryOf(g)
		if err != nil {
			return Unitary{}, err
		}
		u = gu.Mul(u)
	}
	return u, nil
}

// CliffordUnitary returns the operator of Clifford element idx.
func CliffordUnitary(idx int) (Unitary, error) {
	if idx < 0 || idx >= len(Cliffords) {
		return Unitary{}, fmt.Errorf("clifford index %d out of range", idx)
	}
	return SequenceUnitary(Cliffords[idx])
}

// Recovery returns the index of the Clifford that maps u back to the identity.
func Recovery(u Unitary) (int, error) {
	for idx := range Cliffords {
		c, err := CliffordUnitary(idx)
		if err != nil {
			return 0, err
		}
		if c.Mul(u).EqualUpToPhase(Identity2, 1e-9) {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("operator is not a Clifford element")
}
