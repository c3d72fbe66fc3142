package gates

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Named single-qubit gates. p/m is the rotation sign, 2 marks a half rotation.
var (
	I = Identity{}

	Xp  = XYRotation{Phi: 0, Theta: math.Pi, Name: "Xp"}
	Xm  = XYRotation{Phi: 0, Theta: -math.Pi, Name: "Xm"}
	X2p = XYRotation{Phi: 0, Theta: math.Pi / 2, Name: "X2p"}
	X2m = XYRotation{Phi: 0, Theta: -math.Pi / 2, Name: "X2m"}

	Yp  = XYRotation{Phi: math.Pi / 2, Theta: math.Pi, Name: "Yp"}
	Ym  = XYRotation{Phi: math.Pi / 2, Theta: -math.Pi, Name: "Ym"}
	Y2p = XYRotation{Phi: math.Pi / 2, Theta: math.Pi / 2, Name: "Y2p"}
	Y2m = XYRotation{Phi: math.Pi / 2, Theta: -math.Pi / 2, Name: "Y2m"}

	Zp  = ZRotation{Theta: math.Pi, Name: "Zp"}
	Z2p = ZRotation{Theta: math.Pi / 2, Name: "Z2p"}
	Z2m = ZRotation{Theta: -math.Pi / 2, Name: "Z2m"}

	VZp  = VirtualZ{Theta: math.Pi}
	VZ2p = VirtualZ{Theta: math.Pi / 2}
	VZ2m = VirtualZ{Theta: -math.Pi / 2}

	CPh = CPhase()
)

var byName = map[string]Gate{
	"I":    I,
	"Xp":   Xp,
	"Xm":   Xm,
	"X2p":  X2p,
	"X2m":  X2m,
	"Yp":   Yp,
	"Ym":   Ym,
	"Y2p":  Y2p,
	"Y2m":  Y2m,
	"Zp":   Zp,
	"Z2p":  Z2p,
	"Z2m":  Z2m,
	"VZp":  VZp,
	"VZ2p": VZ2p,
	"VZ2m": VZ2m,
	"CPh":  CPh,
}

// ByName looks up a named gate such as "X2p" or "Ym".
func ByName(name string) (Gate, error) {
	g, ok := byName[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGate, name)
	}
	return g, nil
}

// Names returns the registered gate names in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Inverted returns the opposite-sign variant of a named rotation (Xp -> Xm, Y2m -> Y2p).
// Gates without a sign are returned unchanged.
func Inverted(g Gate) Gate {
	switch v := g.(type) {
	case XYRotation:
		inv := v
		inv.Theta = -v.Theta
		inv.Name = flipSign(v.Name)
		return inv
	case ZRotation:
		inv := v
		inv.Theta = -v.Theta
		inv.Name = flipSign(v.Name)
		return inv
	case VirtualZ:
		inv := v
		inv.Theta = -v.Theta
		return inv
	}
	return g
}

func flipSign(name string) string {
	switch {
	case strings.HasSuffix(name, "p"):
		return strings.TrimSuffix(name, "p") + "m"
	case strings.HasSuffix(name, "m"):
		return strings.TrimSuffix(name, "m") + "p"
	}
	return name
}
