package sequences

import (
	"testing"

	"github.com/aristath/qpulse/internal/modules/gates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsEmptyRegister(t *testing.T) {
	_, err := New(0, AlignCenter)
	assert.ErrorIs(t, err, ErrQubitMismatch)
}

func TestAddGate_Validation(t *testing.T) {
	seq, err := New(2, AlignCenter)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		qubits []int
		gates  []gates.Gate
	}{
		{"length mismatch", []int{0, 1}, []gates.Gate{gates.Xp}},
		{"out of range", []int{2}, []gates.Gate{gates.Xp}},
		{"negative", []int{-1}, []gates.Gate{gates.Xp}},
		{"duplicate", []int{0, 0}, []gates.Gate{gates.Xp, gates.Yp}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := seq.AddGate(tc.qubits, tc.gates)
			assert.ErrorIs(t, err, ErrQubitMismatch)
		})
	}
	assert.Equal(t, 0, seq.Len())
}

func TestAddGate_IdleQubitsAndOptions(t *testing.T) {
	seq, err := New(3, AlignLeft)
	require.NoError(t, err)

	require.NoError(t, seq.AddSingle(1, gates.X2p, At(50e-9)))
	require.NoError(t, seq.AddGateToAll(gates.Yp, After(5e-9), Align(AlignRight)))

	steps := seq.Steps()
	require.Len(t, steps, 2)

	assert.Nil(t, steps[0].Gates[0])
	assert.Equal(t, gates.X2p, steps[0].Gates[1])
	assert.Nil(t, steps[0].Gates[2])
	require.NotNil(t, steps[0].T0)
	assert.Equal(t, 50e-9, *steps[0].T0)
	assert.Nil(t, steps[0].DT)
	assert.Equal(t, AlignLeft, steps[0].Align)

	require.NotNil(t, steps[1].DT)
	assert.Equal(t, 5e-9, *steps[1].DT)
	assert.Equal(t, AlignRight, steps[1].Align)
}

func TestSteps_ReturnsCopy(t *testing.T) {
	seq, err := New(1, AlignCenter)
	require.NoError(t, err)
	require.NoError(t, seq.AddGateToAll(gates.Xp))

	steps := seq.Steps()
	steps[0].Gates[0] = gates.Yp

	assert.Equal(t, gates.Xp, seq.Steps()[0].Gates[0])
}

func TestFreeze(t *testing.T) {
	seq, err := New(1, AlignCenter)
	require.NoError(t, err)
	seq.Freeze()

	assert.ErrorIs(t, seq.AddGateToAll(gates.Xp), ErrSequenceFrozen)
	assert.True(t, seq.Frozen())
}

func TestAddComposite(t *testing.T) {
	seq, err := New(2, AlignCenter)
	require.NoError(t, err)

	require.NoError(t, seq.AddComposite([]int{0, 1}, gates.CNOT(0.1, 0.2), At(0), Align(AlignLeft)))

	steps := seq.Steps()
	require.Len(t, steps, 4)
	require.NotNil(t, steps[0].T0)
	for _, st := range steps[1:] {
		assert.Nil(t, st.T0)
		assert.Nil(t, st.DT)
		assert.Equal(t, AlignLeft, st.Align)
	}
	assert.Equal(t, gates.Y2m, steps[0].Gates[1])
	assert.Equal(t, gates.CPh, steps[1].Gates[0])

	err = seq.AddComposite([]int{0}, gates.CZ(0, 0))
	assert.ErrorIs(t, err, ErrQubitMismatch)
}

func TestAddMeasurement(t *testing.T) {
	seq, err := New(2, AlignCenter)
	require.NoError(t, err)

	require.NoError(t, seq.AddMeasurement(gates.AxisX, 1, 10e-9))

	steps := seq.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, gates.Y2m, steps[0].Gates[0])
	assert.Equal(t, gates.Readout{}, steps[1].Gates[1])
	require.NotNil(t, steps[1].DT)
	assert.Equal(t, 10e-9, *steps[1].DT)

	assert.Error(t, seq.AddMeasurement(gates.AxisZ, 2, 0))
}

func TestParseAlignment(t *testing.T) {
	for _, a := range []Alignment{AlignLeft, AlignCenter, AlignRight} {
		got, err := ParseAlignment(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseAlignment("diagonal")
	assert.Error(t, err)
}
