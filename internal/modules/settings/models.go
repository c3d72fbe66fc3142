package settings

// SettingDefaults holds the default value of every compiler setting.
// Flags follow the 1.0 = enabled, 0.0 = disabled convention. Any numeric key may be
// overridden for a single qubit by appending ".N" (1-based), e.g. "xy.frequency.2".
var SettingDefaults = map[string]interface{}{
	// Register and sampling
	"n_qubit":     2.0,   // Number of qubits in the register
	"sample_rate": 1.2e9, // AWG sample rate (Hz)

	// Sequence generation
	"sequence":          "rabi",   // Registered generator name (rabi, cpmg, pulse_train, spin_locking, randomized_benchmarking, ...)
	"alignment":         "center", // Moment alignment for built-in generators: left, center or right
	"first_delay":       100e-9,   // Delay before the first gate (s)
	"spacing":           20e-9,    // Default gap between consecutive moments (s)
	"padding":           50e-9,    // Padding after the last gate (s)
	"min_points":        1000.0,   // Minimum waveform length (samples)
	"n_points":          4000.0,   // Fixed waveform length when trim_to_sequence is disabled (samples)
	"trim_to_sequence":  1.0,      // 1.0 = waveform length follows the sequence, 0.0 = fixed n_points
	"align_to_end":      0.0,      // 1.0 = shift the sequence so it ends at the end of the waveform
	"local_xy":          1.0,      // 1.0 = one XY I/Q pair per qubit, 0.0 = all XY pulses summed onto qubit 1
	"swap_iq":           0.0,      // 1.0 = swap XY I and Q outputs
	"max_qubits":        9.0,      // Largest accepted register
	"readout.generate":  0.0,      // 1.0 = append a measurement of every qubit after the sequence
	"readout.axis":      "Z",      // Measurement axis (X, Y or Z)
	"readout.sign":      1.0,      // Measurement sign (+1 or -1)
	"readout.i_q_swap":  0.0,      // 1.0 = swap readout I and Q outputs
	"readout.predelay":  10e-9,    // Gap between the last gate and the readout (s)
	"readout.segments":  1.0,      // Demodulation segments per trace
	"readout.skip":      0.0,      // Demodulation window start after segment start (s)
	"readout.length":    1e-6,     // Demodulation window length (s)
	"readout.use_ref":   0.0,      // 1.0 = cancel common LO phase drift with the reference trace
	"readout.offset":    0.0,      // Global demodulation frequency offset (Hz)
	"readout.frequency": 50e6,     // Readout tone / demodulation frequency (Hz)
	"readout.amplitude": 0.1,      // Readout tone amplitude
	"readout.duration":  1e-6,     // Readout tone duration (s)
	"readout.iq_ratio":  1.0,      // Readout IQ gain ratio (Q/I)
	"readout.iq_skew":   0.0,      // Readout IQ phase skew (rad)

	// Readout trigger
	"readout.trig_amplitude": 1.0,   // Readout trigger level
	"readout.trig_duration":  20e-9, // Readout trigger length (s)

	// XY pulse template
	"xy.shape":            "gaussian", // gaussian, square, ramp or cosine
	"xy.amplitude":        0.5,        // Pi-pulse amplitude
	"xy.width":            10e-9,      // Pulse width (s)
	"xy.plateau":          0.0,        // Plateau length (s)
	"xy.frequency":        0.0,        // SSB modulation frequency (Hz)
	"xy.use_drag":         0.0,        // 1.0 = add DRAG quadrature
	"xy.drag_coefficient": 0.0,        // DRAG scaling (s)
	"xy.drag_detuning":    0.0,        // DRAG detuning (Hz)
	"xy.truncation_range": 2.0,        // Gaussian truncation (standard deviations per side)
	"xy.start_at_zero":    0.0,        // 1.0 = shift Gaussian so it starts at zero

	// Z pulse template
	"z.shape":            "square",
	"z.amplitude":        0.0,
	"z.width":            10e-9,
	"z.plateau":          0.0,
	"z.truncation_range": 2.0,
	"z.start_at_zero":    0.0,

	// Two-qubit template, ".N" selects the pair (N, N+1)
	"cz.shape":            "square",
	"cz.amplitude":        0.5,
	"cz.width":            4e-9,
	"cz.plateau":          40e-9,
	"cz.truncation_range": 2.0,
	"cz.phi1":             0.0, // Single-qubit phase correction on the first qubit (rad)
	"cz.phi2":             0.0, // Single-qubit phase correction on the second qubit (rad)

	// Gate markers
	"marker.enabled":   0.0,   // 1.0 = generate a marker around every XY pulse
	"marker.padding":   10e-9, // Marker extension before and after each pulse (s)
	"marker.amplitude": 1.0,   // Marker level

	// CPMG / Ramsey / T1
	"cpmg.n_pulse":      1.0,  // Number of refocusing pulses (<0 = T1, 0 = Ramsey)
	"cpmg.duration":     1e-6, // Total free evolution time (s)
	"cpmg.pi_to_q":      0.0,  // 1.0 = refocusing pulses around Y
	"cpmg.edge_to_edge": 0.0,  // 1.0 = duration measured between pulse edges

	// Pulse train
	"pulse_train.n_pulse":   1.0,  // Number of pulses
	"pulse_train.gate":      "Xp", // Named gate repeated by the train
	"pulse_train.alternate": 0.0,  // 1.0 = alternate the rotation sign

	// Spin locking
	"spin_locking.amplitude": 0.1,  // Locking drive amplitude
	"spin_locking.duration":  1e-6, // Locking time (s)

	// Randomized benchmarking
	"rb.length":           10.0, // Number of random Cliffords
	"rb.seed":             42.0, // Random seed
	"rb.interleaved_gate": "",   // Optional named gate interleaved after every Clifford

	// Signal conditioning
	"predistortion.xy_enabled":        0.0,   // 1.0 = apply measured transfer-function predistortion on XY
	"predistortion.transfer_function": "",    // Transfer-function file (path or s3://bucket/key), per qubit with ".N"
	"predistortion.tolerance":         1e-9,  // Smallest accepted |det| when inverting the IQ response
	"predistortion.z_enabled":         0.0,   // 1.0 = apply single-pole predistortion on Z
	"predistortion.z_amplitude":       0.0,   // Single-pole amplitude A
	"predistortion.z_tau":             10e-9, // Single-pole time constant (s)
	"crosstalk.enabled":               0.0,   // 1.0 = compensate Z-line crosstalk
	"crosstalk.matrix_path":           "",    // Crosstalk matrix file (path or s3://bucket/key)
	"crosstalk.coupling":              "",    // Comma-separated 1-based qubits mapped to matrix rows; empty = all
}

// StringSettings defines which settings should be treated as strings rather than floats
var StringSettings = map[string]bool{
	"sequence":                        true,
	"alignment":                       true,
	"readout.axis":                    true,
	"xy.shape":                        true,
	"z.shape":                         true,
	"cz.shape":                        true,
	"pulse_train.gate":                true,
	"rb.interleaved_gate":             true,
	"predistortion.transfer_function": true,
	"crosstalk.matrix_path":           true,
	"crosstalk.coupling":              true,
}

// SettingDescriptions holds human-readable descriptions for settings that need more than
// the inline comment.
var SettingDescriptions = map[string]string{
	"sequence":                        "Name of the registered sequence generator used to build the gate sequence.",
	"alignment":                       "How gates inside one moment are aligned: left (common start), center (common midpoint) or right (common end).",
	"trim_to_sequence":                "When enabled the waveform is as long as the sequence plus padding (at least min_points); otherwise it is exactly n_points and longer sequences are rejected.",
	"local_xy":                        "When disabled every qubit's XY pulse is summed onto the first qubit's I/Q pair, for setups with a single shared drive line.",
	"predistortion.transfer_function": "Whitespace or comma separated rows of: frequency re(H_I) im(H_I) re(H_Q) im(H_Q). Lines starting with # are ignored.",
	"crosstalk.matrix_path":           "Plain N x N matrix, rows are Z lines and columns are qubits.",
	"cpmg.edge_to_edge":               "Measure the free evolution between pulse edges rather than pulse centers.",
	"rb.interleaved_gate":             "Named gate (e.g. X2p) interleaved after every random Clifford; empty for standard benchmarking.",
}

// SettingUpdate represents a setting value update request
type SettingUpdate struct {
	Value interface{} `json:"value"`
}
