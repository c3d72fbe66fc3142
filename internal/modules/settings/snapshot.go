package settings

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when a setting is missing or has the wrong type.
var ErrInvalidValue = errors.New("invalid setting value")

// Snapshot is an immutable view of the configuration used for one compilation pass.
// Values are stored as decoded from JSON: float64, string, bool.
type Snapshot struct {
	values map[string]interface{}
}

// NewSnapshot merges overrides on top of SettingDefaults.
func NewSnapshot(overrides map[string]interface{}) Snapshot {
	values := make(map[string]interface{}, len(SettingDefaults)+len(overrides))
	for k, v := range SettingDefaults {
		values[k] = v
	}
	for k, v := range overrides {
		values[k] = normalize(v)
	}
	return Snapshot{values: values}
}

// normalize converts the integer types produced by Go callers and msgpack decoding into
// float64 so every getter sees one numeric representation.
func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}

// With returns a copy of the snapshot with key set to value.
func (s Snapshot) With(key string, value interface{}) Snapshot {
	values := make(map[string]interface{}, len(s.values)+1)
	for k, v := range s.values {
		values[k] = v
	}
	values[key] = normalize(value)
	return Snapshot{values: values}
}

// Values returns a copy of all values.
func (s Snapshot) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Has reports whether key is set.
func (s Snapshot) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Float returns a numeric setting.
func (s Snapshot) Float(key string) (float64, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not set", ErrInvalidValue, key)
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidValue, key)
		}
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, key, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidValue, key, v)
}

// Int returns an integral numeric setting.
func (s Snapshot) Int(key string) (int, error) {
	f, err := s.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s=%g is not an integer", ErrInvalidValue, key, f)
	}
	return int(f), nil
}

// Bool returns a flag. Numeric flags are true when non-zero.
func (s Snapshot) Bool(key string) (bool, error) {
	v, ok := s.values[key]
	if !ok {
		return false, fmt.Errorf("%w: %s is not set", ErrInvalidValue, key)
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off", "":
			return false, nil
		}
		return false, fmt.Errorf("%w: %s=%q is not a flag", ErrInvalidValue, key, b)
	}
	return false, fmt.Errorf("%w: %s has type %T", ErrInvalidValue, key, v)
}

// String returns a text setting.
func (s Snapshot) String(key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is not set", ErrInvalidValue, key)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	return "", fmt.Errorf("%w: %s has type %T", ErrInvalidValue, key, v)
}

// QubitKey returns the per-qubit override key for key, e.g. "xy.width.2".
func QubitKey(key string, qubit int) string {
	return key + "." + strconv.Itoa(qubit)
}

func (s Snapshot) resolve(key string, qubit int) string {
	if qk := QubitKey(key, qubit); s.Has(qk) {
		return qk
	}
	return key
}

// FloatFor returns key for a 1-based qubit, preferring the ".N" override.
func (s Snapshot) FloatFor(key string, qubit int) (float64, error) {
	return s.Float(s.resolve(key, qubit))
}

// BoolFor returns a per-qubit flag.
func (s Snapshot) BoolFor(key string, qubit int) (bool, error) {
	return s.Bool(s.resolve(key, qubit))
}

// StringFor returns a per-qubit text setting.
func (s Snapshot) StringFor(key string, qubit int) (string, error) {
	return s.String(s.resolve(key, qubit))
}

// Hash returns a stable fingerprint of the snapshot, used as a cache key.
func (s Snapshot) Hash() string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(fmt.Sprintf("%T:%v", s.values[k], s.values[k])))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// BaseKey strips a per-qubit ".N" suffix, returning the base key and the qubit (0 when
// there is no suffix).
func BaseKey(key string) (string, int) {
	idx := strings.LastIndex(key, ".")
	if idx <= 0 || idx == len(key)-1 {
		return key, 0
	}
	n, err := strconv.Atoi(key[idx+1:])
	if err != nil || n < 1 {
		return key, 0
	}
	return key[:idx], n
}

// IsKnownKey reports whether key, or its base key, has a default.
func IsKnownKey(key string) bool {
	if _, ok := SettingDefaults[key]; ok {
		return true
	}
	base, qubit := BaseKey(key)
	if qubit == 0 {
		return false
	}
	_, ok := SettingDefaults[base]
	return ok
}
