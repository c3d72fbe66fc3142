package sequences

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aristath/qpulse/internal/modules/settings"
)

// ContractVersion is the version of the Generator contract. A generator that reports a
// different version through Versioned is rejected at registration.
const ContractVersion = 1

var (
	// ErrUnknownGenerator is returned for sequence names with no registered generator.
	ErrUnknownGenerator = errors.New("unknown sequence generator")
	// ErrContractVersion is returned when a generator was built for another contract.
	ErrContractVersion = errors.New("generator contract version mismatch")
)

// Generator appends the gates of one experiment to seq, reading its parameters from p.
// The sequence already has its templates and first delay; readout is appended by the
// caller afterwards.
type Generator interface {
	Generate(p settings.Snapshot, seq *Sequence) error
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(p settings.Snapshot, seq *Sequence) error

// Generate calls f(p, seq).
func (f GeneratorFunc) Generate(p settings.Snapshot, seq *Sequence) error {
	return f(p, seq)
}

// Versioned is implemented by generators that declare the contract they target.
type Versioned interface {
	ContractVersion() int
}

// Describer is implemented by generators that describe themselves for listings.
type Describer interface {
	Description() string
}

// Info describes a registered generator.
type Info struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ContractVersion int    `json:"contract_version"`
	Builtin         bool   `json:"builtin"`
}

type registration struct {
	gen     Generator
	builtin bool
}

// Registry maps sequence names to generators. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	gens map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gens: make(map[string]registration)}
}

// NewPopulatedRegistry creates a registry holding the built-in generators.
func NewPopulatedRegistry() *Registry {
	r := NewRegistry()
	for name, gen := range builtins() {
		r.gens[name] = registration{gen: gen, builtin: true}
	}
	return r
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a custom generator under name.
func (r *Registry) Register(name string, gen Generator) error {
	key := normalizeName(name)
	if key == "" {
		return fmt.Errorf("generator name must not be empty")
	}
	if gen == nil {
		return fmt.Errorf("generator %s is nil", name)
	}
	if v, ok := gen.(Versioned); ok && v.ContractVersion() != ContractVersion {
		return fmt.Errorf("%w: %s targets version %d, registry is %d", ErrContractVersion, name, v.ContractVersion(), ContractVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.gens[key]; exists {
		return fmt.Errorf("generator %s is already registered", name)
	}
	r.gens[key] = registration{gen: gen}
	return nil
}

// Unregister removes a custom generator. Built-ins cannot be removed.
func (r *Registry) Unregister(name string) error {
	key := normalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.gens[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGenerator, name)
	}
	if reg.builtin {
		return fmt.Errorf("generator %s is built in", name)
	}
	delete(r.gens, key)
	return nil
}

// Get returns the generator registered under name.
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.gens[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
	return reg.gen, nil
}

// List returns all registered generators sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.gens))
	for name, reg := range r.gens {
		info := Info{Name: name, ContractVersion: ContractVersion, Builtin: reg.builtin}
		if d, ok := reg.gen.(Describer); ok {
			info.Description = d.Description()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
