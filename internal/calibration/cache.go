package calibration

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/conditioning"
	"github.com/rs/zerolog"
)

// Cache loads calibration files through a Source and keeps the derived conditioning
// objects until Invalidate is called. It is safe for concurrent use.
type Cache struct {
	mu sync.Mutex

	source       Source
	eventManager *events.Manager
	log          zerolog.Logger

	predistorters map[string]*conditioning.IQPredistorter
	crosstalk     map[string]*conditioning.Crosstalk
}

// NewCache creates a calibration cache over source. eventManager may be nil.
func NewCache(source Source, eventManager *events.Manager, log zerolog.Logger) *Cache {
	return &Cache{
		source:        source,
		eventManager:  eventManager,
		log:           log.With().Str("service", "calibration").Logger(),
		predistorters: make(map[string]*conditioning.IQPredistorter),
		crosstalk:     make(map[string]*conditioning.Crosstalk),
	}
}

// Predistorter returns the IQ predistorter for the transfer function at path.
func (c *Cache) Predistorter(ctx context.Context, path string, tolerance float64) (*conditioning.IQPredistorter, error) {
	key := fmt.Sprintf("%s|%g", path, tolerance)

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.predistorters[key]; ok {
		return p, nil
	}

	data, err := c.source.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	tf, err := ParseTransferFunction(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transfer function %s: %w", path, err)
	}
	p, err := conditioning.NewIQPredistorter(tf, tolerance)
	if err != nil {
		return nil, fmt.Errorf("failed to invert transfer function %s: %w", path, err)
	}

	c.predistorters[key] = p
	c.loaded("transfer_function", path, len(tf.Freq))
	return p, nil
}

// Crosstalk returns the crosstalk compensation for the matrix at path and the given
// 0-based coupling set.
func (c *Cache) Crosstalk(ctx context.Context, path string, coupling []int) (*conditioning.Crosstalk, error) {
	key := fmt.Sprintf("%s|%v", path, coupling)

	c.mu.Lock()
	defer c.mu.Unlock()
	if x, ok := c.crosstalk[key]; ok {
		return x, nil
	}

	data, err := c.source.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	rows, err := ParseMatrix(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse crosstalk matrix %s: %w", path, err)
	}
	x, err := conditioning.NewCrosstalk(rows, coupling)
	if err != nil {
		return nil, fmt.Errorf("invalid crosstalk matrix %s: %w", path, err)
	}
	// singular matrices are rejected at load time
	if _, err := x.Inverse(); err != nil {
		return nil, fmt.Errorf("invalid crosstalk matrix %s: %w", path, err)
	}

	c.crosstalk[key] = x
	c.loaded("crosstalk", path, len(rows))
	return x, nil
}

func (c *Cache) loaded(kind, path string, rows int) {
	c.log.Info().
		Str("kind", kind).
		Str("path", path).
		Int("rows", rows).
		Msg("Calibration loaded")

	if c.eventManager != nil {
		c.eventManager.EmitTyped(events.CalibrationReloaded, "calibration", &events.CalibrationReloadedData{
			Kind: kind,
			Path: path,
		})
	}
}

// Len returns the number of cached objects.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.predistorters) + len(c.crosstalk)
}

// Invalidate drops every cached object; the next request reloads from the source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := len(c.predistorters) + len(c.crosstalk)
	c.predistorters = make(map[string]*conditioning.IQPredistorter)
	c.crosstalk = make(map[string]*conditioning.Crosstalk)
	c.log.Debug().Int("dropped", dropped).Msg("Calibration cache invalidated")
}

// Subscribe invalidates the cache on every ConfigurationChanged event on bus.
func (c *Cache) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(events.ConfigurationChanged, func(*events.Event) {
		c.Invalidate()
	})
}
