package settings

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Store is the persistence used by Service.
type Store interface {
	Get(key string) (interface{}, error)
	Set(key string, value interface{}) error
	GetAll() (map[string]interface{}, error)
	Delete(key string) error
}

// Service validates overrides and builds snapshots from defaults plus stored values.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a settings service backed by store.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("service", "settings").Logger(),
	}
}

// GetAll returns defaults merged with stored overrides.
func (s *Service) GetAll() (map[string]interface{}, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Values(), nil
}

// Snapshot returns the current configuration.
func (s *Service) Snapshot() (Snapshot, error) {
	stored, err := s.store.GetAll()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return NewSnapshot(stored), nil
}

// Resolve merges request overrides on top of the current configuration.
func (s *Service) Resolve(overrides map[string]interface{}) (Snapshot, error) {
	stored, err := s.store.GetAll()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load settings: %w", err)
	}
	merged := make(map[string]interface{}, len(stored)+len(overrides))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range overrides {
		if !IsKnownKey(k) {
			return Snapshot{}, fmt.Errorf("%w: unknown setting %s", ErrInvalidValue, k)
		}
		merged[k] = v
	}
	return NewSnapshot(merged), nil
}

// Set validates and stores an override.
func (s *Service) Set(key string, value interface{}) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	if err := s.store.Set(key, value); err != nil {
		return err
	}
	s.log.Info().Str("key", key).Interface("value", value).Msg("Setting updated")
	return nil
}

// Reset removes an override.
func (s *Service) Reset(key string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("%w: unknown setting %s", ErrInvalidValue, key)
	}
	return s.store.Delete(key)
}

// Validate checks that key is known and value has the type of its default.
func Validate(key string, value interface{}) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("%w: unknown setting %s", ErrInvalidValue, key)
	}
	base, _ := BaseKey(key)
	if _, ok := SettingDefaults[key]; ok {
		base = key
	}

	snap := NewSnapshot(map[string]interface{}{key: value})
	if StringSettings[base] {
		if _, err := snap.String(key); err != nil {
			return err
		}
		return nil
	}
	if _, err := snap.Float(key); err != nil {
		return err
	}
	return nil
}
