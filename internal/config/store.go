package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store holds the live settings. It is safe for concurrent use: HTTP
// handlers and the tray write, the tick loop reads a snapshot per tick.
type Store struct {
	mu        sync.RWMutex
	current   Settings
	defaults  Settings
	listeners []func(Settings)
}

// NewStore creates a Store starting from initial, which is also what Reset
// restores.
func NewStore(initial Settings) *Store {
	initial = initial.Clamp()
	return &Store{
		current:  initial,
		defaults: initial,
	}
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Patch applies a partial JSON object and returns the resulting settings.
func (s *Store) Patch(patch []byte) (Settings, error) {
	s.mu.Lock()
	next, err := s.current.Apply(patch)
	if err != nil {
		s.mu.Unlock()
		return s.current, err
	}
	s.current = next
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, next)
	return next, nil
}

// Update replaces the settings through fn, clamping the result.
func (s *Store) Update(fn func(*Settings)) Settings {
	s.mu.Lock()
	next := s.current
	fn(&next)
	next = next.Clamp()
	s.current = next
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, next)
	return next
}

// Reset restores the startup settings.
func (s *Store) Reset() Settings {
	s.mu.Lock()
	s.current = s.defaults
	next := s.current
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, next)
	return next
}

// OnChange registers fn to be called after every change. Callbacks run on
// the goroutine that made the change, outside the lock.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func notify(listeners []func(Settings), s Settings) {
	for _, fn := range listeners {
		fn(s)
	}
}

// maxFileSize bounds settings files; anything bigger is not a settings file.
const maxFileSize = 1 << 20

// Load reads a JSON settings file and merges it over the defaults.
// Fields omitted from the file keep their default values.
func Load(path string) (Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Settings{}, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to stat settings file: %w", err)
	}
	if info.Size() > maxFileSize {
		return Settings{}, fmt.Errorf("settings file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	s, err := Defaults().Apply(data)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return s, nil
}

// JSON returns s as indented JSON.
func (s Settings) JSON() []byte {
	data, _ := json.MarshalIndent(s, "", "  ")
	return data
}
