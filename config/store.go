// Package config is the peer-keyed property store. Discovery writes
// profile versions and feature words here (AVRCP version, supported
// features) so other layers can read them without re-querying SDP.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/user/bluedisc/logger"
)

// Store maps peer address string -> property name -> raw bytes.
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	path     string // empty = in-memory only
	sections map[string]map[string][]byte
}

// NewStore creates a store backed by the JSON file at path. An empty
// path gives a purely in-memory store. Existing contents are loaded;
// a missing or unreadable file starts empty.
func NewStore(path string) *Store {
	s := &Store{
		path:     path,
		sections: make(map[string]map[string][]byte),
	}
	if path != "" {
		s.load()
	}
	return s
}

// SetBin stores raw bytes under (section, key) and persists.
func (s *Store) SetBin(section, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.sections[section]
	if !ok {
		sec = make(map[string][]byte)
		s.sections[section] = sec
	}
	sec[key] = append([]byte(nil), value...)
	return s.saveLocked()
}

// GetBin returns the bytes stored under (section, key).
func (s *Store) GetBin(section, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.sections[section]
	if !ok {
		return nil, false
	}
	v, ok := sec[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// RemoveSection drops every key stored for a section and persists.
func (s *Store) RemoveSection(section string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sections[section]; !ok {
		return nil
	}
	delete(s.sections, section)
	return s.saveLocked()
}

// Sections returns the section names currently stored.
func (s *Store) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	return names
}

// On disk values are hex strings so the file stays human-readable.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("config", "failed to parse %s, starting empty: %v", s.path, err)
		return
	}
	for section, keys := range raw {
		sec := make(map[string][]byte, len(keys))
		for key, hexVal := range keys {
			v, err := hex.DecodeString(hexVal)
			if err != nil {
				continue
			}
			sec[key] = v
		}
		s.sections[section] = sec
	}
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}

	raw := make(map[string]map[string]string, len(s.sections))
	for section, keys := range s.sections {
		enc := make(map[string]string, len(keys))
		for key, v := range keys {
			enc[key] = hex.EncodeToString(v)
		}
		raw[section] = enc
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to marshal store: %w", err)
	}

	// Atomic write: write to temp file, then rename
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("config: failed to write store file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("config: failed to rename store file: %w", err)
	}
	return nil
}
