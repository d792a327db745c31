package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Listener observes every applied settings update.
type Listener func(Settings)

// Store owns the in-memory settings record and mirrors changes to disk.
//
// Updates merge into the in-memory record synchronously and persist
// asynchronously; a failed persist is logged and never rolled back, so the
// memory and disk copies can diverge until the next successful write.
type Store struct {
	logger *slog.Logger
	path   string

	mu        sync.RWMutex
	record    Settings
	listeners []Listener

	persistWG sync.WaitGroup
}

// NewStore builds a store seeded with defaults. Call Load to overlay the
// on-disk record.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		logger: logger,
		path:   path,
		record: Default(),
	}
}

// Load reads the settings file and shallow-merges it over defaults, file
// values winning per key. Read and decode failures are swallowed: the store
// keeps defaults and is considered ready regardless.
func (s *Store) Load() Settings {
	base := Default()

	content, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logWarn("read settings file failed; using defaults", err)
		}
		s.setRecord(base)
		return base
	}

	var partial Partial
	if err := json.Unmarshal(content, &partial); err != nil {
		s.logWarn("decode settings file failed; using defaults", err)
		s.setRecord(base)
		return base
	}

	merged := partial.Apply(base)
	s.setRecord(merged)
	return merged
}

// Get returns a snapshot copy of the current record.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.Clone()
}

// Update merges the partial into the in-memory record immediately, then
// persists the merged record in the background. The local merge is visible
// before any disk write completes.
func (s *Store) Update(partial Partial) Settings {
	s.mu.Lock()
	merged := partial.Apply(s.record)
	s.record = merged
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	snapshot := merged.Clone()

	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		if err := s.writeToDisk(snapshot); err != nil {
			s.logWarn("persist settings failed; in-memory record kept", err)
		}
	}()

	for _, l := range listeners {
		l(snapshot)
	}
	return snapshot
}

// Subscribe registers a listener for applied updates.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Flush waits for in-flight persists. Used at shutdown.
func (s *Store) Flush() {
	s.persistWG.Wait()
}

// Path reports the resolved settings file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) setRecord(record Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
}

func (s *Store) writeToDisk(record Settings) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) logWarn(message string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(message, "error", err.Error(), "path", s.path)
}
