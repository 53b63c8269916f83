package frontdesk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store keeps the chat-JID → Session mapping in memory and mirrors every
// mutation to a JSON file. The file is the same human-diffable contract
// the office already knows: a flat object keyed by chat identifier.
//
// Every mutation rewrites the whole file. Conversation volume at a small
// office is low and the write is not on any ordering-sensitive path, so
// there is no incremental log. If a persist fails, the in-memory state
// stays authoritative and the next successful persist reconciles.
type Store struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a session store backed by the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:     path,
		logger:   logger.With("component", "session_store"),
		sessions: make(map[string]*Session),
	}
}

// Load reads the persisted mapping. A missing file, unreadable file, or
// malformed content all start the store empty — startup never aborts on
// a bad session file.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no session file, starting empty", "path", s.path)
		} else {
			s.logger.Warn("session file unreadable, starting empty",
				"path", s.path, "error", err)
		}
		return
	}

	var loaded map[string]*Session
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("session file malformed, starting empty",
			"path", s.path, "error", err)
		return
	}

	// Drop records with an unrecognized shape so the flow restarts for
	// them instead of misbehaving.
	for chatID, sess := range loaded {
		if !sess.Valid() {
			s.logger.Warn("dropping invalid session record", "chat", chatID)
			delete(loaded, chatID)
		}
	}

	if loaded != nil {
		s.sessions = loaded
	}
	s.logger.Info("sessions loaded", "count", len(s.sessions))
}

// Get returns the session for a chat, or nil if none exists.
// The returned value is a copy; mutate and Put it back.
func (s *Store) Get(chatID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok || !sess.Valid() {
		return nil
	}
	cp := *sess
	return &cp
}

// Put stores a session and persists the full mapping.
func (s *Store) Put(chatID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[chatID] = &cp
	s.persistLocked()
}

// Remove deletes a session and persists the full mapping.
func (s *Store) Remove(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[chatID]; !ok {
		return
	}
	delete(s.sessions, chatID)
	s.persistLocked()
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// persistLocked writes the whole mapping to disk. Failures are reported
// but non-fatal. Must be called with mu held.
func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode sessions", "error", err)
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Error("failed to create session dir", "dir", dir, "error", err)
			return
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error("failed to persist sessions", "path", s.path, "error", err)
	}
}

// Persist forces a write of the current mapping, for shutdown paths.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}
