// Package localstore persists client state (the signed-in session and the cached role) in a JSON file.
package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/auth"
)

// state is the on-disk layout; keys mirror the browser storage of the web client.
type state struct {
	Session  *auth.Session `json:"auth_token,omitempty"`
	Role     auth.Role     `json:"user_role,omitempty"`
	SchoolID string        `json:"school_id,omitempty"`
	HasRole  bool          `json:"has_role,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

var _ auth.RoleCache = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// read must be called with the lock held. A missing or corrupt file reads as empty state.
func (s *Store) read() state {
	var st state
	data, err := os.ReadFile(s.path)
	if err != nil {
		return st
	}
	if err = json.Unmarshal(data, &st); err != nil {
		return state{}
	}
	return st
}

// write must be called with the lock held. The file is replaced atomically.
func (s *Store) write(st state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding local state")
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating state dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*")
	if err != nil {
		return errors.Wrap(err, "creating state file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing state file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "writing state file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing state file")
}

func (s *Store) update(fn func(st *state)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.read()
	fn(&st)
	return s.write(st)
}

// Session store

func (s *Store) LoadSession() (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Session, nil
}

func (s *Store) SaveSession(sess *auth.Session) error {
	return s.update(func(st *state) { st.Session = sess })
}

func (s *Store) ClearSession() error {
	return s.update(func(st *state) { st.Session = nil })
}

// Role cache

func (s *Store) Load() (auth.CachedRole, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.read()
	if !st.HasRole {
		return auth.CachedRole{}, false
	}
	return auth.CachedRole{Role: st.Role, SchoolID: st.SchoolID}, true
}

func (s *Store) Store(r auth.CachedRole) error {
	return s.update(func(st *state) {
		st.Role = r.Role
		st.SchoolID = r.SchoolID
		st.HasRole = true
	})
}

func (s *Store) Clear() error {
	return s.update(func(st *state) {
		st.Role = ""
		st.SchoolID = ""
		st.HasRole = false
	})
}
