package session

import "sync"

// State owns the current session id. An empty id means no session.
//
// Every Reset bumps the generation so a reply to a request sent before the reset
// can be recognised as stale and kept from resurrecting the old id.
type State struct {
	mu  sync.RWMutex
	id  string
	gen uint64
}

func NewState() *State {
	return &State{}
}

func (s *State) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *State) IsActive() bool {
	return s.ID() != ""
}

func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Snapshot returns id and generation read together.
func (s *State) Snapshot() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.gen
}

// Adopt sets id as current. It reports false, and changes nothing, when id is
// already current or empty.
func (s *State) Adopt(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adoptLocked(id)
}

// AdoptAt adopts id only if no Reset happened since gen was read.
func (s *State) AdoptAt(gen uint64, id string) (adopted bool, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false, true
	}
	return s.adoptLocked(id), false
}

func (s *State) adoptLocked(id string) bool {
	if id == "" || id == s.id {
		return false
	}
	s.id = id
	return true
}

func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.gen++
}
