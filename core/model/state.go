// Package model provides the persistence and fitted-state primitives shared
// across SciGo estimators: gob-based SaveModel/LoadModel and the
// StateManager lifecycle tracker consumed by encoding.Provider.
package model

import (
	"bytes"
	"encoding/gob"
	"sync"
)

// StateManager tracks the fitted/frozen lifecycle shared by every estimator
// and transformer in SciGo. It is safe for concurrent use: a model may be
// queried for its fitted state from multiple goroutines while training runs
// on another.
type StateManager struct {
	mu      sync.RWMutex
	fitted  bool
	version int
}

// NewStateManager returns a StateManager in the NotFitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether SetFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the owner as fitted and bumps the internal version, used
// by callers that want to detect that a model was refit.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.version++
}

// Reset returns the owner to the NotFitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
}

// Version returns the number of times SetFitted has been called, useful for
// cache invalidation in callers that memoize derived state.
func (s *StateManager) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// gobState is the on-the-wire shape of a StateManager: the mutex carries no
// state worth persisting and gob cannot encode it anyway.
type gobState struct {
	Fitted  bool
	Version int
}

// GobEncode lets StateManager round-trip through encoding/gob despite its
// unexported fields, so SaveModel/LoadModel can persist it as part of a
// larger estimator struct.
func (s *StateManager) GobEncode() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobState{Fitted: s.fitted, Version: s.version}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores a StateManager encoded by GobEncode.
func (s *StateManager) GobDecode(data []byte) error {
	var gs gobState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&gs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = gs.Fitted
	s.version = gs.Version
	return nil
}
