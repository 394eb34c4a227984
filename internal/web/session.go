package web

import (
	"sync"

	"github.com/google/uuid"

	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/table"
)

// editState is one user's in-flight edit of one dataset: the snapshot
// the edit is based on plus the current edited table.
type editState struct {
	snapshot *dataset.Snapshot
	edited   *table.Table
}

// editStates keeps per-session working state in memory, keyed by
// session ID and dataset name. Cookie sessions only carry identity;
// tables never leave the process.
type editStates struct {
	mu     sync.Mutex
	states map[string]*editState
}

func newEditStates() *editStates {
	return &editStates{states: make(map[string]*editState)}
}

func stateKey(sid, dataset string) string {
	return sid + "\x00" + dataset
}

func (e *editStates) get(sid, dataset string) (*editState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[stateKey(sid, dataset)]
	return st, ok
}

func (e *editStates) put(sid, dataset string, st *editState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[stateKey(sid, dataset)] = st
}

func (e *editStates) drop(sid, dataset string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, stateKey(sid, dataset))
}

func newSessionID() string {
	return uuid.NewString()
}
