// Package session is the durable, filesystem-backed record of session
// identity, lifecycle state, and iteration history.
//
// Every session lives under <root>/sessions/<id>/ with one file per field,
// so the tree stays inspectable by external tooling while the orchestrator
// is not running. The store is the only channel of communication between
// the orchestrator and its workers: the loop engine is the sole writer of a
// session's loop fields, and the worker process is the sole writer of its
// lifecycle and activity fields. Contention is avoided by that ownership
// convention, not by locking.
package session

import (
	"strconv"
	"strings"
	"time"
)

// Lifecycle states. Terminal states are set exactly once and never revert.
const (
	StatePending = "pending"
	StateRunning = "running"
	StateDone    = "done"
	StateAborted = "aborted"
	StateExited  = "exited"
)

// IsTerminal reports whether a lifecycle state is final.
func IsTerminal(state string) bool {
	switch state {
	case StateDone, StateAborted, StateExited:
		return true
	}
	return false
}

// Session is the persisted identity and lifecycle of one worker session.
type Session struct {
	ID        string
	Task      string
	Parent    string
	State     string
	Activity  string
	CreatedAt time.Time
}

// ParentOf returns the parent id encoded in a hierarchical session id:
// "0.1.2" → "0.1", "0" → "". Iteration-scoped children use a dash suffix
// ("0.1-2-check" → "0.1").
func ParentOf(id string) string {
	if i := strings.Index(id, "-"); i >= 0 {
		return id[:i]
	}
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[:i]
	}
	return ""
}

// IterID derives the id of an iteration-scoped child session, e.g.
// IterID("2.1", 0, "check") → "2.1-0-check".
func IterID(loopID string, iteration int, role string) string {
	return loopID + "-" + strconv.Itoa(iteration) + "-" + role
}
