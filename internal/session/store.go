package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Per-session field file names.
const (
	fieldTask       = "task"
	fieldState      = "state"
	fieldParent     = "parent"
	fieldActivity   = "activity"
	fieldResult     = "result"
	fieldExitReason = "exit_reason"
	fieldCreatedAt  = "created_at"
	fieldRubricPath = "rubric_path"
	nextIDFile      = "next_id"
)

// ErrNotFound is returned when a session id has no directory in the store.
var ErrNotFound = errors.New("session not found")

// Store is a filesystem-backed session state store rooted at a stable
// directory (conventionally ".scope" in the task's working directory).
type Store struct {
	Root string
}

// Open ensures the store layout exists and returns a Store for root.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "sessions"), 0755); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return &Store{Root: root}, nil
}

// SessionDir returns the directory holding a session's field files.
func (s *Store) SessionDir(id string) string {
	return filepath.Join(s.Root, "sessions", id)
}

// NextID allocates the next session id. Root sessions draw from a counter
// file ("0", "1", ...); children scan their parent's existing direct
// children ("<parent>.0", "<parent>.1", ...).
func (s *Store) NextID(parent string) (string, error) {
	if parent == "" {
		path := filepath.Join(s.Root, nextIDFile)
		current := 0
		if data, err := os.ReadFile(path); err == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
				current = n
			}
		}
		if err := writeFileAtomic(path, strconv.Itoa(current+1)); err != nil {
			return "", fmt.Errorf("advance id counter: %w", err)
		}
		return strconv.Itoa(current), nil
	}

	prefix := parent + "."
	maxChild := -1
	entries, err := os.ReadDir(filepath.Join(s.Root, "sessions"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("scan sessions: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		suffix := e.Name()[len(prefix):]
		if strings.Contains(suffix, ".") || strings.Contains(suffix, "-") {
			continue // not a direct child
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > maxChild {
			maxChild = n
		}
	}
	return fmt.Sprintf("%s.%d", parent, maxChild+1), nil
}

// Save persists every field of a session. Each field is written atomically
// (write-temp-then-rename) so concurrent readers never observe a partial
// value.
func (s *Store) Save(sess *Session) error {
	dir := s.SessionDir(sess.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	fields := map[string]string{
		fieldTask:      sess.Task,
		fieldState:     sess.State,
		fieldParent:    sess.Parent,
		fieldActivity:  sess.Activity,
		fieldCreatedAt: createdAt.Format(time.RFC3339Nano),
	}
	for name, value := range fields {
		if err := writeFileAtomic(filepath.Join(dir, name), value); err != nil {
			return fmt.Errorf("write session field %s: %w", name, err)
		}
	}
	return nil
}

// Load reads a session by id. Returns ErrNotFound if no directory exists.
// A session mid-update may yield empty fields; callers that poll should
// simply re-read.
func (s *Store) Load(id string) (*Session, error) {
	dir := s.SessionDir(id)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sess := &Session{
		ID:       id,
		Task:     s.readField(dir, fieldTask),
		Parent:   s.readField(dir, fieldParent),
		State:    s.readField(dir, fieldState),
		Activity: s.readField(dir, fieldActivity),
	}
	if ts := s.readField(dir, fieldCreatedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			sess.CreatedAt = t
		}
	}
	return sess, nil
}

// UpdateState atomically overwrites a session's lifecycle state field.
func (s *Store) UpdateState(id, state string) error {
	return s.writeSessionField(id, fieldState, state)
}

// UpdateActivity atomically overwrites a session's free-text activity marker.
func (s *Store) UpdateActivity(id, activity string) error {
	return s.writeSessionField(id, fieldActivity, activity)
}

// SaveResult persists a session's final result text.
func (s *Store) SaveResult(id, text string) error {
	return s.writeSessionField(id, fieldResult, text)
}

// Result returns a session's result text, or "" if none was written.
func (s *Store) Result(id string) string {
	return strings.TrimSpace(s.readField(s.SessionDir(id), fieldResult))
}

// SaveExitReason persists the reason a worker gave when exiting voluntarily.
func (s *Store) SaveExitReason(id, reason string) error {
	return s.writeSessionField(id, fieldExitReason, reason)
}

// ExitReason returns the persisted exit reason, or "" if none.
func (s *Store) ExitReason(id string) string {
	return strings.TrimSpace(s.readField(s.SessionDir(id), fieldExitReason))
}

// SaveRubricPath records the materialized rubric location for a session.
func (s *Store) SaveRubricPath(id, path string) error {
	return s.writeSessionField(id, fieldRubricPath, path)
}

// RubricPath returns the materialized rubric location, or "" if none.
func (s *Store) RubricPath(id string) string {
	return strings.TrimSpace(s.readField(s.SessionDir(id), fieldRubricPath))
}

// ListAll loads every session in the store, oldest first.
func (s *Store) ListAll() ([]*Session, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, "sessions"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var sessions []*Session
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sess, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// ListChildren returns the direct children of a session, oldest first.
func (s *Store) ListChildren(id string) ([]*Session, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	var children []*Session
	for _, sess := range all {
		if ParentOf(sess.ID) == id {
			children = append(children, sess)
		}
	}
	return children, nil
}

// Descendants returns every session below id in the hierarchy, deepest
// first, so callers can act bottom-up.
func (s *Store) Descendants(id string) ([]*Session, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	var out []*Session
	for _, sess := range all {
		if strings.HasPrefix(sess.ID, id+".") || strings.HasPrefix(sess.ID, id+"-") {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return depth(out[i].ID) > depth(out[j].ID)
	})
	return out, nil
}

// Abort transitions a session and all of its descendants to the aborted
// state. Sessions already in a terminal state are left untouched: terminal
// states never revert.
func (s *Store) Abort(id string) error {
	descendants, err := s.Descendants(id)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if !IsTerminal(d.State) {
			if err := s.UpdateState(d.ID, StateAborted); err != nil {
				return err
			}
		}
	}
	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	if IsTerminal(sess.State) {
		return nil
	}
	return s.UpdateState(id, StateAborted)
}

func depth(id string) int {
	return strings.Count(id, ".") + strings.Count(id, "-")
}

func (s *Store) writeSessionField(id, field, value string) error {
	dir := s.SessionDir(id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := writeFileAtomic(filepath.Join(dir, field), value); err != nil {
		return fmt.Errorf("write %s for session %s: %w", field, id, err)
	}
	return nil
}

func (s *Store) readField(dir, field string) string {
	data, err := os.ReadFile(filepath.Join(dir, field))
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(data), "\n")
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so readers see either the old value or the new one, never
// a partial write.
func writeFileAtomic(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
