// Package staging owns the on-disk area where downloads land before they are
// streamed to the client. Each download gets its own session directory under
// the staging root, so concurrent requests never see each other's files.
package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNoFile is returned by Session.Result when the download left nothing behind.
	ErrNoFile = errors.New("staging: no file produced")

	// ErrMultipleFiles is returned by Session.Result when more than one file
	// was produced and there is no way to tell which one was requested.
	ErrMultipleFiles = errors.New("staging: more than one file produced")
)

type Manager struct {
	root string

	mu     sync.Mutex
	active map[string]struct{}
}

func NewManager(root string) *Manager {
	return &Manager{
		root:   root,
		active: make(map[string]struct{}),
	}
}

// Root returns the staging root directory.
func (m *Manager) Root() string {
	return m.root
}

// EnsureDirectory creates the staging root (and parents). Idempotent.
func (m *Manager) EnsureDirectory() error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("create staging dir %s: %w", m.root, err)
	}
	return nil
}

// Purge deletes every entry directly inside the staging root except the
// directories of sessions still in flight. Individual failures are logged
// and skipped. It returns the number of entries removed.
func (m *Manager) Purge() int {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("staging purge: read dir failed", "dir", m.root, "error", err)
		}
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, e := range entries {
		if _, busy := m.active[e.Name()]; busy {
			continue
		}
		p := filepath.Join(m.root, e.Name())
		if err := os.RemoveAll(p); err != nil {
			slog.Warn("staging purge: remove failed", "path", p, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// Begin purges stale content and opens a fresh session directory.
func (m *Manager) Begin(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.EnsureDirectory(); err != nil {
		return nil, err
	}

	if n := m.Purge(); n > 0 {
		slog.Debug("staging purged", "removed", n)
	}

	id := uuid.NewString()
	dir := filepath.Join(m.root, id)

	m.mu.Lock()
	m.active[id] = struct{}{}
	m.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		m.release(id)
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	return &Session{id: id, dir: dir, manager: m}, nil
}

// ActiveSessions returns the number of sessions not yet released.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// Session is one download's private staging directory.
type Session struct {
	id      string
	dir     string
	manager *Manager
	once    sync.Once
}

func (s *Session) ID() string  { return s.id }
func (s *Session) Dir() string { return s.dir }

// Purge empties the session directory, best-effort.
func (s *Session) Purge() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		p := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			slog.Warn("staging session purge: remove failed", "path", p, "error", err)
		}
	}
}

// Result returns the path of the single regular file in the session.
// Partial downloads (*.part, *.ytdl) are ignored.
func (s *Session) Result() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("list session dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || isPartial(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}

	switch len(files) {
	case 0:
		return "", ErrNoFile
	case 1:
		return filepath.Join(s.dir, files[0]), nil
	default:
		sort.Strings(files)
		return "", fmt.Errorf("%w: %v", ErrMultipleFiles, files)
	}
}

// Release hands the session back. The staged file stays on disk until the
// next Purge removes it. Safe to call more than once.
func (s *Session) Release() {
	s.once.Do(func() { s.manager.release(s.id) })
}

func isPartial(name string) bool {
	switch filepath.Ext(name) {
	case ".part", ".ytdl":
		return true
	}
	return false
}
