package skills

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/omegacore/omega/pkg/models"
)

// Manager loads the SKILL.md catalog from a skills directory and keeps
// it warm. Correctness never depends on the watcher: every public
// method reloads from disk whenever dirty is set, and Reload can
// always be called directly regardless of watcher state.
type Manager struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	skills []*models.Skill
	binOK  map[string]bool

	dirty   atomic.Bool
	watcher *fsnotify.Watcher
}

// NewManager returns a Manager rooted at dir. dir need not exist yet —
// an empty catalog is used until it does.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{dir: dir, logger: logger.With("component", "skills"), binOK: make(map[string]bool)}
	m.dirty.Store(true)
	return m
}

// Watch starts an fsnotify watcher on dir so external edits mark the
// catalog dirty for the next Skills()/Match() call. It is optional:
// callers that never invoke Watch still get fresh results by calling
// Reload explicitly.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		w.Close()
		return err
	}
	if err := w.Add(m.dir); err != nil {
		w.Close()
		return err
	}
	m.watcher = w

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				m.dirty.Store(true)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.logger.Warn("skills watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Reload rescans dir unconditionally.
func (m *Manager) Reload() error {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		m.mu.Lock()
		m.skills = nil
		m.mu.Unlock()
		m.dirty.Store(false)
		return nil
	}
	if err != nil {
		return err
	}

	var loaded []*models.Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(m.dir, entry.Name(), Filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		skill, err := ParseFile(path)
		if err != nil {
			m.logger.Warn("skipping invalid skill", "dir", dirName(path), "error", err)
			continue
		}
		loaded = append(loaded, skill)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Name < loaded[j].Name })

	m.mu.Lock()
	m.skills = loaded
	m.mu.Unlock()
	m.dirty.Store(false)
	return nil
}

// Skills returns the current catalog, reloading first if dirty.
func (m *Manager) Skills() ([]*models.Skill, error) {
	if m.dirty.Load() {
		if err := m.Reload(); err != nil {
			return nil, err
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Skill, len(m.skills))
	copy(out, m.skills)
	return out, nil
}

// Match returns the skills whose trigger matches text and whose
// required binaries are all present on PATH.
func (m *Manager) Match(text string) ([]*models.Skill, error) {
	all, err := m.Skills()
	if err != nil {
		return nil, err
	}
	var available []*models.Skill
	for _, s := range MatchTriggers(all, text) {
		if s.Available(m.resolvedBinaries(s.RequiredBinaries)) {
			available = append(available, s)
		}
	}
	return available, nil
}

// resolvedBinaries resolves and caches exec.LookPath results for the
// given binary names so repeated Match calls don't re-stat PATH.
func (m *Manager) resolvedBinaries(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	resolved := make(map[string]bool, len(names))
	for _, name := range names {
		if ok, known := m.binOK[name]; known {
			resolved[name] = ok
			continue
		}
		_, err := exec.LookPath(name)
		ok := err == nil
		m.binOK[name] = ok
		resolved[name] = ok
	}
	return resolved
}
