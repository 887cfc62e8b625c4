package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/heimdex/heimdex-editor/internal/project"
)

// Manager tracks the open sessions of the process. A project is open in at
// most one session at a time.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session on a new, unsaved project. The project is created
// on its first save.
func (m *Manager) Create(name, description string) *Session {
	s := newSession(m.deps, openParams{name: name, description: description})
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	s.logger.Info("session created")
	return s
}

// Open returns a session on a saved project, reusing an existing one.
func (m *Manager) Open(ctx context.Context, projectID string) (*Session, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("%w: empty id", project.ErrNotFound)
	}
	if s := m.FindProject(projectID); s != nil {
		return s, nil
	}

	if m.deps.Projects == nil {
		return nil, fmt.Errorf("open project %s: no project store", projectID)
	}
	p, tl, err := m.deps.Projects.Open(ctx, projectID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.findProjectLocked(projectID); s != nil {
		return s, nil
	}
	s := newSession(m.deps, openParams{
		projectID:   p.ID,
		name:        p.Name,
		description: p.Description,
		tl:          tl,
		settings:    p.Settings,
	})
	m.sessions[s.id] = s
	s.logger.Info("session opened", "project_id", p.ID, "clips", tl.Len())
	return s, nil
}

// FindProject returns the session editing projectID, or nil.
func (m *Manager) FindProject(projectID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findProjectLocked(projectID)
}

func (m *Manager) findProjectLocked(projectID string) *Session {
	if projectID == "" {
		return nil
	}
	for _, s := range m.sessions {
		if s.ProjectID() == projectID {
			return s
		}
	}
	return nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// IDs lists open session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Close saves and closes one session.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	err := s.Close(ctx)
	if err != nil {
		s.logger.Error("session closed with unsaved edits", "error", err)
	} else {
		s.logger.Info("session closed")
	}
	return err
}

// CloseAll closes every session, joining their errors.
func (m *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.IDs() {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
