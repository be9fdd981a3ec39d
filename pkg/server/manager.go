package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"lambo/internal/config"
	"lambo/pkg/lambda"
)

// staleAfter is how long an idle app is still reported healthy
const staleAfter = 5 * time.Minute

// SetupFunc registers routes on a freshly created app
type SetupFunc func(app *App) error

// AppManager keeps one App per execution environment so warm invocations
// reuse the container and the frozen route tree.
type AppManager struct {
	app         *App
	lastUsed    time.Time
	mu          sync.RWMutex
	initialized bool
	initOnce    sync.Once
	initErr     error
	config      *config.Config
	setup       SetupFunc
}

var (
	globalAppManager *AppManager
	appManagerOnce   sync.Once
)

// GetAppManager returns the global app manager instance
func GetAppManager() *AppManager {
	appManagerOnce.Do(func() {
		globalAppManager = NewAppManager()
	})
	return globalAppManager
}

// NewAppManager creates an uninitialized manager
func NewAppManager() *AppManager {
	return &AppManager{}
}

// Initialize builds the container and app from cfg and runs setup on it.
// Only the first call has any effect; later calls return its error.
func (m *AppManager) Initialize(cfg *config.Config, setup SetupFunc) error {
	m.initOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.config = cfg
		m.setup = setup
		m.initErr = m.build()
	})

	return m.initErr
}

func (m *AppManager) build() error {
	source, err := lambda.ParseSource(m.config.Dispatch.Source)
	if err != nil {
		return err
	}

	container, err := NewContainer(m.config)
	if err != nil {
		return err
	}

	app, err := CreateApp(source, container)
	if err != nil {
		return err
	}

	if m.setup != nil {
		if err := m.setup(app); err != nil {
			return err
		}
	}

	m.app = app
	m.lastUsed = time.Now()
	m.initialized = true
	return nil
}

// GetApp returns the app, initializing it from the environment with
// config.GetOptimizedConfig if Initialize was never called.
func (m *AppManager) GetApp(ctx context.Context) (*App, error) {
	m.mu.Lock()
	if m.initialized && m.app != nil {
		m.lastUsed = time.Now()
		app := m.app
		m.mu.Unlock()
		return app, nil
	}
	m.mu.Unlock()

	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(cfg, nil); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.app == nil {
		return nil, errors.New("app manager was cleaned up")
	}
	return m.app, nil
}

// IsHealthy reports whether the app is built and was used recently
func (m *AppManager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized || m.app == nil {
		return false
	}

	return time.Since(m.lastUsed) < staleAfter
}

// Cleanup releases the app. The manager cannot be initialized again.
func (m *AppManager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.app != nil {
		if err := m.app.Close(); err != nil {
			return err
		}
		m.app = nil
	}

	m.initialized = false
	return nil
}

// UpdateLastUsed updates the last used timestamp
func (m *AppManager) UpdateLastUsed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUsed = time.Now()
}
