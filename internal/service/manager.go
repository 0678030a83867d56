package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/storesense/counterdash/internal/logger"
)

// Service represents a service that can be started and stopped
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}

// Manager manages the lifecycle of all services
type Manager struct {
	logger     *logger.Logger
	services   []Service
	statuses   map[string]*ServiceStatus
	mu         sync.RWMutex
	startOrder []string
}

// NewManager creates a new service manager
func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		logger:   log,
		services: make([]Service, 0),
		statuses: make(map[string]*ServiceStatus),
	}
}

// Register registers a service with the manager
func (m *Manager) Register(svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, svc)
	m.statuses[svc.Name()] = NewServiceStatus(svc.Name())
}

// Start starts all registered services in registration order. The first
// failure aborts the startup and stops everything already started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting services", "count", len(m.services))

	for _, svc := range m.services {
		status := m.statuses[svc.Name()]
		status.SetStatus(StatusStarting)

		if err := svc.Start(ctx); err != nil {
			status.SetError(err)
			m.logger.Error("Service failed to start",
				"service", svc.Name(),
				"error", err,
			)
			m.stopStartedLocked(ctx)
			return fmt.Errorf("failed to start %s: %w", svc.Name(), err)
		}

		status.SetStatus(StatusRunning)
		m.startOrder = append(m.startOrder, svc.Name())
		m.logger.Info("Service started", "service", svc.Name())
	}

	return nil
}

// Shutdown gracefully stops all services in reverse order of start
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Shutting down services", "count", len(m.startOrder))

	done := make(chan struct{})
	go func() {
		m.stopStartedLocked(ctx)
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All services stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// stopStartedLocked stops every started service, newest first
func (m *Manager) stopStartedLocked(ctx context.Context) {
	for i := len(m.startOrder) - 1; i >= 0; i-- {
		name := m.startOrder[i]
		status := m.statuses[name]

		var svc Service
		for _, s := range m.services {
			if s.Name() == name {
				svc = s
				break
			}
		}
		if svc == nil {
			continue
		}

		status.SetStatus(StatusStopping)
		m.logger.Info("Stopping service", "service", name)

		stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := svc.Stop(stopCtx); err != nil {
			status.SetError(err)
			m.logger.Error("Error stopping service", "service", name, "error", err)
		} else {
			status.SetStatus(StatusStopped)
			m.logger.Info("Service stopped", "service", name)
		}
		cancel()
	}

	m.startOrder = m.startOrder[:0]
}

// GetServiceCount returns the number of registered services
func (m *Manager) GetServiceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// GetServiceStatus returns the status of a service
func (m *Manager) GetServiceStatus(name string) *ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[name]
}

// GetAllStatuses returns all service statuses
func (m *Manager) GetAllStatuses() map[string]*ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[string]*ServiceStatus, len(m.statuses))
	for name, status := range m.statuses {
		statuses[name] = status
	}
	return statuses
}
