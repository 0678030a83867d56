package service

import (
	"sync"
	"time"
)

// Status represents a service lifecycle state
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// ServiceStatus tracks the lifecycle state of one service
type ServiceStatus struct {
	Name      string
	StartedAt time.Time

	mu     sync.RWMutex
	status Status
	err    error
}

// NewServiceStatus creates a status tracker for a service
func NewServiceStatus(name string) *ServiceStatus {
	return &ServiceStatus{
		Name:   name,
		status: StatusStopped,
	}
}

// SetStatus updates the lifecycle state
func (s *ServiceStatus) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	switch status {
	case StatusRunning:
		s.StartedAt = time.Now()
		s.err = nil
	case StatusStopped:
		s.StartedAt = time.Time{}
	}
}

// SetError marks the service as failed
func (s *ServiceStatus) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.err = err
}

// GetStatus returns the current lifecycle state
func (s *ServiceStatus) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// GetError returns the last error, if any
func (s *ServiceStatus) GetError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// IsRunning reports whether the service is running
func (s *ServiceStatus) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusRunning
}

// GetUptime returns how long the service has been running, zero when it
// is not.
func (s *ServiceStatus) GetUptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusRunning || s.StartedAt.IsZero() {
		return 0
	}
	return time.Since(s.StartedAt)
}
