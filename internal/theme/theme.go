package theme

import (
	"context"
	"sync"

	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/state"
)

const (
	Light = "light"
	Dark  = "dark"

	stateKey = "theme"
)

// Controller holds the operator's theme preference. The preference survives
// restarts; it is the only thing persisted locally.
type Controller struct {
	store  *state.Store
	logger *logger.Logger

	mu      sync.RWMutex
	current string
}

// NewController creates the theme controller with the stored preference,
// defaulting to light when none was saved.
func NewController(ctx context.Context, store *state.Store, log *logger.Logger) (*Controller, error) {
	saved, err := store.Get(ctx, stateKey)
	if err != nil {
		return nil, err
	}
	if saved != Dark {
		saved = Light
	}

	return &Controller{
		store:   store,
		logger:  log,
		current: saved,
	}, nil
}

// Current returns the active theme
func (c *Controller) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Toggle flips between light and dark and persists the choice
func (c *Controller) Toggle(ctx context.Context) (string, error) {
	c.mu.Lock()
	next := Light
	if c.current == Light {
		next = Dark
	}
	c.current = next
	c.mu.Unlock()

	if err := c.store.Set(ctx, stateKey, next); err != nil {
		c.logger.Warn("Failed to persist theme", "theme", next, "error", err)
		return next, err
	}

	c.logger.Debug("Theme changed", "theme", next)
	return next, nil
}

// Set applies a specific theme and persists it. Unknown values fall back
// to light.
func (c *Controller) Set(ctx context.Context, name string) (string, error) {
	if name != Dark {
		name = Light
	}

	c.mu.Lock()
	c.current = name
	c.mu.Unlock()

	if err := c.store.Set(ctx, stateKey, name); err != nil {
		return name, err
	}
	return name, nil
}
