package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storesense/counterdash/internal/logger"
)

// Level classifies an alert for presentation
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Alert is a transient, dismissible operator notification
type Alert struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Center collects alerts and fans them out to subscribers.
// Alerts expire after a fixed TTL; expired alerts are pruned when read.
type Center struct {
	mu         sync.Mutex
	alerts     []Alert
	subs       []chan Alert
	ttl        time.Duration
	bufferSize int
	logger     *logger.Logger
}

// NewCenter creates a new alert center
func NewCenter(ttl time.Duration, log *logger.Logger) *Center {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Center{
		ttl:        ttl,
		bufferSize: 64,
		logger:     log,
	}
}

// Push publishes an alert and returns it
func (c *Center) Push(level Level, message string) Alert {
	now := time.Now()
	alert := Alert{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.pruneLocked(now)

	// An identical active alert is refreshed instead of duplicated, so a
	// failing high-frequency poller raises one alert, not a flood.
	for i, a := range c.alerts {
		if a.Level == level && a.Message == message {
			c.alerts[i].ExpiresAt = alert.ExpiresAt
			refreshed := c.alerts[i]
			c.mu.Unlock()
			return refreshed
		}
	}

	c.alerts = append(c.alerts, alert)
	for _, ch := range c.subs {
		select {
		case ch <- alert:
		default:
			// Slow subscriber, drop rather than block a completion handler.
		}
	}
	c.mu.Unlock()

	c.logger.Debug("Alert published", "level", string(level), "message", message)
	return alert
}

// Success publishes a success alert
func (c *Center) Success(message string) Alert { return c.Push(LevelSuccess, message) }

// Info publishes an info alert
func (c *Center) Info(message string) Alert { return c.Push(LevelInfo, message) }

// Warning publishes a warning alert
func (c *Center) Warning(message string) Alert { return c.Push(LevelWarning, message) }

// Danger publishes a failure alert
func (c *Center) Danger(message string) Alert { return c.Push(LevelDanger, message) }

// Active returns the alerts that have not expired or been dismissed
func (c *Center) Active() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(time.Now())
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// Dismiss removes an alert by id, returning whether it was present
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, a := range c.alerts {
		if a.ID == id {
			c.alerts = append(c.alerts[:i], c.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribe returns a channel receiving every alert published after the call
func (c *Center) Subscribe() <-chan Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Alert, c.bufferSize)
	c.subs = append(c.subs, ch)
	return ch
}

func (c *Center) pruneLocked(now time.Time) {
	kept := c.alerts[:0]
	for _, a := range c.alerts {
		if a.ExpiresAt.After(now) {
			kept = append(kept, a)
		}
	}
	c.alerts = kept
}

// Busy tracks in-flight remote calls. Visibility is a boolean OR of
// in-flight calls: the indicator is on while any call is outstanding.
type Busy struct {
	mu    sync.Mutex
	count int
}

// Begin marks a call as started
func (b *Busy) Begin() {
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
}

// End marks a call as finished
func (b *Busy) End() {
	b.mu.Lock()
	if b.count > 0 {
		b.count--
	}
	b.mu.Unlock()
}

// Active reports whether any call is in flight
func (b *Busy) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count > 0
}
