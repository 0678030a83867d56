package web

import (
	"sync"
	"time"

	"github.com/storesense/counterdash/internal/view"
)

// ViewStore holds the latest published value of every view surface.
// Each publish replaces the stored value wholesale, latest wins.
type ViewStore struct {
	mu       sync.RWMutex
	status   *view.StatusView
	sync     *view.SyncView
	clock    time.Time
	frame    *view.FrameView
	snapshot *view.SnapshotView
	report   *view.StatsReport
}

// NewViewStore creates an empty view store
func NewViewStore() *ViewStore {
	return &ViewStore{}
}

// Sinks returns the view sinks backed by this store
func (v *ViewStore) Sinks() view.Sinks {
	return view.Sinks{
		Status:   v,
		Frame:    v,
		Sync:     v,
		Clock:    v,
		Snapshot: v,
		Stats:    v,
	}
}

// PublishStatus stores the latest reconciled status view
func (v *ViewStore) PublishStatus(s view.StatusView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = &s
}

// PublishFrame stores the latest frame
func (v *ViewStore) PublishFrame(f view.FrameView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame = &f
}

// PublishSync stores the latest sync view
func (v *ViewStore) PublishSync(s view.SyncView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sync = &s
}

// PublishClock stores the latest wall-clock reading
func (v *ViewStore) PublishClock(t time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clock = t
}

// PublishSnapshot stores the latest captured still
func (v *ViewStore) PublishSnapshot(s view.SnapshotView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot = &s
}

// PublishStats stores the latest statistics report
func (v *ViewStore) PublishStats(report *view.StatsReport) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.report = report
}

// Status returns the latest status view, if any
func (v *ViewStore) Status() *view.StatusView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Sync returns the latest sync view, if any
func (v *ViewStore) Sync() *view.SyncView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sync
}

// Clock returns the latest wall-clock reading
func (v *ViewStore) Clock() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.clock
}

// Frame returns the latest frame, if any
func (v *ViewStore) Frame() *view.FrameView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frame
}

// Snapshot returns the latest captured still, if any
func (v *ViewStore) Snapshot() *view.SnapshotView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot
}

// Report returns the latest statistics report, if any
func (v *ViewStore) Report() *view.StatsReport {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.report
}
