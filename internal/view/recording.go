package view

import (
	"sync"
	"time"
)

// Recorder is a sink implementation that records everything published to
// it, so the synchronization core can be exercised without a real UI.
type Recorder struct {
	mu        sync.Mutex
	Statuses  []StatusView
	Frames    []FrameView
	Syncs     []SyncView
	Clocks    []time.Time
	Snapshots []SnapshotView
	Reports   []*StatsReport
}

// NewRecorder creates a recording sink
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Sinks returns a sink bundle backed by this recorder
func (r *Recorder) Sinks() Sinks {
	return Sinks{
		Status:   r,
		Frame:    r,
		Sync:     r,
		Clock:    r,
		Snapshot: r,
		Stats:    r,
	}
}

// PublishStatus records a status view
func (r *Recorder) PublishStatus(v StatusView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Statuses = append(r.Statuses, v)
}

// PublishFrame records a frame view
func (r *Recorder) PublishFrame(v FrameView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = append(r.Frames, v)
}

// PublishSync records a sync view
func (r *Recorder) PublishSync(v SyncView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Syncs = append(r.Syncs, v)
}

// PublishClock records a clock update
func (r *Recorder) PublishClock(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Clocks = append(r.Clocks, t)
}

// PublishSnapshot records a snapshot view
func (r *Recorder) PublishSnapshot(v SnapshotView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Snapshots = append(r.Snapshots, v)
}

// PublishStats records a stats report
func (r *Recorder) PublishStats(report *StatsReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, report)
}

// LastStatus returns the most recently recorded status view, if any
func (r *Recorder) LastStatus() (StatusView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Statuses) == 0 {
		return StatusView{}, false
	}
	return r.Statuses[len(r.Statuses)-1], true
}

// LastFrame returns the most recently recorded frame, if any
func (r *Recorder) LastFrame() (FrameView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Frames) == 0 {
		return FrameView{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// StatusCount returns how many status views were recorded
func (r *Recorder) StatusCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Statuses)
}

// FrameCount returns how many frames were recorded
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frames)
}

// LastSync returns the most recently recorded sync view, if any
func (r *Recorder) LastSync() (SyncView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Syncs) == 0 {
		return SyncView{}, false
	}
	return r.Syncs[len(r.Syncs)-1], true
}

// LastSnapshot returns the most recently recorded snapshot, if any
func (r *Recorder) LastSnapshot() (SnapshotView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Snapshots) == 0 {
		return SnapshotView{}, false
	}
	return r.Snapshots[len(r.Snapshots)-1], true
}
