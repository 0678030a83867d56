package view

import (
	"time"

	"github.com/storesense/counterdash/internal/gateway"
)

// StatusView is the reconciled counter state shown on the dashboard.
// It is replaced wholesale on every applied status result.
type StatusView struct {
	Running       bool   `json:"running"`
	PeopleInStore int    `json:"people_in_store"`
	EntryCount    int    `json:"entry_count"`
	ExitCount     int    `json:"exit_count"`
	CameraName    string `json:"camera_name,omitempty"`
}

// SyncView is the background-sync state with a countdown derived from the
// wall clock at publish time. The countdown is never decremented locally;
// the server's next_sync_time stays authoritative.
type SyncView struct {
	Running       bool  `json:"running"`
	LastSyncOK    bool  `json:"last_sync_ok"`
	SecondsToNext int64 `json:"seconds_to_next"`
}

// NewSyncView derives a SyncView from a sync status and the current time
func NewSyncView(sync gateway.SyncStatus, now time.Time) SyncView {
	remaining := sync.NextSyncTime - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	return SyncView{
		Running:       sync.Running,
		LastSyncOK:    sync.LastSyncOK,
		SecondsToNext: remaining,
	}
}

// FrameView is the latest video frame. Each received frame fully replaces
// the previous one; the latest successful response wins.
type FrameView struct {
	Data       []byte    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
}

// SnapshotView is a captured still presented with a download affordance
type SnapshotView struct {
	URL         string    `json:"url"`
	DownloadURL string    `json:"download_url"`
	TakenAt     time.Time `json:"taken_at"`
}

// StatsSummary holds aggregates recomputed from scratch on every fetch
type StatsSummary struct {
	TotalEntries   int `json:"total_entries"`
	AverageEntries int `json:"average_entries"`
	PeakCount      int `json:"peak_count"`
	SampleCount    int `json:"sample_count"`
}

// TrendSeries is the chart-ready daily series, oldest first
type TrendSeries struct {
	Labels  []string `json:"labels"`
	Entries []int    `json:"entries"`
	Exits   []int    `json:"exits"`
}

// DistributionSeries is the share-chart model: each day's slice of the
// window's entries, oldest first.
type DistributionSeries struct {
	Labels  []string `json:"labels"`
	Entries []int    `json:"entries"`
}

// PeakSeries is the busy-times chart model: the highest peak count
// observed at each time of day across the window. Samples without a
// recorded peak time are left out.
type PeakSeries struct {
	Times  []string `json:"times"`
	Counts []int    `json:"counts"`
}

// StatsReport is a full statistics view. A fresh report is built on every
// load; charts and tables are rebuilt, never patched in place.
type StatsReport struct {
	Samples      []gateway.StatSample `json:"samples"` // table rows, newest first
	Trend        TrendSeries          `json:"trend"`
	Distribution DistributionSeries   `json:"distribution"`
	Peaks        PeakSeries           `json:"peaks"`
	Summary      StatsSummary         `json:"summary"`
}

// StatusSink receives reconciled status state
type StatusSink interface {
	PublishStatus(StatusView)
}

// FrameSink receives the latest video frame
type FrameSink interface {
	PublishFrame(FrameView)
}

// SyncSink receives background-sync state
type SyncSink interface {
	PublishSync(SyncView)
}

// ClockSink receives wall-clock updates
type ClockSink interface {
	PublishClock(time.Time)
}

// SnapshotSink receives captured stills
type SnapshotSink interface {
	PublishSnapshot(SnapshotView)
}

// StatsSink receives rebuilt statistics reports
type StatsSink interface {
	PublishStats(*StatsReport)
}

// Sinks bundles every view surface the controllers publish into
type Sinks struct {
	Status   StatusSink
	Frame    FrameSink
	Sync     SyncSink
	Clock    ClockSink
	Snapshot SnapshotSink
	Stats    StatsSink
}
