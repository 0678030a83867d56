package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/storesense/counterdash/internal/config"
	"github.com/storesense/counterdash/internal/confirm"
	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
	"github.com/storesense/counterdash/internal/poll"
	"github.com/storesense/counterdash/internal/view"
)

// Controller owns the operator's camera session: the selected camera, the
// periodic poll tasks, and the one-shot camera commands. The frame poller's
// lifecycle is derived, not independent: every applied status result
// re-evaluates it, so a missed transition heals within one status interval.
type Controller struct {
	gw      *gateway.Client
	logger  *logger.Logger
	alerts  *notify.Center
	confirm confirm.Confirmer
	sinks   view.Sinks

	status *poll.Runner
	frame  *poll.Runner
	clock  *poll.Runner
	sync   *poll.Runner

	mu         sync.Mutex
	runCtx     context.Context
	selected   int
	hasCamera  bool
	cameraName string
	lastStatus gateway.SystemStatus
	hasStatus  bool
}

// NewController creates the camera session controller and its poll tasks
func NewController(
	gw *gateway.Client,
	pollCfg config.PollConfig,
	sinks view.Sinks,
	confirm confirm.Confirmer,
	alerts *notify.Center,
	log *logger.Logger,
) *Controller {
	c := &Controller{
		gw:      gw,
		logger:  log,
		alerts:  alerts,
		confirm: confirm,
		sinks:   sinks,
	}

	c.status = poll.NewRunner("status", pollCfg.StatusInterval, c.statusTick, log)
	c.frame = poll.NewRunner("frame", pollCfg.FrameInterval, c.frameTick, log)
	c.clock = poll.NewRunner("clock", pollCfg.ClockInterval, c.clockTick, log)
	c.sync = poll.NewRunner("sync", pollCfg.SyncInterval, c.syncTick, log)

	return c
}

// Name returns the service name
func (c *Controller) Name() string { return "camera-session" }

// Start begins the independent poll tasks. The frame poller is not started
// here; it follows the applied status results.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	c.clock.Start(ctx)
	c.sync.Start(ctx)
	c.status.Start(ctx)

	c.logger.Info("Camera session started")
	return nil
}

// Stop stops all poll tasks. The status runner goes first: it drives the
// frame lifecycle, and a completion applying after frame.Stop would
// restart the frame poller.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = nil
	c.mu.Unlock()

	c.status.Stop()
	c.frame.Stop()
	c.sync.Stop()
	c.clock.Stop()
	c.logger.Info("Camera session stopped")
	return nil
}

// statusTick fetches system status and reconciles it into the status view.
// A failed fetch leaves prior view state untouched and the task ticking.
func (c *Controller) statusTick(ctx context.Context, seq uint64) {
	status, err := c.gw.Status(ctx)
	if err != nil {
		c.logger.Debug("Status poll failed", "error", err)
		return
	}

	c.status.Apply(seq, func() {
		c.applyStatus(*status)
	})
}

// applyStatus replaces the status view wholesale and re-derives the frame
// poller lifecycle. Evaluated on every applied result, not just transitions.
func (c *Controller) applyStatus(status gateway.SystemStatus) {
	c.mu.Lock()
	c.lastStatus = status
	c.hasStatus = true
	name := c.cameraName
	selected := c.hasCamera
	runCtx := c.runCtx
	c.mu.Unlock()

	c.sinks.Status.PublishStatus(view.StatusView{
		Running:       status.Running,
		PeopleInStore: status.PeopleInStore,
		EntryCount:    status.EntryCount,
		ExitCount:     status.ExitCount,
		CameraName:    name,
	})

	if status.Sync != nil {
		c.sinks.Sync.PublishSync(view.NewSyncView(*status.Sync, time.Now()))
	}

	if status.Running && selected && runCtx != nil {
		c.frame.Start(runCtx)
	} else {
		c.frame.Stop()
	}
}

// frameTick fetches the latest frame for the selected camera
func (c *Controller) frameTick(ctx context.Context, seq uint64) {
	c.mu.Lock()
	cameraID, ok := c.selected, c.hasCamera
	c.mu.Unlock()
	if !ok {
		return
	}

	data, err := c.gw.Frame(ctx, cameraID)
	if err != nil {
		c.logger.Debug("Frame poll failed", "camera_id", cameraID, "error", err)
		return
	}

	c.frame.Apply(seq, func() {
		c.sinks.Frame.PublishFrame(view.FrameView{Data: data, CapturedAt: time.Now()})
	})
}

// clockTick publishes the current wall-clock time
func (c *Controller) clockTick(ctx context.Context, seq uint64) {
	c.clock.Apply(seq, func() {
		c.sinks.Clock.PublishClock(time.Now())
	})
}

// syncTick fetches status for its sync section only
func (c *Controller) syncTick(ctx context.Context, seq uint64) {
	status, err := c.gw.Status(ctx)
	if err != nil {
		c.logger.Debug("Sync status poll failed", "error", err)
		return
	}
	if status.Sync == nil {
		return
	}

	c.sync.Apply(seq, func() {
		c.sinks.Sync.PublishSync(view.NewSyncView(*status.Sync, time.Now()))
	})
}

// SelectCamera sets the active camera and fetches its detail for the label.
// It does not start or stop polling; the next applied status result does.
func (c *Controller) SelectCamera(ctx context.Context, cameraID int) error {
	c.mu.Lock()
	c.selected = cameraID
	c.hasCamera = true
	c.mu.Unlock()

	detail, err := c.gw.CameraDetail(ctx, cameraID)
	if err != nil {
		c.logger.Warn("Failed to load camera detail", "camera_id", cameraID, "error", err)
		return err
	}

	c.mu.Lock()
	c.cameraName = detail.Name
	c.mu.Unlock()
	return nil
}

// ClearSelection drops the active camera. The frame poller stops on the
// next applied status result.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.hasCamera = false
	c.cameraName = ""
	c.mu.Unlock()
}

// StartCamera issues the start command and requests an immediate status
// refresh so the UI reflects the new state without waiting a full interval.
func (c *Controller) StartCamera(ctx context.Context) error {
	if _, err := c.gw.StartCamera(ctx); err != nil {
		c.notifyCommandFailure("Cannot start camera", err)
		return err
	}

	c.alerts.Success("Camera started")
	c.status.Refresh()
	return nil
}

// StopCamera issues the stop command and refreshes status immediately
func (c *Controller) StopCamera(ctx context.Context) error {
	if _, err := c.gw.StopCamera(ctx); err != nil {
		c.notifyCommandFailure("Cannot stop camera", err)
		return err
	}

	c.alerts.Success("Camera stopped")
	c.status.Refresh()
	return nil
}

// ResetCounters asks for confirmation, then issues the reset command
func (c *Controller) ResetCounters(ctx context.Context) error {
	if !c.confirm.Confirm(ctx, "Reset all visitor counters?") {
		c.logger.Debug("Counter reset declined")
		return nil
	}

	if _, err := c.gw.ResetCounters(ctx); err != nil {
		c.notifyCommandFailure("Cannot reset counters", err)
		return err
	}

	c.alerts.Success("Counters reset")
	c.status.Refresh()
	return nil
}

// TakeSnapshot captures a still from the selected camera and presents it
// with a download affordance
func (c *Controller) TakeSnapshot(ctx context.Context) error {
	c.mu.Lock()
	cameraID, ok := c.selected, c.hasCamera
	c.mu.Unlock()
	if !ok {
		c.alerts.Warning("No camera selected")
		return &gateway.ValidationError{Field: "camera", Reason: "no camera selected"}
	}

	url, err := c.gw.Snapshot(ctx, cameraID)
	if err != nil {
		c.notifyCommandFailure("Cannot take snapshot", err)
		return err
	}

	c.sinks.Snapshot.PublishSnapshot(view.SnapshotView{
		URL:         url,
		DownloadURL: url,
		TakenAt:     time.Now(),
	})
	c.alerts.Success("Snapshot captured")
	return nil
}

// Reload requests a full re-derivation of live state from the service
func (c *Controller) Reload(ctx context.Context) error {
	c.status.Refresh()
	return nil
}

// RefreshStatus requests an immediate out-of-band status poll
func (c *Controller) RefreshStatus() {
	c.status.Refresh()
}

// Selected returns the active camera id, if any
func (c *Controller) Selected() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.hasCamera
}

// CameraName returns the active camera's display name
func (c *Controller) CameraName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cameraName
}

// LastStatus returns the most recently applied system status
func (c *Controller) LastStatus() (gateway.SystemStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus, c.hasStatus
}

// FramePolling reports whether the frame poll task is live
func (c *Controller) FramePolling() bool {
	return c.frame.Running()
}

// notifyCommandFailure presents an application rejection; transport and
// protocol failures were already alerted by the gateway.
func (c *Controller) notifyCommandFailure(prefix string, err error) {
	var appErr *gateway.ApplicationError
	if errors.As(err, &appErr) {
		c.alerts.Danger(prefix + ": " + appErr.Message)
	}
}
