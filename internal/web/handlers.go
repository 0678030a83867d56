package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storesense/counterdash/internal/cameras"
	"github.com/storesense/counterdash/internal/confirm"
	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/stats"
)

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	uptime := time.Since(s.startTime)
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"service":        "counterdash",
		"uptime_seconds": int64(uptime.Seconds()),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// handleUIState serves the full reconciled view state in one response
func (s *Server) handleUIState(c *gin.Context) {
	state := gin.H{
		"theme": s.theme.Current(),
		"busy":  s.busy.Active(),
	}
	if status := s.views.Status(); status != nil {
		state["status"] = status
	}
	if sync := s.views.Sync(); sync != nil {
		state["sync"] = sync
	}
	if clock := s.views.Clock(); !clock.IsZero() {
		state["clock"] = clock.Format(time.RFC3339)
	}
	if snapshot := s.views.Snapshot(); snapshot != nil {
		state["snapshot"] = snapshot
	}
	if report := s.views.Report(); report != nil {
		state["stats"] = report
	}
	if frame := s.views.Frame(); frame != nil {
		state["frame_captured_at"] = frame.CapturedAt.Format(time.RFC3339Nano)
	}
	if id, ok := s.session.Selected(); ok {
		state["selected_camera"] = id
		state["camera_name"] = s.session.CameraName()
	}

	c.JSON(http.StatusOK, state)
}

// handleUIFrame serves the latest frame blob
func (s *Server) handleUIFrame(c *gin.Context) {
	frame := s.views.Frame()
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame available"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", frame.Data)
}

// handleAlerts lists the active alerts
func (s *Server) handleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": s.alerts.Active()})
}

// handleDismissAlert dismisses one alert by id
func (s *Server) handleDismissAlert(c *gin.Context) {
	if !s.alerts.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCameraStart forwards the start command
func (s *Server) handleCameraStart(c *gin.Context) {
	if err := s.session.StartCamera(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCameraStop forwards the stop command
func (s *Server) handleCameraStop(c *gin.Context) {
	if err := s.session.StopCamera(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCameraReset forwards the counter reset. The caller's confirmation
// travels on the context; without it the reset is declined.
func (s *Server) handleCameraReset(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	c.ShouldBindJSON(&req)

	ctx := confirm.WithApproval(c.Request.Context(), req.Confirm)
	if err := s.session.ResetCounters(ctx); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "confirmed": req.Confirm})
}

// handleCameraSnapshot captures a still from the selected camera
func (s *Server) handleCameraSnapshot(c *gin.Context) {
	if err := s.session.TakeSnapshot(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "snapshot": s.views.Snapshot()})
}

// handleCameraSelect sets the active camera
func (s *Server) handleCameraSelect(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	if err := s.session.SelectCamera(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "camera_name": s.session.CameraName()})
}

// handleCameraGet serves a camera's editable form, password blanked
func (s *Server) handleCameraGet(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	form, err := s.cameras.LoadForEdit(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "camera": form})
}

// handleCameraAdd creates a camera record
func (s *Server) handleCameraAdd(c *gin.Context) {
	var form cameras.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.cameras.Add(c.Request.Context(), &form); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCameraEdit updates a camera record
func (s *Server) handleCameraEdit(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	var form cameras.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.cameras.Update(c.Request.Context(), id, &form); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCameraDelete removes a camera record, gated on the caller's
// confirmation
func (s *Server) handleCameraDelete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return
	}

	var req struct {
		Confirm bool `json:"confirm"`
	}
	c.ShouldBindJSON(&req)

	ctx := confirm.WithApproval(c.Request.Context(), req.Confirm)
	if err := s.cameras.Delete(ctx, id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "confirmed": req.Confirm})
}

// handleCameraTestConnection probes a camera configuration
func (s *Server) handleCameraTestConnection(c *gin.Context) {
	var form cameras.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.cameras.TestConnection(c.Request.Context(), &form); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleStatsData loads statistics for a window and serves the fresh report
func (s *Server) handleStatsData(c *gin.Context) {
	query := stats.Query{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days value"})
			return
		}
		query.Days = days
	}

	report, err := s.stats.Load(c.Request.Context(), query)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// handleStatsExport requests a server-side report
func (s *Server) handleStatsExport(c *gin.Context) {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	url, err := s.stats.Export(c.Request.Context(), req.StartDate, req.EndDate)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "download_url": url})
}

// handleThemeGet serves the active theme
func (s *Server) handleThemeGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": s.theme.Current()})
}

// handleThemeToggle flips the theme, or sets a specific one when the body
// names it
func (s *Server) handleThemeToggle(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	c.ShouldBindJSON(&req)

	var (
		applied string
		err     error
	)
	if req.Theme != "" {
		applied, err = s.theme.Set(c.Request.Context(), req.Theme)
	} else {
		applied, err = s.theme.Toggle(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": applied})
}

// handleSettingsSave forwards service settings to the remote side
func (s *Server) handleSettingsSave(c *gin.Context) {
	var settings gateway.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := s.gw.SaveSettings(c.Request.Context(), settings)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// respondError maps the error taxonomy onto HTTP statuses: local validation
// is the caller's fault, an application rejection passes through, transport
// and protocol failures mean the upstream is unreachable.
func (s *Server) respondError(c *gin.Context, err error) {
	var verr *gateway.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Error()})
		return
	}

	var appErr *gateway.ApplicationError
	if errors.As(err, &appErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": appErr.Message})
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
}
