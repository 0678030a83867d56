package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
)

// Client is the HTTP gateway to the remote counter service. Every call
// toggles the shared busy indicator for its duration and publishes a danger
// alert on transport or protocol failure. Application-level rejections
// (success=false) are returned as *ApplicationError for the caller to
// present; validation never reaches the gateway. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
	alerts     *notify.Center
	busy       *notify.Busy
}

// ClientConfig contains configuration for the gateway client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new gateway client
func NewClient(cfg ClientConfig, alerts *notify.Center, busy *notify.Busy, log *logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
		alerts: alerts,
		busy:   busy,
	}
}

// do performs one request against the remote service and decodes the JSON
// response into out. Failure surfaces exactly one danger alert.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	c.busy.Begin()
	defer c.busy.End()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := &TransportError{Op: method + " " + path, Err: err}
		c.logger.Warn("Remote call failed", "path", path, "error", err)
		c.alerts.Danger(fmt.Sprintf("Cannot reach counter service: %v", err))
		return terr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		terr := &TransportError{Op: method + " " + path, Err: err}
		c.logger.Warn("Failed to read response", "path", path, "error", err)
		c.alerts.Danger("Counter service response could not be read")
		return terr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProtocolError{Op: method + " " + path, StatusCode: resp.StatusCode}
		c.logger.Warn("Remote call returned error status",
			"path", path,
			"status", resp.StatusCode,
			"latency", time.Since(start),
		)
		c.alerts.Danger(fmt.Sprintf("Counter service returned status %d", resp.StatusCode))
		return perr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			perr := &ProtocolError{Op: method + " " + path, StatusCode: resp.StatusCode, Err: err}
			c.logger.Warn("Malformed response body", "path", path, "error", err)
			c.alerts.Danger("Counter service sent a malformed response")
			return perr
		}
	}

	c.logger.Debug("Remote call completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)
	return nil
}

// command posts to an envelope-shaped endpoint and returns the server message
func (c *Client) command(ctx context.Context, path string, body interface{}) (string, error) {
	var env apiEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, &env); err != nil {
		return "", err
	}
	if !env.Success {
		return "", &ApplicationError{Op: path, Message: env.Message}
	}
	return env.Message, nil
}

// Status fetches the whole-system counter status
func (c *Client) Status(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Frame fetches and decodes the latest video frame of a camera
func (c *Client) Frame(ctx context.Context, cameraID int) ([]byte, error) {
	var resp struct {
		Frame string `json:"frame"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/frame/%d", cameraID), nil, &resp); err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(resp.Frame)
	if err != nil {
		c.logger.Warn("Malformed frame payload", "camera_id", cameraID, "error", err)
		c.alerts.Danger("Counter service sent a malformed frame")
		return nil, &ProtocolError{Op: "frame decode", Err: err}
	}
	return data, nil
}

// StartCamera starts the counting camera
func (c *Client) StartCamera(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/camera/start", nil)
}

// StopCamera stops the counting camera
func (c *Client) StopCamera(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/camera/stop", nil)
}

// ResetCounters resets all visitor counters
func (c *Client) ResetCounters(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/camera/reset", nil)
}

// Snapshot captures a still image from a camera and returns its URL
func (c *Client) Snapshot(ctx context.Context, cameraID int) (string, error) {
	var resp struct {
		apiEnvelope
		URL string `json:"url"`
	}
	body := map[string]int{"camera_id": cameraID}
	if err := c.do(ctx, http.MethodPost, "/api/camera/snapshot", body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &ApplicationError{Op: "/api/camera/snapshot", Message: resp.Message}
	}
	return resp.URL, nil
}

// CameraDetail fetches the full record of one camera
func (c *Client) CameraDetail(ctx context.Context, cameraID int) (*CameraSnapshot, error) {
	var resp struct {
		apiEnvelope
		Camera CameraSnapshot `json:"camera"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/camera/%d", cameraID), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ApplicationError{Op: "/api/camera", Message: resp.Message}
	}
	return &resp.Camera, nil
}

// AddCamera creates a camera record
func (c *Client) AddCamera(ctx context.Context, camera CameraUpsert) (string, error) {
	return c.command(ctx, "/api/camera/add", camera)
}

// EditCamera updates a camera record
func (c *Client) EditCamera(ctx context.Context, cameraID int, camera CameraUpsert) (string, error) {
	return c.command(ctx, fmt.Sprintf("/api/camera/edit/%d", cameraID), camera)
}

// DeleteCamera removes a camera record
func (c *Client) DeleteCamera(ctx context.Context, cameraID int) (string, error) {
	return c.command(ctx, fmt.Sprintf("/api/camera/delete/%d", cameraID), nil)
}

// TestConnection probes a camera configuration without persisting anything
func (c *Client) TestConnection(ctx context.Context, probe ConnectionProbe) (string, error) {
	return c.command(ctx, "/api/camera/test_connection", probe)
}

// StatsData fetches aggregate visitor statistics
func (c *Client) StatsData(ctx context.Context, params url.Values) ([]StatSample, error) {
	var resp struct {
		apiEnvelope
		Data []StatSample `json:"data"`
	}
	path := "/api/stats/data"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ApplicationError{Op: "/api/stats/data", Message: resp.Message}
	}
	return resp.Data, nil
}

// ExportReport requests a server-side report and returns its filename
func (c *Client) ExportReport(ctx context.Context, startDate, endDate string) (string, error) {
	var resp struct {
		apiEnvelope
		Filename string `json:"filename"`
	}
	body := map[string]string{"start_date": startDate, "end_date": endDate}
	if err := c.do(ctx, http.MethodPost, "/api/stats/export", body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &ApplicationError{Op: "/api/stats/export", Message: resp.Message}
	}
	return resp.Filename, nil
}

// SaveSettings persists service settings on the remote side
func (c *Client) SaveSettings(ctx context.Context, settings Settings) (string, error) {
	return c.command(ctx, "/api/settings/save", settings)
}

// DownloadURL resolves a server-generated filename to a fetchable URL
func (c *Client) DownloadURL(filename string) string {
	return c.baseURL + "/api/download/" + url.PathEscape(filename)
}
