package cameras

import (
	"context"
	"errors"
	"fmt"

	"github.com/storesense/counterdash/internal/confirm"
	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
)

// Reloader re-derives live state from the remote service after a mutation
type Reloader interface {
	Reload(ctx context.Context) error
}

// Form carries one camera's editable fields. Which connection fields apply
// depends on ConnectionMode: direct uses Source, params uses the
// host/port/username/password/channel/path set. The inactive set is never
// submitted, whatever the form holds.
type Form struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	ConnectionMode string `json:"connection_mode"`
	Source         string `json:"source"`
	Host           string `json:"host"`
	Port           string `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Channel        string `json:"channel"`
	Path           string `json:"path"`
	DetectionLine  int    `json:"detection_line"`
	DetectionAngle int    `json:"detection_angle"`
	MinArea        int    `json:"min_area"`
}

// Validate checks the form locally. It never touches the network.
func (f *Form) Validate() error {
	if f.Name == "" {
		return &gateway.ValidationError{Field: "name", Reason: "camera name is required"}
	}
	return f.validateConnection()
}

// validateConnection checks only the connection fields, for the probe path
// where no name is needed yet.
func (f *Form) validateConnection() error {
	switch f.ConnectionMode {
	case gateway.ModeDirect:
		if f.Source == "" {
			return &gateway.ValidationError{Field: "source", Reason: "source is required for direct connections"}
		}
	case gateway.ModeParams:
		if f.Host == "" {
			return &gateway.ValidationError{Field: "host", Reason: "host is required for parameterized connections"}
		}
		if f.Port == "" {
			return &gateway.ValidationError{Field: "port", Reason: "port is required for parameterized connections"}
		}
	default:
		return &gateway.ValidationError{Field: "connection_mode", Reason: "connection mode must be direct or params"}
	}

	return nil
}

// upsert builds the request body, submitting only the active connection
// field set. A blank password is omitted entirely so an edit never clears
// the stored one.
func (f *Form) upsert() gateway.CameraUpsert {
	up := gateway.CameraUpsert{
		Name:           f.Name,
		Type:           f.Type,
		ConnectionMode: f.ConnectionMode,
		DetectionLine:  f.DetectionLine,
		DetectionAngle: f.DetectionAngle,
		MinArea:        f.MinArea,
	}

	switch f.ConnectionMode {
	case gateway.ModeDirect:
		up.Source = f.Source
	case gateway.ModeParams:
		up.Host = f.Host
		up.Port = f.Port
		up.Username = f.Username
		up.Channel = f.Channel
		up.Path = f.Path
		if f.Password != "" {
			password := f.Password
			up.Password = &password
		}
	}

	return up
}

// probe builds the test-connection body. Unlike upsert, the password is
// sent as-is; the probe persists nothing.
func (f *Form) probe() gateway.ConnectionProbe {
	p := gateway.ConnectionProbe{
		Type:           f.Type,
		ConnectionMode: f.ConnectionMode,
	}

	switch f.ConnectionMode {
	case gateway.ModeDirect:
		p.Source = f.Source
	case gateway.ModeParams:
		p.Host = f.Host
		p.Port = f.Port
		p.Username = f.Username
		p.Password = f.Password
		p.Channel = f.Channel
		p.Path = f.Path
	}

	return p
}

// Controller manages the camera records on the remote service. Every
// successful mutation raises one success alert and triggers a full reload;
// a failed one raises exactly one failure alert and changes nothing.
type Controller struct {
	gw      *gateway.Client
	logger  *logger.Logger
	alerts  *notify.Center
	confirm confirm.Confirmer
	reload  Reloader
}

// NewController creates the camera CRUD controller
func NewController(gw *gateway.Client, confirm confirm.Confirmer, reload Reloader, alerts *notify.Center, log *logger.Logger) *Controller {
	return &Controller{
		gw:      gw,
		logger:  log,
		alerts:  alerts,
		confirm: confirm,
		reload:  reload,
	}
}

// LoadForEdit fetches a camera record and maps it into a form. The password
// is always blank: stored credentials never round-trip to the operator.
func (c *Controller) LoadForEdit(ctx context.Context, cameraID int) (*Form, error) {
	detail, err := c.gw.CameraDetail(ctx, cameraID)
	if err != nil {
		c.notifyFailure("Cannot load camera", err)
		return nil, err
	}

	return &Form{
		Name:           detail.Name,
		Type:           detail.Type,
		ConnectionMode: detail.ConnectionMode,
		Source:         detail.Source,
		Host:           detail.Host,
		Port:           detail.Port,
		Username:       detail.Username,
		Channel:        detail.Channel,
		Path:           detail.Path,
		DetectionLine:  detail.DetectionLine,
		DetectionAngle: detail.DetectionAngle,
		MinArea:        detail.MinArea,
	}, nil
}

// Add creates a camera record
func (c *Controller) Add(ctx context.Context, form *Form) error {
	if err := form.Validate(); err != nil {
		c.alerts.Warning(err.Error())
		return err
	}

	if _, err := c.gw.AddCamera(ctx, form.upsert()); err != nil {
		c.notifyFailure("Cannot add camera", err)
		return err
	}

	c.logger.Info("Camera added", "name", form.Name)
	c.alerts.Success(fmt.Sprintf("Camera %q added", form.Name))
	return c.reload.Reload(ctx)
}

// Update edits an existing camera record. A blank form password leaves the
// stored password untouched.
func (c *Controller) Update(ctx context.Context, cameraID int, form *Form) error {
	if err := form.Validate(); err != nil {
		c.alerts.Warning(err.Error())
		return err
	}

	if _, err := c.gw.EditCamera(ctx, cameraID, form.upsert()); err != nil {
		c.notifyFailure("Cannot update camera", err)
		return err
	}

	c.logger.Info("Camera updated", "camera_id", cameraID, "name", form.Name)
	c.alerts.Success(fmt.Sprintf("Camera %q updated", form.Name))
	return c.reload.Reload(ctx)
}

// Delete removes a camera record after a confirmation that names it
func (c *Controller) Delete(ctx context.Context, cameraID int) error {
	detail, err := c.gw.CameraDetail(ctx, cameraID)
	if err != nil {
		c.notifyFailure("Cannot delete camera", err)
		return err
	}

	if !c.confirm.Confirm(ctx, fmt.Sprintf("Delete camera %q?", detail.Name)) {
		c.logger.Debug("Camera delete declined", "camera_id", cameraID)
		return nil
	}

	if _, err := c.gw.DeleteCamera(ctx, cameraID); err != nil {
		c.notifyFailure("Cannot delete camera", err)
		return err
	}

	c.logger.Info("Camera deleted", "camera_id", cameraID, "name", detail.Name)
	c.alerts.Success(fmt.Sprintf("Camera %q deleted", detail.Name))
	return c.reload.Reload(ctx)
}

// TestConnection probes a camera configuration without persisting anything
// and without reloading.
func (c *Controller) TestConnection(ctx context.Context, form *Form) error {
	if err := form.validateConnection(); err != nil {
		c.alerts.Warning(err.Error())
		return err
	}

	msg, err := c.gw.TestConnection(ctx, form.probe())
	if err != nil {
		c.notifyFailure("Connection test failed", err)
		return err
	}

	if msg == "" {
		msg = "Connection succeeded"
	}
	c.alerts.Success(msg)
	return nil
}

// notifyFailure presents an application rejection; transport and protocol
// failures were already alerted by the gateway.
func (c *Controller) notifyFailure(prefix string, err error) {
	var appErr *gateway.ApplicationError
	if errors.As(err, &appErr) {
		c.alerts.Danger(prefix + ": " + appErr.Message)
	}
}
