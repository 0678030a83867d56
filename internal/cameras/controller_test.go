package cameras

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storesense/counterdash/internal/confirm"
	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
)

type countingReloader struct {
	calls atomic.Int64
}

func (r *countingReloader) Reload(ctx context.Context) error {
	r.calls.Add(1)
	return nil
}

// crudRemote captures the bodies the controller submits.
type crudRemote struct {
	server     *httptest.Server
	addBody    map[string]interface{}
	editBody   map[string]interface{}
	probeBody  map[string]interface{}
	deleteHits atomic.Int64
	failAdd    bool
}

func newCrudRemote(t *testing.T) *crudRemote {
	t.Helper()
	r := &crudRemote{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/camera/add", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&r.addBody)
		if r.failAdd {
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "camera limit reached"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "added"})
	})
	mux.HandleFunc("/api/camera/edit/", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&r.editBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "updated"})
	})
	mux.HandleFunc("/api/camera/delete/", func(w http.ResponseWriter, req *http.Request) {
		r.deleteHits.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "deleted"})
	})
	mux.HandleFunc("/api/camera/test_connection", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&r.probeBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "Connection OK"})
	})
	mux.HandleFunc("/api/camera/", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"camera": map[string]interface{}{
				"id":              2,
				"name":            "Back Door",
				"type":            "ip",
				"connection_mode": "params",
				"host":            "10.0.0.5",
				"port":            "554",
				"username":        "viewer",
				"password":        "secret",
				"channel":         "1",
				"path":            "stream1",
				"detection_line":  50,
			},
		})
	})

	r.server = httptest.NewServer(mux)
	t.Cleanup(r.server.Close)
	return r
}

func newTestController(t *testing.T, remote *crudRemote, confirmer confirm.Confirmer) (*Controller, *countingReloader, *notify.Center) {
	t.Helper()
	log := logger.NewNopLogger()
	alerts := notify.NewCenter(time.Minute, log)
	gw := gateway.NewClient(gateway.ClientConfig{BaseURL: remote.server.URL}, alerts, &notify.Busy{}, log)

	if confirmer == nil {
		confirmer = confirm.Always
	}

	reload := &countingReloader{}
	return NewController(gw, confirmer, reload, alerts, log), reload, alerts
}

func directForm() *Form {
	return &Form{
		Name:           "Lobby",
		Type:           "webcam",
		ConnectionMode: gateway.ModeDirect,
		Source:         "0",
		DetectionLine:  50,
	}
}

func paramsForm() *Form {
	return &Form{
		Name:           "Back Door",
		Type:           "ip",
		ConnectionMode: gateway.ModeParams,
		Host:           "10.0.0.5",
		Port:           "554",
		Username:       "viewer",
		Password:       "secret",
		Channel:        "1",
		Path:           "stream1",
	}
}

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Form)
		form    *Form
		field   string
		wantErr bool
	}{
		{name: "valid direct", form: directForm()},
		{name: "valid params", form: paramsForm()},
		{name: "missing name", form: directForm(), mutate: func(f *Form) { f.Name = "" }, field: "name", wantErr: true},
		{name: "direct without source", form: directForm(), mutate: func(f *Form) { f.Source = "" }, field: "source", wantErr: true},
		{name: "params without host", form: paramsForm(), mutate: func(f *Form) { f.Host = "" }, field: "host", wantErr: true},
		{name: "params without port", form: paramsForm(), mutate: func(f *Form) { f.Port = "" }, field: "port", wantErr: true},
		{name: "unknown mode", form: directForm(), mutate: func(f *Form) { f.ConnectionMode = "serial" }, field: "connection_mode", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mutate != nil {
				tt.mutate(tt.form)
			}
			err := tt.form.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *gateway.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestController_AddSubmitsOnlyActiveFieldSet(t *testing.T) {
	remote := newCrudRemote(t)
	c, reload, alerts := newTestController(t, remote, nil)

	form := directForm()
	form.Host = "leftover-from-mode-switch"
	form.Password = "stale"
	require.NoError(t, c.Add(context.Background(), form))

	assert.Equal(t, "0", remote.addBody["source"])
	assert.NotContains(t, remote.addBody, "host")
	assert.NotContains(t, remote.addBody, "password")

	assert.EqualValues(t, 1, reload.calls.Load())
	active := alerts.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.LevelSuccess, active[0].Level)
}

func TestController_AddValidationSkipsNetwork(t *testing.T) {
	remote := newCrudRemote(t)
	c, reload, alerts := newTestController(t, remote, nil)

	form := directForm()
	form.Source = ""
	err := c.Add(context.Background(), form)

	var verr *gateway.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, remote.addBody, "invalid form must not reach the network")
	assert.Zero(t, reload.calls.Load())

	active := alerts.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.LevelWarning, active[0].Level)
}

func TestController_AddRejectedByServer(t *testing.T) {
	remote := newCrudRemote(t)
	remote.failAdd = true
	c, reload, alerts := newTestController(t, remote, nil)

	err := c.Add(context.Background(), directForm())

	var appErr *gateway.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Zero(t, reload.calls.Load(), "failed mutation must not reload")

	active := alerts.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.LevelDanger, active[0].Level)
	assert.Contains(t, active[0].Message, "camera limit reached")
}

func TestController_UpdateBlankPasswordOmitted(t *testing.T) {
	remote := newCrudRemote(t)
	c, _, _ := newTestController(t, remote, nil)

	form := paramsForm()
	form.Password = ""
	require.NoError(t, c.Update(context.Background(), 2, form))

	assert.NotContains(t, remote.editBody, "password", "blank password must not round-trip")
	assert.Equal(t, "10.0.0.5", remote.editBody["host"])
}

func TestController_UpdateSendsChangedPassword(t *testing.T) {
	remote := newCrudRemote(t)
	c, _, _ := newTestController(t, remote, nil)

	form := paramsForm()
	form.Password = "rotated"
	require.NoError(t, c.Update(context.Background(), 2, form))

	assert.Equal(t, "rotated", remote.editBody["password"])
}

func TestController_LoadForEditBlanksPassword(t *testing.T) {
	remote := newCrudRemote(t)
	c, _, _ := newTestController(t, remote, nil)

	form, err := c.LoadForEdit(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, "Back Door", form.Name)
	assert.Equal(t, gateway.ModeParams, form.ConnectionMode)
	assert.Equal(t, "10.0.0.5", form.Host)
	assert.Equal(t, "viewer", form.Username)
	assert.Empty(t, form.Password, "stored password must never round-trip")
}

func TestController_DeleteConfirmationNamesCamera(t *testing.T) {
	remote := newCrudRemote(t)
	var prompt string
	confirmer := confirm.Func(func(_ context.Context, p string) bool {
		prompt = p
		return true
	})
	c, reload, _ := newTestController(t, remote, confirmer)

	require.NoError(t, c.Delete(context.Background(), 2))

	assert.Contains(t, prompt, "Back Door")
	assert.EqualValues(t, 1, remote.deleteHits.Load())
	assert.EqualValues(t, 1, reload.calls.Load())
}

func TestController_DeleteDeclined(t *testing.T) {
	remote := newCrudRemote(t)
	declined := confirm.Func(func(context.Context, string) bool { return false })
	c, reload, _ := newTestController(t, remote, declined)

	require.NoError(t, c.Delete(context.Background(), 2))

	assert.Zero(t, remote.deleteHits.Load())
	assert.Zero(t, reload.calls.Load())
}

func TestController_TestConnectionIsPure(t *testing.T) {
	remote := newCrudRemote(t)
	c, reload, alerts := newTestController(t, remote, nil)

	form := paramsForm()
	form.Name = "" // the probe needs no name
	require.NoError(t, c.TestConnection(context.Background(), form))

	assert.Equal(t, "secret", remote.probeBody["password"], "probe sends the password as entered")
	assert.Zero(t, reload.calls.Load(), "probe must not reload")

	active := alerts.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Connection OK", active[0].Message)
}
