package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storesense/counterdash/internal/cameras"
	"github.com/storesense/counterdash/internal/config"
	"github.com/storesense/counterdash/internal/confirm"
	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
	"github.com/storesense/counterdash/internal/session"
	"github.com/storesense/counterdash/internal/state"
	"github.com/storesense/counterdash/internal/stats"
	"github.com/storesense/counterdash/internal/theme"
	"github.com/storesense/counterdash/internal/view"
)

// upstream is a stub counter service behind the gateway
type upstream struct {
	server     *httptest.Server
	resetHits  atomic.Int64
	deleteHits atomic.Int64
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"running": true, "people_in_store": 4, "entry_count": 9, "exit_count": 5,
		})
	})
	mux.HandleFunc("/api/camera/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "started"})
	})
	mux.HandleFunc("/api/camera/reset", func(w http.ResponseWriter, r *http.Request) {
		u.resetHits.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "reset"})
	})
	mux.HandleFunc("/api/camera/delete/", func(w http.ResponseWriter, r *http.Request) {
		u.deleteHits.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "deleted"})
	})
	mux.HandleFunc("/api/stats/data", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"date": "2024-05-01", "total_entries": 12, "total_exits": 11, "peak_count": 4},
			},
		})
	})
	mux.HandleFunc("/api/settings/save", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "saved"})
	})
	mux.HandleFunc("/api/camera/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"camera": map[string]interface{}{
				"id": 1, "name": "Entrance", "connection_mode": "params",
				"host": "10.0.0.9", "port": "554", "username": "viewer", "password": "secret",
			},
		})
	})

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func newTestServer(t *testing.T, up *upstream) (*Server, *notify.Center) {
	t.Helper()
	log := logger.NewNopLogger()
	alerts := notify.NewCenter(time.Minute, log)
	busy := &notify.Busy{}
	gw := gateway.NewClient(gateway.ClientConfig{BaseURL: up.server.URL}, alerts, busy, log)

	pollCfg := config.PollConfig{
		ClockInterval:  time.Hour,
		StatusInterval: time.Hour,
		FrameInterval:  time.Hour,
		SyncInterval:   time.Hour,
	}

	store, err := state.NewStore(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	themeCtl, err := theme.NewController(context.Background(), store, log)
	require.NoError(t, err)

	views := NewViewStore()
	sessionCtl := session.NewController(gw, pollCfg, views.Sinks(), confirm.FromContext, alerts, log)
	camerasCtl := cameras.NewController(gw, confirm.FromContext, sessionCtl, alerts, log)
	statsCtl := stats.NewController(gw, views, 7, alerts, log)

	srv := NewServer(&config.WebConfig{Enabled: true, Host: "127.0.0.1", Port: 0}, Deps{
		Views:   views,
		Session: sessionCtl,
		Cameras: camerasCtl,
		Stats:   statsCtl,
		Theme:   themeCtl,
		Alerts:  alerts,
		Busy:    busy,
		Gateway: gw,
	}, log)
	return srv, alerts
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestServer_UIStateReflectsPublishes(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	s.views.PublishStatus(view.StatusView{Running: true, PeopleInStore: 2, EntryCount: 6, ExitCount: 4})
	s.views.PublishClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	w := doJSON(t, s, http.MethodGet, "/api/ui/state", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	status := resp["status"].(map[string]interface{})
	assert.Equal(t, true, status["running"])
	assert.Equal(t, float64(2), status["people_in_store"])
	assert.Equal(t, "light", resp["theme"])
	assert.Equal(t, "2024-05-01T10:00:00Z", resp["clock"])
}

func TestServer_UIStateLatestWins(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	s.views.PublishStatus(view.StatusView{PeopleInStore: 1})
	s.views.PublishStatus(view.StatusView{PeopleInStore: 8})

	resp := decode(t, doJSON(t, s, http.MethodGet, "/api/ui/state", nil))
	status := resp["status"].(map[string]interface{})
	assert.Equal(t, float64(8), status["people_in_store"])
}

func TestServer_UIFrame(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodGet, "/api/ui/frame", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.views.PublishFrame(view.FrameView{Data: []byte("jpeg"), CapturedAt: time.Now()})

	w = doJSON(t, s, http.MethodGet, "/api/ui/frame", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg", w.Body.String())
}

func TestServer_AlertsAndDismiss(t *testing.T) {
	s, alerts := newTestServer(t, newUpstream(t))

	alert := alerts.Warning("low disk")

	resp := decode(t, doJSON(t, s, http.MethodGet, "/api/ui/alerts", nil))
	require.Len(t, resp["alerts"], 1)

	w := doJSON(t, s, http.MethodPost, "/api/ui/alerts/"+alert.ID+"/dismiss", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp = decode(t, doJSON(t, s, http.MethodGet, "/api/ui/alerts", nil))
	assert.Empty(t, resp["alerts"])

	w = doJSON(t, s, http.MethodPost, "/api/ui/alerts/nonexistent/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_CameraStart(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodPost, "/api/camera/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestServer_ResetForwardsConfirmation(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestServer(t, up)

	// Without confirmation the reset is declined before the network.
	w := doJSON(t, s, http.MethodPost, "/api/camera/reset", map[string]bool{"confirm": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, up.resetHits.Load())

	w = doJSON(t, s, http.MethodPost, "/api/camera/reset", map[string]bool{"confirm": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, up.resetHits.Load())
}

func TestServer_CameraDeleteForwardsConfirmation(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestServer(t, up)

	w := doJSON(t, s, http.MethodPost, "/api/camera/delete/1", map[string]bool{"confirm": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, up.deleteHits.Load())

	w = doJSON(t, s, http.MethodPost, "/api/camera/delete/1", map[string]bool{"confirm": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, up.deleteHits.Load())
}

func TestServer_CameraGetBlanksPassword(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodGet, "/api/camera/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	camera := decode(t, w)["camera"].(map[string]interface{})
	assert.Equal(t, "Entrance", camera["name"])
	assert.Empty(t, camera["password"])
}

func TestServer_CameraAddValidation(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodPost, "/api/camera/add", map[string]string{
		"name":            "Broken",
		"connection_mode": "direct",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestServer_StatsDataServesReport(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodGet, "/api/stats/data?days=7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	report := decode(t, w)["report"].(map[string]interface{})
	summary := report["summary"].(map[string]interface{})
	assert.Equal(t, float64(12), summary["total_entries"])
}

func TestServer_StatsDataInvalidRange(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodGet, "/api/stats/data?start_date=2024-05-10&end_date=2024-05-05", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_ThemeToggle(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	resp := decode(t, doJSON(t, s, http.MethodGet, "/api/theme", nil))
	assert.Equal(t, "light", resp["theme"])

	resp = decode(t, doJSON(t, s, http.MethodPost, "/api/theme", nil))
	assert.Equal(t, "dark", resp["theme"])

	resp = decode(t, doJSON(t, s, http.MethodPost, "/api/theme", map[string]string{"theme": "light"}))
	assert.Equal(t, "light", resp["theme"])
}

func TestServer_SettingsSavePassthrough(t *testing.T) {
	s, _ := newTestServer(t, newUpstream(t))

	w := doJSON(t, s, http.MethodPost, "/api/settings/save", map[string]interface{}{
		"branch_name": "Downtown", "camera_fps": 15,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "saved", decode(t, w)["message"])
}

func TestServer_StartStop(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestServer(t, up)
	s.config = &config.WebConfig{Enabled: true, Host: "127.0.0.1", Port: 18094}

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	resp, err := http.Get("http://127.0.0.1:18094/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(ctx))
}
