package syncapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fabula/internal/models"
	"fabula/internal/pairing"
	"fabula/internal/repo"
	"fabula/internal/syncapi"
	"fabula/internal/syncengine"
)

type testServer struct {
	router      *mux.Router
	db          *gorm.DB
	coordinator *pairing.Coordinator
	devices     *repo.DeviceStore
	entities    *repo.EntityStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	devices := repo.NewDeviceStore(db)
	entities := repo.NewEntityStore(db)
	audit := repo.NewSyncLogStore(db)
	engine := syncengine.New(entities, 1000)
	coordinator := pairing.New(5*time.Minute, "8765")

	r := mux.NewRouter().StrictSlash(true)
	h := syncapi.NewHandler(coordinator, devices, engine, audit)
	syncapi.RegisterRoutes(r, h, devices)

	return &testServer{router: r, db: db, coordinator: coordinator, devices: devices, entities: entities}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// pair проходит полный цикл сопряжения и возвращает auth-токен.
func (s *testServer) pair(t *testing.T, deviceID, name string) string {
	t.Helper()
	w := s.do(t, http.MethodGet, "/pair/qr-data", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payload pairing.Payload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))

	w = s.do(t, http.MethodPost, "/pair/register", "", syncapi.RegisterRequest{
		DeviceID: deviceID, DeviceName: name, PairingToken: payload.Token,
	})
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code)
	var resp syncapi.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AuthToken)
	return resp.AuthToken
}

func TestQRDataIssuesToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/pair/qr-data", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload pairing.Payload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Token)
	assert.Equal(t, "8765", payload.Port)
}

func TestQRImage(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/pair/qr-image", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, w.Body.Bytes()[:4])
}

func TestRegisterRejectsBadToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/pair/register", "", syncapi.RegisterRequest{
		DeviceID: "dev-1", DeviceName: "Phone", PairingToken: "bogus",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterTokenIsSingleUse(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/pair/qr-data", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payload pairing.Payload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))

	w = s.do(t, http.MethodPost, "/pair/register", "", syncapi.RegisterRequest{
		DeviceID: "dev-1", DeviceName: "Phone", PairingToken: payload.Token,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// тот же токен второй раз — отказ, даже со знакомым device_id
	w = s.do(t, http.MethodPost, "/pair/register", "", syncapi.RegisterRequest{
		DeviceID: "dev-1", DeviceName: "Phone", PairingToken: payload.Token,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterIdempotentPerDevice(t *testing.T) {
	s := newTestServer(t)
	tok1 := s.pair(t, "dev-1", "Phone")
	tok2 := s.pair(t, "dev-1", "Phone")
	assert.Equal(t, tok1, tok2)

	list, err := s.devices.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSyncEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/sync/pull"},
		{http.MethodPost, "/sync/push"},
		{http.MethodGet, "/sync/status"},
	} {
		w := s.do(t, tc.method, tc.path, "", map[string]any{})
		assert.Equalf(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)

		w = s.do(t, tc.method, tc.path, "wrong-token", map[string]any{})
		assert.Equalf(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestPullPushStatusRoundTrip(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.entities.Insert(ctx, "settings", 1, map[string]any{"name": "world"}, now))
	require.NoError(t, s.entities.Insert(ctx, "actors", 1, map[string]any{"setting_id": int64(1), "name": "Aria"}, now))

	token := s.pair(t, "dev-1", "Phone")

	// полный pull
	w := s.do(t, http.MethodPost, "/sync/pull", token, syncapi.PullRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	var pull syncapi.PullResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pull))
	require.Len(t, pull.Changes, 2)
	assert.Equal(t, "setting", pull.Changes[0].EntityType)
	assert.Equal(t, "actor", pull.Changes[1].EntityType)

	// push: апдейт по актуальной версии + заведомый конфликт
	w = s.do(t, http.MethodPost, "/sync/push", token, syncapi.PushRequest{
		Changes: []syncengine.Change{
			{EntityType: "actor", EntityID: 1, Operation: syncengine.OpUpdate,
				Data: map[string]any{"name": "Aria II"}, Version: 1},
			{EntityType: "actor", EntityID: 1, Operation: syncengine.OpUpdate,
				Data: map[string]any{"name": "stale"}, Version: 1},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var push syncapi.PushResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &push))
	assert.Equal(t, 1, push.Accepted)
	assert.Equal(t, 1, push.Rejected)
	require.Len(t, push.Conflicts, 1)
	assert.Equal(t, syncengine.ResolutionMerge, push.Conflicts[0].Resolution)

	// status: чекпойнт свежее последней мутации быть не обязан,
	// но счётчик обязан совпадать с фильтром pull
	w = s.do(t, http.MethodGet, "/sync/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status syncapi.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "dev-1", status.DeviceID)
	require.NotNil(t, status.LastSyncAt)

	// аудит: по строке на pull и на push
	var logs []models.SyncLog
	require.NoError(t, s.db.Order("id asc").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "pull", logs[0].Direction)
	assert.Equal(t, 2, logs[0].EntityCount)
	assert.Equal(t, "push", logs[1].Direction)
	assert.Equal(t, 1, logs[1].ConflictCount)
}

func TestPullWithCheckpointAndFilter(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.entities.Insert(ctx, "settings", 1, map[string]any{"name": "world"}, base))
	require.NoError(t, s.entities.Insert(ctx, "actors", 1, map[string]any{"setting_id": int64(1), "name": "new"}, base.Add(30*time.Minute)))

	token := s.pair(t, "dev-1", "Phone")
	cut := base.Add(15 * time.Minute)
	w := s.do(t, http.MethodPost, "/sync/pull", token, syncapi.PullRequest{
		SinceTimestamp: &cut,
		EntityTypes:    []string{"actor"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var pull syncapi.PullResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pull))
	require.Len(t, pull.Changes, 1)
	assert.Equal(t, syncengine.OpCreate, pull.Changes[0].Operation)
}

func TestDevicesDebugEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.pair(t, "dev-1", "Phone")
	s.pair(t, "dev-2", "Tablet")

	w := s.do(t, http.MethodGet, "/devices", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Devices []models.SyncDevice `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Devices, 2)

	w = s.do(t, http.MethodDelete, "/devices/dev-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/devices", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Devices, 1)

	w = s.do(t, http.MethodDelete, "/devices/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
