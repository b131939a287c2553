package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	coreactions "github.com/good-yellow-bee/alertops/internal/actions"
	"github.com/good-yellow-bee/alertops/internal/api/auth"
	"github.com/good-yellow-bee/alertops/internal/bridge"
	"github.com/good-yellow-bee/alertops/internal/models"
	"github.com/good-yellow-bee/alertops/internal/storage"
)

type fakeNotifier struct {
	refreshCalls int
	forceCalls   int
}

func (f *fakeNotifier) RefreshCache(ctx context.Context) { f.refreshCalls++ }
func (f *fakeNotifier) ForceUpdate(ctx context.Context, refs []bridge.AlertRef) {
	f.forceCalls++
}

type fakeSink struct{}

func (fakeSink) ObserveAction(alertID int64, action, actor string) {}

type fakeActors struct{}

func (fakeActors) Lookup(ctx context.Context, username string) (models.Actor, error) {
	return models.Actor{ID: 3, FullName: "Dana Ops", Username: username, Initials: "DO"}, nil
}

type fakeProcedures struct{}

func (fakeProcedures) Resolve(ctx context.Context, id int64) (*models.Procedure, error) {
	return &models.Procedure{ProcedureID: id, Details: map[string]any{}}, nil
}

type fakeStudios struct{}

func (fakeStudios) Name(id int64) string { return "Studio North" }

var testJWTSecret = []byte("test-jwt-secret-32-bytes-long!!")

func testServer(t *testing.T) (*Server, *storage.SQLiteStorage) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate storage: %v", err)
	}

	orch := coreactions.NewOrchestrator(store, &fakeNotifier{}, fakeSink{}, log.Default())

	cfg := &Config{
		Address:   ":0",
		JWTSecret: testJWTSecret,
	}
	srv, err := New(cfg, store, orch, fakeActors{}, fakeProcedures{}, fakeStudios{})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv, store
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token, err := auth.NewJWTService(testJWTSecret, 15*time.Minute).
		GenerateToken(3, "dops", "Dana Ops")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func seedAlert(t *testing.T, store *storage.SQLiteStorage, id int64) {
	t.Helper()
	ctx := context.Background()

	err := store.Notifications().Create(ctx, &models.Notification{
		ID:                 id,
		Name:               "disk-usage",
		StudioID:           7,
		MonitoringSystem:   "zabbix",
		Source:             "host-a",
		ObjectName:         "/var",
		Severity:           4,
		Output:             `{"current":"92% used"}`,
		NotificationStatus: 1,
		SnoozeExpireTS:     models.Epoch,
		LastUpdateTS:       time.Now().UTC(),
		LastCreateTS:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	err = store.LiveAlerts().Create(ctx, &models.LiveAlert{
		AlertID:          id,
		AlertName:        "disk-usage",
		StudioID:         7,
		MonitoringSystem: "zabbix",
		Severity:         4,
		CreatedTS:        time.Now().UTC(),
		DowntimeExpireTS: models.Epoch,
		SnoozeExpireTS:   models.Epoch,
		HandleExpireTS:   models.Epoch,
	})
	if err != nil {
		t.Fatalf("seed live alert: %v", err)
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/resolve",
		bytes.NewReader([]byte(`{"alert_ids":[1]}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_SnoozeEndToEnd(t *testing.T) {
	srv, store := testServer(t)
	router := srv.setupRouter()
	seedAlert(t, store, 101)

	body := `{"alert_ids":[101],"action_ts":"2030-01-01T00:00:00.000Z","comment":"migration"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/snooze",
		bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", bearerToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	live, err := store.LiveAlerts().GetByID(context.Background(), 101)
	if err != nil || live == nil {
		t.Fatalf("live alert after snooze: %v %v", live, err)
	}
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if !live.SnoozeExpireTS.Equal(want) {
		t.Errorf("snooze expire = %v", live.SnoozeExpireTS)
	}
}

func TestRouter_NotificationView(t *testing.T) {
	srv, store := testServer(t)
	router := srv.setupRouter()
	seedAlert(t, store, 9)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/9", nil)
	req.Header.Set("Authorization", bearerToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Name != "disk-usage" || resp.Data.State != "active" {
		t.Errorf("view = %+v", resp.Data)
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNew_Validation(t *testing.T) {
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))

	if _, err := New(nil, store, nil, nil, nil, nil); err == nil {
		t.Error("nil config must be rejected")
	}
	if _, err := New(&Config{JWTSecret: testJWTSecret}, nil, nil, nil, nil, nil); err == nil {
		t.Error("nil storage must be rejected")
	}
	orch := coreactions.NewOrchestrator(store, &fakeNotifier{}, fakeSink{}, log.Default())
	if _, err := New(&Config{}, store, orch, nil, nil, nil); err == nil {
		t.Error("missing JWT secret must be rejected")
	}
}
