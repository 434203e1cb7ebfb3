package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/db"
	"github.com/terraincognita07/telecare/internal/metrics"
	"github.com/terraincognita07/telecare/internal/models"
	"github.com/terraincognita07/telecare/internal/services"
	"go.uber.org/zap"
)

const testPassword = "Telecare2024"

type testApp struct {
	app     *fiber.App
	handler *Handler
	repos   *db.Repositories
	metrics *metrics.Collector
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "telecare-api.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close(database)
	})

	collector := metrics.NewCollector("test")
	handler, err := NewHandler(database, Options{
		SecretKey: strings.Repeat("s", 48),
		Metrics:   collector,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	t.Cleanup(handler.hub.Close)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	RegisterRoutes(app, handler)

	return &testApp{app: app, handler: handler, repos: db.NewRepositories(database), metrics: collector}
}

func (ta *testApp) createUser(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	hash, err := services.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Email: email, PasswordHash: hash, FirstName: string(role), Role: role, Status: models.UserStatusActive}
	if err := ta.repos.Users.Create(context.Background(), &user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func (ta *testApp) login(t *testing.T, email string) string {
	t.Helper()
	response, body := ta.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": testPassword})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, response.StatusCode, body)
	}
	payload := struct {
		Token string `json:"token"`
	}{}
	decode(t, body, &payload)
	if payload.Token == "" {
		t.Fatalf("expected token for %s", email)
	}
	return payload.Token
}

func (ta *testApp) request(t *testing.T, method string, path string, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if payload != nil {
		request.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := ta.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response, body
}

func (ta *testApp) expectStatus(t *testing.T, method string, path string, token string, payload any, status int) []byte {
	t.Helper()
	response, body := ta.request(t, method, path, token, payload)
	if response.StatusCode != status {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, response.StatusCode, body)
	}
	return body
}

func decode(t *testing.T, body []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

type fakeConn struct {
	mu     sync.Mutex
	frames []models.Event
	closed bool
}

func (conn *fakeConn) WriteJSON(value any) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if event, ok := value.(models.Event); ok {
		conn.frames = append(conn.frames, event)
	}
	return nil
}

func (conn *fakeConn) Close() error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	conn.closed = true
	return nil
}

func (conn *fakeConn) names() []string {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	names := make([]string, 0, len(conn.frames))
	for _, frame := range conn.frames {
		names = append(names, frame.Name)
	}
	return names
}
