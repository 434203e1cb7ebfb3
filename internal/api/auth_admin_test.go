package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/telecare/internal/models"
)

func TestAuthRequiredRejectsMissingAndForeignTokens(t *testing.T) {
	ta := newTestApp(t)
	medic := ta.createUser(t, "medic@telecare.local", models.RoleMedic)

	ta.expectStatus(t, http.MethodGet, "/api/auth/me", "", nil, http.StatusUnauthorized)
	ta.expectStatus(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil, http.StatusUnauthorized)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		UserID: medic.ID,
		Role:   string(models.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte(strings.Repeat("x", 48)))
	if err != nil {
		t.Fatalf("sign foreign token: %v", err)
	}
	ta.expectStatus(t, http.MethodGet, "/api/auth/me", signed, nil, http.StatusUnauthorized)

	expired, _, err := ta.handler.buildToken(&medic, time.Nanosecond)
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	ta.expectStatus(t, http.MethodGet, "/api/auth/me", expired, nil, http.StatusUnauthorized)

	token := ta.login(t, "medic@telecare.local")
	me := struct {
		User   models.User `json:"user"`
		Unread int64       `json:"unreadNotifications"`
	}{}
	decode(t, ta.expectStatus(t, http.MethodGet, "/api/auth/me", token, nil, http.StatusOK), &me)
	if me.User.ID != medic.ID || me.User.Role != models.RoleMedic {
		t.Fatalf("unexpected me payload %#v", me)
	}
}

func TestLoginIsThrottledPerAddress(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "doctor@telecare.local", models.RoleDoctor)

	wrong := map[string]string{"email": "doctor@telecare.local", "password": "Wrong-password1"}
	for attempt := 0; attempt < loginAttemptLimit; attempt++ {
		ta.expectStatus(t, http.MethodPost, "/api/auth/login", "", wrong, http.StatusUnauthorized)
	}
	response, _ := ta.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "doctor@telecare.local",
		"password": testPassword,
	})
	if response.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected throttled login even with the right password, got %d", response.StatusCode)
	}
	if response.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on a throttled login")
	}
}

func TestDeactivatedAccountLosesAccess(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "admin@telecare.local", models.RoleAdmin)
	doctor := ta.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	adminToken := ta.login(t, "admin@telecare.local")
	doctorToken := ta.login(t, "doctor@telecare.local")

	ta.expectStatus(t, http.MethodPut, fmt.Sprintf("/api/admin/users/%d", doctor.ID), adminToken,
		map[string]any{"status": "INACTIVE"}, http.StatusOK)
	ta.expectStatus(t, http.MethodGet, "/api/sessions", doctorToken, nil, http.StatusForbidden)
}

func TestAdminUserManagement(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.createUser(t, "admin@telecare.local", models.RoleAdmin)
	other := ta.createUser(t, "second.admin@telecare.local", models.RoleAdmin)
	ta.createUser(t, "medic@telecare.local", models.RoleMedic)
	adminToken := ta.login(t, "admin@telecare.local")
	medicToken := ta.login(t, "medic@telecare.local")

	ta.expectStatus(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", other.ID), adminToken, nil, http.StatusForbidden)
	ta.expectStatus(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", admin.ID), adminToken, nil, http.StatusForbidden)
	ta.expectStatus(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", other.ID), medicToken, nil, http.StatusForbidden)
	ta.expectStatus(t, http.MethodGet, "/api/admin/stats", medicToken, nil, http.StatusForbidden)

	created := struct {
		User              models.User `json:"user"`
		TemporaryPassword string      `json:"temporaryPassword"`
	}{}
	decode(t, ta.expectStatus(t, http.MethodPost, "/api/admin/users", adminToken,
		map[string]any{"email": "new.doctor@telecare.local", "role": "DOCTOR", "firstName": "New"}, http.StatusCreated), &created)
	if created.TemporaryPassword == "" || !created.User.MustChangePassword {
		t.Fatalf("expected temporary password for new user, got %#v", created)
	}
	ta.expectStatus(t, http.MethodPost, "/api/admin/users", adminToken,
		map[string]any{"email": "NEW.doctor@telecare.local", "role": "DOCTOR"}, http.StatusConflict)

	reset := struct {
		TemporaryPassword string `json:"temporaryPassword"`
	}{}
	decode(t, ta.expectStatus(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/reset-password", created.User.ID), adminToken, nil, http.StatusOK), &reset)
	if reset.TemporaryPassword == "" || reset.TemporaryPassword == created.TemporaryPassword {
		t.Fatalf("expected a fresh temporary password")
	}
	ta.expectStatus(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "new.doctor@telecare.local", "password": reset.TemporaryPassword}, http.StatusOK)

	users := struct {
		Data       []models.User `json:"data"`
		Pagination pagination    `json:"pagination"`
	}{}
	decode(t, ta.expectStatus(t, http.MethodGet, "/api/admin/users?role=doctor", adminToken, nil, http.StatusOK), &users)
	if users.Pagination.Total != 1 || users.Data[0].Email != "new.doctor@telecare.local" {
		t.Fatalf("expected the new doctor only, got %#v", users)
	}

	logs := struct {
		Data       []models.AuditLog `json:"data"`
		Pagination pagination        `json:"pagination"`
	}{}
	decode(t, ta.expectStatus(t, http.MethodGet, fmt.Sprintf("/api/admin/logs?action=%s&entityType=%s&userId=%d", models.AuditDataCreate, models.EntityUser, admin.ID), adminToken, nil, http.StatusOK), &logs)
	if logs.Pagination.Total != 1 || logs.Data[0].EntityID != created.User.ID {
		t.Fatalf("expected one user creation audit row, got %#v", logs)
	}
	ta.expectStatus(t, http.MethodGet, "/api/admin/logs?from=yesterday", adminToken, nil, http.StatusBadRequest)
}

func TestOpsEndpoints(t *testing.T) {
	ta := newTestApp(t)

	ta.expectStatus(t, http.MethodGet, "/healthz", "", nil, http.StatusOK)
	body := ta.expectStatus(t, http.MethodGet, "/metrics", "", nil, http.StatusOK)
	if !strings.Contains(string(body), "test_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
	ta.expectStatus(t, http.MethodGet, "/ws", "", nil, http.StatusUpgradeRequired)
}
