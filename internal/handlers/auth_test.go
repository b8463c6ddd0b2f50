package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartbin-backend/internal/config"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func authTestConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		BcryptCost:      bcrypt.MinCost,
	}
}

func seedUser(t *testing.T, mem *store.Memory, email, password string, role models.AdminRole, active bool) models.AdminUser {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	user, err := mem.CreateUser(context.Background(), models.AdminUser{
		Name:     "Test User",
		Email:    email,
		Password: string(hashed),
		Role:     role,
		IsActive: active,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func postJSON(handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest("POST", path, &buf)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestLogin(t *testing.T) {
	mem := store.NewMemory()
	cfg := authTestConfig()
	seedUser(t, mem, "admin@test.local", "correct-horse", models.RoleAdmin, true)
	seedUser(t, mem, "ghost@test.local", "whatever", models.RoleOperator, false)
	login := Login(mem, cfg)

	t.Run("success", func(t *testing.T) {
		w := postJSON(login, "/api/auth/login", LoginRequest{Email: "admin@test.local", Password: "correct-horse"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.OK || resp.Token == "" || resp.RefreshToken == "" {
			t.Errorf("incomplete response: %+v", resp)
		}
		if resp.User == nil || resp.User.Role != models.RoleAdmin {
			t.Errorf("user = %+v", resp.User)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(login, "/api/auth/login", LoginRequest{Email: "admin@test.local", Password: "nope"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		w := postJSON(login, "/api/auth/login", LoginRequest{Email: "nobody@test.local", Password: "nope"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("inactive account", func(t *testing.T) {
		w := postJSON(login, "/api/auth/login", LoginRequest{Email: "ghost@test.local", Password: "whatever"})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})
}

// issueRefreshToken builds a stored refresh token with a backdated iat so
// the rotated replacement is guaranteed to differ.
func issueRefreshToken(t *testing.T, mem *store.Memory, cfg config.AuthConfig, user models.AdminUser) string {
	t.Helper()
	expiresAt := time.Now().Add(cfg.RefreshTokenTTL).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"typ":     "refresh",
		"iat":     time.Now().Add(-time.Minute).Unix(),
		"exp":     expiresAt,
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := mem.StoreRefreshToken(context.Background(), user.ID, hashToken(signed), expiresAt); err != nil {
		t.Fatalf("StoreRefreshToken: %v", err)
	}
	return signed
}

func TestRefreshRotatesToken(t *testing.T) {
	mem := store.NewMemory()
	cfg := authTestConfig()
	user := seedUser(t, mem, "admin@test.local", "correct-horse", models.RoleAdmin, true)
	refresh := Refresh(mem, cfg)

	old := issueRefreshToken(t, mem, cfg, user)

	w := postJSON(refresh, "/api/auth/refresh", RefreshRequest{RefreshToken: old})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RefreshToken == "" || resp.RefreshToken == old {
		t.Fatal("expected a rotated refresh token")
	}

	// The presented token was revoked; a replay fails.
	w = postJSON(refresh, "/api/auth/refresh", RefreshRequest{RefreshToken: old})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("replay status = %d, want 401", w.Code)
	}

	// The rotated token still works.
	w = postJSON(refresh, "/api/auth/refresh", RefreshRequest{RefreshToken: resp.RefreshToken})
	if w.Code != http.StatusOK {
		t.Errorf("rotated token status = %d, want 200", w.Code)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	mem := store.NewMemory()
	cfg := authTestConfig()
	user := seedUser(t, mem, "admin@test.local", "correct-horse", models.RoleAdmin, true)
	refresh := Refresh(mem, cfg)

	// An access token has no typ claim and must not pass as a refresh token.
	access, err := signAccessToken(user, cfg)
	if err != nil {
		t.Fatalf("signAccessToken: %v", err)
	}
	w := postJSON(refresh, "/api/auth/refresh", RefreshRequest{RefreshToken: access})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	mem := store.NewMemory()
	cfg := authTestConfig()
	user := seedUser(t, mem, "admin@test.local", "correct-horse", models.RoleAdmin, true)

	first := issueRefreshToken(t, mem, cfg, user)
	ctx := context.Background()
	if err := mem.StoreRefreshToken(ctx, user.ID, hashToken("second-device"), time.Now().Add(time.Hour).Unix()); err != nil {
		t.Fatalf("StoreRefreshToken: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Auth(cfg.JWTSecret))
	r.Post("/api/auth/logout", Logout(mem))

	access, err := signAccessToken(user, cfg)
	if err != nil {
		t.Fatalf("signAccessToken: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	for _, hash := range []string{hashToken(first), hashToken("second-device")} {
		ok, err := mem.HasRefreshToken(ctx, user.ID, hash)
		if err != nil {
			t.Fatalf("HasRefreshToken: %v", err)
		}
		if ok {
			t.Error("refresh token survived logout")
		}
	}
}

func TestRoleGatedEndpoint(t *testing.T) {
	mem := store.NewMemory()
	cfg := authTestConfig()
	admin := seedUser(t, mem, "admin@test.local", "pw-admin-1", models.RoleAdmin, true)
	operator := seedUser(t, mem, "op@test.local", "pw-operator", models.RoleOperator, true)

	r := chi.NewRouter()
	r.Use(middleware.Auth(cfg.JWTSecret))
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole("admin"))
		r.Post("/api/users", CreateUser(mem, cfg))
	})

	send := func(user *models.AdminUser) int {
		t.Helper()
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(CreateUserRequest{
			Name: "New Operator", Email: "new@test.local",
			Password: "longenough", Role: models.RoleOperator,
		})
		req := httptest.NewRequest("POST", "/api/users", &buf)
		if user != nil {
			token, err := signAccessToken(*user, cfg)
			if err != nil {
				t.Fatalf("signAccessToken: %v", err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(nil); code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", code)
	}
	if code := send(&operator); code != http.StatusForbidden {
		t.Errorf("operator: status = %d, want 403", code)
	}
	if code := send(&admin); code != http.StatusCreated {
		t.Errorf("admin: status = %d, want 201", code)
	}

	if _, err := mem.GetUserByEmail(context.Background(), "new@test.local"); err != nil {
		t.Errorf("created user not found: %v", err)
	}
}
