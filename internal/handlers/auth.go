package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"smartbin-backend/internal/config"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	OK           bool                 `json:"ok"`
	Token        string               `json:"token,omitempty"`
	RefreshToken string               `json:"refresh_token,omitempty"`
	User         *models.UserResponse `json:"user,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func signAccessToken(user models.AdminUser, cfg config.AuthConfig) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(cfg.AccessTokenTTL).Unix(),
	})
	return token.SignedString([]byte(cfg.JWTSecret))
}

func signRefreshToken(user models.AdminUser, cfg config.AuthConfig) (string, int64, error) {
	expiresAt := time.Now().Add(cfg.RefreshTokenTTL).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"typ":     "refresh",
		"iat":     time.Now().Unix(),
		"exp":     expiresAt,
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	return signed, expiresAt, err
}

// hashToken is how refresh tokens are stored; the raw token never
// touches the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func Login(s store.Store, cfg config.AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		user, err := s.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(LoginResponse{OK: false})
			return
		}

		if !user.IsActive {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(LoginResponse{OK: false})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(LoginResponse{OK: false})
			return
		}

		accessToken, err := signAccessToken(user, cfg)
		if err != nil {
			http.Error(w, "Failed to create token", http.StatusInternalServerError)
			return
		}

		refreshToken, expiresAt, err := signRefreshToken(user, cfg)
		if err != nil {
			http.Error(w, "Failed to create token", http.StatusInternalServerError)
			return
		}
		if err := s.StoreRefreshToken(r.Context(), user.ID, hashToken(refreshToken), expiresAt); err != nil {
			http.Error(w, "Failed to persist session", http.StatusInternalServerError)
			return
		}

		now := time.Now().Unix()
		user.LastLogin = &now
		if _, err := s.UpdateUser(r.Context(), user); err != nil {
			log.Printf("⚠️ Failed to update last login for %s: %v", user.Email, err)
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoginResponse{
			OK:           true,
			Token:        accessToken,
			RefreshToken: refreshToken,
			User:         &userResponse,
		})
	}
}

// Refresh exchanges a valid refresh token for a fresh token pair. The
// presented token is revoked, so each refresh token works exactly once.
func Refresh(s store.Store, cfg config.AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		token, err := jwt.Parse(req.RefreshToken, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["typ"] != "refresh" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		userID, _ := claims["user_id"].(string)

		tokenHash := hashToken(req.RefreshToken)
		known, err := s.HasRefreshToken(r.Context(), userID, tokenHash)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !known {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := s.GetUser(r.Context(), userID)
		if err != nil || !user.IsActive {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Rotate: revoke the presented token, issue a new pair
		if err := s.DeleteRefreshToken(r.Context(), userID, tokenHash); err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		accessToken, err := signAccessToken(user, cfg)
		if err != nil {
			http.Error(w, "Failed to create token", http.StatusInternalServerError)
			return
		}
		refreshToken, expiresAt, err := signRefreshToken(user, cfg)
		if err != nil {
			http.Error(w, "Failed to create token", http.StatusInternalServerError)
			return
		}
		if err := s.StoreRefreshToken(r.Context(), user.ID, hashToken(refreshToken), expiresAt); err != nil {
			http.Error(w, "Failed to persist session", http.StatusInternalServerError)
			return
		}

		userResponse := user.ToUserResponse()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoginResponse{
			OK:           true,
			Token:        accessToken,
			RefreshToken: refreshToken,
			User:         &userResponse,
		})
	}
}

// Logout revokes every refresh token the user holds.
func Logout(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := s.DeleteUserRefreshTokens(r.Context(), user.UserID); err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.Printf("🔓 Logged out: %s", user.Email)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

// Me returns the authenticated user's profile.
func Me(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := s.GetUser(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(user.ToUserResponse())
	}
}

type CreateUserRequest struct {
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Role     models.AdminRole `json:"role"`
}

// CreateUser registers a new admin panel account. Admin only.
func CreateUser(s store.Store, cfg config.AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" || req.Email == "" {
			http.Error(w, "name and email are required", http.StatusBadRequest)
			return
		}
		if len(req.Password) < 8 {
			http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
			return
		}
		switch req.Role {
		case models.RoleAdmin, models.RoleManager, models.RoleOperator:
		case "":
			req.Role = models.RoleOperator
		default:
			http.Error(w, "Invalid role", http.StatusBadRequest)
			return
		}

		if _, err := s.GetUserByEmail(r.Context(), req.Email); err == nil {
			http.Error(w, "A user with this email already exists", http.StatusConflict)
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), cfg.BcryptCost)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		user, err := s.CreateUser(r.Context(), models.AdminUser{
			Name:     req.Name,
			Email:    req.Email,
			Password: string(hashed),
			Role:     req.Role,
			IsActive: true,
		})
		if err != nil {
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}

		log.Printf("✅ Admin user created: %s (%s)", user.Email, user.Role)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(user.ToUserResponse())
	}
}

type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UpdateProfile lets the authenticated user change their name or password.
func UpdateProfile(s store.Store, cfg config.AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		user, err := s.GetUser(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if req.Name != nil && *req.Name != "" {
			user.Name = *req.Name
		}
		if req.Password != nil {
			if len(*req.Password) < 8 {
				http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
				return
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), cfg.BcryptCost)
			if err != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			user.Password = string(hashed)
		}

		updated, err := s.UpdateUser(r.Context(), user)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated.ToUserResponse())
	}
}
