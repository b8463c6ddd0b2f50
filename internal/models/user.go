package models

// AdminRole gates administrative endpoints.
type AdminRole string

const (
	RoleAdmin    AdminRole = "admin"
	RoleManager  AdminRole = "manager"
	RoleOperator AdminRole = "operator"
)

type AdminUser struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"` // bcrypt hash, never returned in JSON
	Role      AdminRole `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	LastLogin *int64    `json:"last_login,omitempty" db:"last_login"` // Unix timestamp
	CreatedAt int64     `json:"created_at" db:"created_at"`
	UpdatedAt int64     `json:"updated_at" db:"updated_at"`
}

// RefreshToken is a stored (hashed) refresh credential for an admin user.
type RefreshToken struct {
	ID        int    `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	TokenHash string `json:"-" db:"token_hash"`
	ExpiresAt int64  `json:"expires_at" db:"expires_at"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      AdminRole `json:"role"`
	CreatedAt int64     `json:"created_at"`
}

func (u *AdminUser) ToUserResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
