package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is the default role (i.e. self-service operations)
	RoleUser UserRole = "user"
	// RoleAdmin is an admin role (i.e. list, update, delete any account)
	RoleAdmin UserRole = "admin"
)

// User is the account model
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string     `bun:"email,notnull" json:"email,omitempty"`
	PasswordHash     string     `bun:"password_hash,notnull" json:"-"`
	FirstName        string     `bun:"first_name" json:"first_name,omitempty"`
	LastName         string     `bun:"last_name" json:"last_name,omitempty"`
	Role             UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	IsVerified       bool       `bun:"is_verified" json:"is_verified"`
	VerificationCode *string    `bun:"verification_code,nullzero" json:"-"`
	IsDeleted        bool       `bun:"is_deleted" json:"is_deleted,omitempty"`
	LoginAttempts    int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt   *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt        *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// NormalizeEmail lowercases and trims an email so lookups and the unique
// constraint agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sanitized returns a copy safe for external representation: the password
// hash and verification code never leave the service.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.VerificationCode = nil
	return &out
}
