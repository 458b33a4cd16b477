package accounts

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Config holds accounts options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetLocation() *time.Location
	GetUnverifiedLifetime() time.Duration
	GetSweepHour() int
	GetSweepMinute() int
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Dispatcher delivers verification notifications. Implementations are
// fire-and-forget: a delivery failure never fails the caller.
type Dispatcher interface {
	SendVerification(ctx context.Context, email, code string) error
}

// Job is a unit of deferred work driven by a Scheduler.
type Job interface {
	Execute(ctx context.Context) error
}

// JobFunc adapts a function into a Job.
type JobFunc func(ctx context.Context) error

// Execute satisfies the Job interface.
func (f JobFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Scheduler runs a job on a recurring daily schedule until ctx is done.
type Scheduler interface {
	Run(ctx context.Context, spec Schedule, job Job) error
}

// Schedule is a daily hour/minute trigger evaluated in a location.
type Schedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
