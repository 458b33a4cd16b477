package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// VerificationCodeLength is the number of characters in a generated code.
// Codes only need to be unguessable within a single account's lifetime,
// no global uniqueness is required.
const VerificationCodeLength = 6

// GenerateVerificationCode returns a fixed-length alphanumeric code
func GenerateVerificationCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:VerificationCodeLength]
}

// Verifier drives the verification-code lifecycle: codes are handed out at
// signup and redeemed at most once.
type Verifier struct {
	repo       RepositoryManager
	dispatcher Dispatcher
	logger     Logger
}

// NewVerifier creates a new Verifier instance
func NewVerifier(repo RepositoryManager, dispatcher Dispatcher) *Verifier {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	return &Verifier{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     defLogger{},
	}
}

func (v *Verifier) WithLogger(l Logger) *Verifier {
	if l != nil {
		v.logger = l
	}
	return v
}

// Start assigns a fresh code to an unverified user and returns it. Delivery
// is a separate step so callers can persist the account first and Dispatch
// once it is committed.
func (v *Verifier) Start(_ context.Context, user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	code := GenerateVerificationCode()
	user.VerificationCode = &code
	user.IsVerified = false

	return code, nil
}

// Dispatch sends the verification notification without blocking the caller
// on the outcome. Fire-and-forget: a delivery failure is logged and never
// propagated, so signup succeeds even when email sending fails.
func (v *Verifier) Dispatch(ctx context.Context, email, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second*10)
		defer cancel()

		if err := v.dispatcher.SendVerification(ctx, email, code); err != nil {
			v.logger.Error("verification dispatch failed for %s: %v", email, err)
		}
	}()
}

// Complete redeems a verification code. The repository performs a single
// compare-and-update, so the code works exactly once; every failure mode
// (unknown email, already verified, soft-deleted, wrong code) collapses
// into the one opaque ErrVerificationFailed.
func (v *Verifier) Complete(ctx context.Context, email, code string, now time.Time) (*User, error) {
	if email == "" || code == "" {
		return nil, ErrVerificationFailed
	}

	user, err := v.repo.Users().VerifyEmail(ctx, email, code, now)
	if err != nil {
		if goerrors.Is(err, ErrVerificationFailed) {
			return nil, ErrVerificationFailed
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to complete verification")
	}

	return user, nil
}

type noopDispatcher struct{}

func (noopDispatcher) SendVerification(context.Context, string, string) error { return nil }

// LoggerDispatcher prints verification codes instead of delivering them.
// Useful in development and tests.
type LoggerDispatcher struct {
	Logger Logger
}

func (d LoggerDispatcher) SendVerification(_ context.Context, email, code string) error {
	logger := d.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("verification code for %s: %s", email, code)
	return nil
}
