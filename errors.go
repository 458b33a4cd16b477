package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes carried by the sentinel errors below. They survive wrapping
// and are what API consumers should branch on.
const (
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenWrongType     = "TOKEN_WRONG_TYPE"
	TextCodeVerificationFailed = "VERIFICATION_FAILED"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeInvalidRole        = "INVALID_ROLE"
	TextCodeForbidden          = "FORBIDDEN"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is returned when credentials do not verify
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrTooManyLoginAttempts means the account is cooling down
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrTokenExpired is returned when a token is past its expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers signature mismatch and structural failures
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenWrongType is returned when a token's type tag does not match the
// expected type, e.g. a refresh token presented where an access token is
// required.
var ErrTokenWrongType = errors.New("token type mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeTokenWrongType).
	WithCode(errors.CodeUnauthorized)

// ErrVerificationFailed is the single opaque failure for every verification
// miss: unknown email, already verified, soft-deleted, or code mismatch.
// Collapsing them prevents account enumeration.
var ErrVerificationFailed = errors.New("invalid verification code", errors.CategoryValidation).
	WithTextCode(TextCodeVerificationFailed)

// ErrDuplicateEmail is returned when signup hits an existing email
var ErrDuplicateEmail = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrInvalidRole rejects unknown role values on role updates
var ErrInvalidRole = errors.New("invalid role", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidRole)

// ErrForbidden is returned when the caller's role is insufficient
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuth).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// IsDuplicateKeyError will check for unique constraint violations. Matching
// on text keeps it portable across sqlite and postgres drivers.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
