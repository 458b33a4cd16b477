package accounts

import (
	"context"
	"reflect"
)

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	IdentityFromToken(ctx context.Context, tokenString string) (Identity, error)
}

// Auther authenticates credentials and exchanges them for token pairs
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokenService TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

var _ Authenticator = (*Auther)(nil)

// Login verifies credentials and mints an access/refresh pair keyed on the
// account's email
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, ErrIdentityNotFound
	}

	return s.issuePair(identity)
}

// Refresh validates a refresh token and rotates the pair
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	pair, err := s.tokenService.Refresh(refreshToken)
	if err != nil {
		s.logger.Error("Refresh token rotation error: %v", err)
		return nil, err
	}

	return pair, nil
}

// IdentityFromToken resolves the current account behind a valid access token
func (s *Auther) IdentityFromToken(ctx context.Context, tokenString string) (Identity, error) {
	claims, err := s.tokenService.Validate(tokenString, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	return s.provider.FindIdentityByIdentifier(ctx, claims.Subject())
}

func (s *Auther) issuePair(identity Identity) (*TokenPair, error) {
	access, err := s.tokenService.IssueAccess(identity.Email(), UserRole(identity.Role()))
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokenService.IssueRefresh(identity.Email(), UserRole(identity.Role()))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
