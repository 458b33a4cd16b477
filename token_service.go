package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues and validates signed access and refresh tokens
type TokenService interface {
	IssueAccess(subject string, role UserRole) (string, error)
	IssueRefresh(subject string, role UserRole) (string, error)
	Validate(tokenString string, expected TokenType) (AuthClaims, error)
	Refresh(refreshToken string) (*TokenPair, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	location   *time.Location
	logger     Logger
}

// NewTokenService creates a new TokenService instance. Issuance timestamps
// are taken in the given location; comparison happens on absolute instants
// so the location only affects what gets recorded, never validity.
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	loc := cfg.GetLocation()
	if loc == nil {
		loc = time.UTC
	}

	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		location:   loc,
		logger:     logger,
	}
}

var _ TokenService = (*TokenServiceImpl)(nil)

// IssueAccess mints an access token with expiry = now + access TTL
func (ts *TokenServiceImpl) IssueAccess(subject string, role UserRole) (string, error) {
	return ts.issue(subject, role, TokenTypeAccess, ts.accessTTL)
}

// IssueRefresh mints a refresh token with expiry = now + refresh TTL
func (ts *TokenServiceImpl) IssueRefresh(subject string, role UserRole) (string, error) {
	return ts.issue(subject, role, TokenTypeRefresh, ts.refreshTTL)
}

func (ts *TokenServiceImpl) issue(subject string, role UserRole, use TokenType, ttl time.Duration) (string, error) {
	now := time.Now().In(ts.location)
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenUse: string(use),
		UserRole: string(role),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses a token string, checks the signature and expiry, and
// enforces the expected type tag before returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string, expected TokenType) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.Type() != expected {
		return nil, ErrTokenWrongType
	}

	return claims, nil
}

// Refresh validates a refresh token and mints a new access/refresh pair.
// There is no revocation store, so the presented refresh token stays
// valid until its own expiry.
func (ts *TokenServiceImpl) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := ts.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	access, err := ts.IssueAccess(claims.Subject(), UserRole(claims.Role()))
	if err != nil {
		return nil, err
	}

	refresh, err := ts.IssueRefresh(claims.Subject(), UserRole(claims.Role()))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
