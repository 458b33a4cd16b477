package accounts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingDispatcher remembers every verification code it was asked to send
type capturingDispatcher struct {
	mu        sync.Mutex
	delivered chan dispatched
}

func newCapturingDispatcher() *capturingDispatcher {
	return &capturingDispatcher{delivered: make(chan dispatched, 8)}
}

func (d *capturingDispatcher) SendVerification(ctx context.Context, email, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered <- dispatched{Email: email, Code: code}
	return nil
}

func (d *capturingDispatcher) waitForCode(t *testing.T) dispatched {
	t.Helper()
	select {
	case sent := <-d.delivered:
		return sent
	case <-time.After(5 * time.Second):
		t.Fatal("no verification code was dispatched")
		return dispatched{}
	}
}

func TestAccountLifecycleIntegration(t *testing.T) {
	db := newTestDB(t)
	repo := accounts.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())

	dispatcher := newCapturingDispatcher()
	tokens := accounts.NewTokenService(newTestConfig(), noopLogger{})
	verifier := accounts.NewVerifier(repo, dispatcher).WithLogger(noopLogger{})
	provider := accounts.NewUserProvider(repo.Users()).WithLogger(noopLogger{})
	auther := accounts.NewAuthenticator(provider, tokens).WithLogger(noopLogger{})
	register := accounts.NewRegisterUserHandler(repo, verifier)

	controller := accounts.NewAccountsController(
		accounts.WithControllerRepo(repo),
		accounts.WithControllerAuther(auther),
		accounts.WithControllerTokens(tokens),
		accounts.WithControllerVerifier(verifier),
		accounts.WithControllerRegister(register),
		accounts.WithControllerLogger(noopLogger{}),
	)

	app := fiber.New()
	accounts.RegisterRoutes(app, controller)
	f := &controllerFixture{app: app, tokens: tokens}

	// signup
	res := f.request(t, fiber.MethodPost, "/auth/signup", "", map[string]string{
		"email":      "Ada@Example.com",
		"password":   "analytical-engine",
		"first_name": "Ada",
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var created map[string]any
	decodeBody(t, res, &created)
	assert.Equal(t, "ada@example.com", created["email"])
	assert.Equal(t, false, created["is_verified"])
	assert.NotContains(t, created, "password_hash")

	dup := f.request(t, fiber.MethodPost, "/auth/signup", "", map[string]string{
		"email":    "ada@example.com",
		"password": "analytical-engine",
	})
	assert.Equal(t, fiber.StatusBadRequest, dup.StatusCode, "duplicate signup must fail")

	code := dispatcher.waitForCode(t)
	assert.Equal(t, "ada@example.com", code.Email)
	assert.Len(t, code.Code, accounts.VerificationCodeLength)

	// login works before verification; the account just remains sweepable
	res = f.request(t, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "analytical-engine",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	// verify
	res = f.request(t, fiber.MethodPost, "/auth/verify", "", map[string]string{
		"email": "ada@example.com",
		"code":  code.Code,
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var verified map[string]any
	decodeBody(t, res, &verified)
	assert.Equal(t, true, verified["is_verified"])

	res = f.request(t, fiber.MethodPost, "/auth/verify", "", map[string]string{
		"email": "ada@example.com",
		"code":  code.Code,
	})
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode, "a code works exactly once")

	// login and use the pair
	res = f.request(t, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "analytical-engine",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var pair accounts.TokenPair
	decodeBody(t, res, &pair)
	require.NotEmpty(t, pair.AccessToken)

	res = f.request(t, fiber.MethodGet, "/users/me", pair.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var me map[string]any
	decodeBody(t, res, &me)
	assert.Equal(t, "ada@example.com", me["email"])

	res = f.request(t, fiber.MethodGet, "/users/", pair.AccessToken, nil)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode, "fresh accounts are not admins")

	// refresh rotates the pair
	res = f.request(t, fiber.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var rotated accounts.TokenPair
	decodeBody(t, res, &rotated)
	require.NotEmpty(t, rotated.AccessToken)

	res = f.request(t, fiber.MethodGet, "/users/me", rotated.AccessToken, nil)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestSweepIntegration(t *testing.T) {
	db := newTestDB(t)
	repo := accounts.NewRepositoryManager(db)

	now := time.Now()
	old := now.Add(-72 * time.Hour)

	seedUser(t, repo.Users(), "stale@x.com", func(u *accounts.User) { u.CreatedAt = &old })
	seedUser(t, repo.Users(), "kept@x.com", func(u *accounts.User) {
		u.CreatedAt = &old
		u.IsVerified = true
		u.VerificationCode = nil
	})
	seedUser(t, repo.Users(), "fresh@x.com", nil)

	handler := accounts.NewSweepUnverifiedHandler(repo, newTestConfig()).WithLogger(noopLogger{})

	err := handler.Execute(context.Background(), accounts.SweepUnverifiedMessage{Now: now})
	require.NoError(t, err)

	_, err = repo.Users().GetByEmail(context.Background(), "stale@x.com")
	assert.Error(t, err)

	kept, err := repo.Users().GetByEmail(context.Background(), "kept@x.com")
	assert.NoError(t, err)
	assert.True(t, kept.IsVerified)

	fresh, err := repo.Users().GetByEmail(context.Background(), "fresh@x.com")
	assert.NoError(t, err)
	assert.False(t, fresh.IsDeleted)

	t.Run("a swept email can sign up again", func(t *testing.T) {
		verifier := accounts.NewVerifier(repo, nil).WithLogger(noopLogger{})
		register := accounts.NewRegisterUserHandler(repo, verifier)

		created, err := register.Execute(context.Background(), accounts.RegisterUserMessage{
			Email:    "stale@x.com",
			Password: "second-chance",
		})
		require.NoError(t, err)
		assert.False(t, created.IsVerified)
		assert.NotNil(t, created.VerificationCode)
	})
}
