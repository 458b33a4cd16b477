package accounts_test

import (
	"context"
	"database/sql"
	"time"

	accounts "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockLogger implements accounts.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// testConfig implements accounts.Config with fixed values
type testConfig struct {
	signingKey         string
	issuer             string
	audience           []string
	accessTTL          time.Duration
	refreshTTL         time.Duration
	location           *time.Location
	unverifiedLifetime time.Duration
	sweepHour          int
	sweepMinute        int
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:         "test-signing-key",
		issuer:             "test-issuer",
		audience:           []string{"test-audience"},
		accessTTL:          30 * time.Minute,
		refreshTTL:         7 * 24 * time.Hour,
		location:           time.UTC,
		unverifiedLifetime: 48 * time.Hour,
	}
}

func (c *testConfig) GetSigningKey() string                { return c.signingKey }
func (c *testConfig) GetIssuer() string                    { return c.issuer }
func (c *testConfig) GetAudience() []string                { return c.audience }
func (c *testConfig) GetAccessTokenTTL() time.Duration     { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration    { return c.refreshTTL }
func (c *testConfig) GetLocation() *time.Location          { return c.location }
func (c *testConfig) GetUnverifiedLifetime() time.Duration { return c.unverifiedLifetime }
func (c *testConfig) GetSweepHour() int                    { return c.sweepHour }
func (c *testConfig) GetSweepMinute() int                  { return c.sweepMinute }

// MockUsers mocks the Users repository. The embedded interface satisfies the
// methods a given test never touches; calling one of those panics, which is
// what we want.
type MockUsers struct {
	mock.Mock
	accounts.Users
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User, criteria ...repository.InsertCriteria) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) List(ctx context.Context) ([]*accounts.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*accounts.User)
	return users, args.Error(1)
}

func (m *MockUsers) ListUnverifiedBefore(ctx context.Context, cutoff time.Time) ([]*accounts.User, error) {
	args := m.Called(ctx, cutoff)
	users, _ := args.Get(0).([]*accounts.User)
	return users, args.Error(1)
}

func (m *MockUsers) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*accounts.User, error) {
	args := m.Called(ctx, id, fields)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) SetRole(ctx context.Context, id uuid.UUID, role accounts.UserRole) (*accounts.User, error) {
	args := m.Called(ctx, id, role)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSucccessfulLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) VerifyEmail(ctx context.Context, email, code string, now time.Time) (*accounts.User, error) {
	args := m.Called(ctx, email, code, now)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) SweepUnverified(ctx context.Context, cutoff, now time.Time) (int, error) {
	args := m.Called(ctx, cutoff, now)
	return args.Int(0), args.Error(1)
}

// MockRepositoryManager mocks accounts.RepositoryManager. RunInTx executes
// the callback inline with a zero transaction, since mocked repositories
// never dereference it.
type MockRepositoryManager struct {
	mock.Mock
	users *MockUsers
}

func NewMockRepositoryManager(users *MockUsers) *MockRepositoryManager {
	return &MockRepositoryManager{users: users}
}

func (m *MockRepositoryManager) Users() accounts.Users {
	return m.users
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

// MockDispatcher records dispatched verification notifications
type MockDispatcher struct {
	mock.Mock
	delivered chan dispatched
}

type dispatched struct {
	Email string
	Code  string
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{delivered: make(chan dispatched, 8)}
}

func (m *MockDispatcher) SendVerification(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	m.delivered <- dispatched{Email: email, Code: code}
	return args.Error(0)
}

// MockIdentity implements accounts.Identity for testing
type MockIdentity struct {
	IDVal    string
	EmailVal string
	RoleVal  string
}

func (m MockIdentity) ID() string    { return m.IDVal }
func (m MockIdentity) Email() string { return m.EmailVal }
func (m MockIdentity) Role() string  { return m.RoleVal }
