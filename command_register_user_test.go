package accounts_test

import (
	"context"
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRegisterUserHandler(t *testing.T) {
	msg := accounts.RegisterUserMessage{
		Email:     "New@X.com",
		Password:  "secret",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}

	t.Run("creates an unverified user and dispatches the code", func(t *testing.T) {
		users := &MockUsers{}
		repo := NewMockRepositoryManager(users)
		dispatcher := NewMockDispatcher()
		dispatcher.On("SendVerification", mock.Anything, "new@x.com", mock.Anything).Return(nil)
		verifier := accounts.NewVerifier(repo, dispatcher).WithLogger(noopLogger{})

		users.On("GetByEmailTx", mock.Anything, mock.Anything, "new@x.com").
			Return(nil, repository.NewRecordNotFound())
		users.On("CreateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *accounts.User) bool {
			return u.Email == "new@x.com" &&
				u.Role == accounts.RoleUser &&
				!u.IsVerified &&
				u.VerificationCode != nil &&
				len(*u.VerificationCode) == accounts.VerificationCodeLength &&
				u.PasswordHash != "" &&
				u.PasswordHash != "secret"
		})).Return(&accounts.User{ID: uuid.New(), Email: "new@x.com", Role: accounts.RoleUser}, nil)

		handler := accounts.NewRegisterUserHandler(repo, verifier)

		user, err := handler.Execute(context.Background(), msg)
		assert.NoError(t, err)
		assert.Equal(t, "new@x.com", user.Email)

		sent := <-dispatcher.delivered
		assert.Equal(t, "new@x.com", sent.Email)
		assert.Len(t, sent.Code, accounts.VerificationCodeLength)

		users.AssertExpectations(t)
	})

	t.Run("duplicate email aborts the transaction", func(t *testing.T) {
		users := &MockUsers{}
		repo := NewMockRepositoryManager(users)
		verifier := accounts.NewVerifier(repo, nil).WithLogger(noopLogger{})

		users.On("GetByEmailTx", mock.Anything, mock.Anything, "new@x.com").
			Return(&accounts.User{ID: uuid.New(), Email: "new@x.com"}, nil)

		handler := accounts.NewRegisterUserHandler(repo, verifier)

		_, err := handler.Execute(context.Background(), msg)
		assert.ErrorIs(t, err, accounts.ErrDuplicateEmail)
		users.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a storage conflict reads as duplicate email", func(t *testing.T) {
		users := &MockUsers{}
		repo := NewMockRepositoryManager(users)
		verifier := accounts.NewVerifier(repo, nil).WithLogger(noopLogger{})

		users.On("GetByEmailTx", mock.Anything, mock.Anything, "new@x.com").
			Return(nil, repository.NewRecordNotFound())
		users.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("constraint failed: UNIQUE constraint failed: users.email"))

		handler := accounts.NewRegisterUserHandler(repo, verifier)

		_, err := handler.Execute(context.Background(), msg)
		assert.ErrorIs(t, err, accounts.ErrDuplicateEmail)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		users := &MockUsers{}
		repo := NewMockRepositoryManager(users)
		verifier := accounts.NewVerifier(repo, nil).WithLogger(noopLogger{})

		users.On("GetByEmailTx", mock.Anything, mock.Anything, "new@x.com").
			Return(nil, repository.NewRecordNotFound())

		handler := accounts.NewRegisterUserHandler(repo, verifier)

		blank := msg
		blank.Password = ""

		_, err := handler.Execute(context.Background(), blank)
		assert.Error(t, err)
		users.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled context short circuits", func(t *testing.T) {
		users := &MockUsers{}
		repo := NewMockRepositoryManager(users)
		verifier := accounts.NewVerifier(repo, nil).WithLogger(noopLogger{})

		handler := accounts.NewRegisterUserHandler(repo, verifier)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := handler.Execute(ctx, msg)
		assert.Error(t, err)
		users.AssertNotCalled(t, "GetByEmailTx", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRegisterUserMessageType(t *testing.T) {
	assert.Equal(t, "user.register", accounts.RegisterUserMessage{}.Type())
}
