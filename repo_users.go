package accounts

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerifyUserEmailSQL flips an account to verified and clears the code in a
// single compare-and-update. The WHERE clause carries every precondition, so
// concurrent attempts race safely: one wins, the rest match zero rows.
var VerifyUserEmailSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE,
	"verification_code" = NULL,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."is_deleted" = FALSE
AND "usr"."is_verified" = FALSE
AND "usr"."email" = ?
AND "usr"."verification_code" = ?
RETURNING *;`

// SweepUnverifiedSQL soft-deletes every unverified account created before
// the cutoff as one batch statement. Already swept or verified rows never
// match, which makes re-runs no-ops.
var SweepUnverifiedSQL = `UPDATE "users" AS "usr"
SET
	"is_deleted" = TRUE,
	"deleted_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."is_deleted" = FALSE
AND "usr"."is_verified" = FALSE
AND "usr"."created_at" < ?
RETURNING "usr"."id";`

// UsersEmailLiveIndexSQL keeps emails unique among live accounts only. A
// soft-deleted row releases its email, so an address swept for staying
// unverified can sign up again.
var UsersEmailLiveIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS "users_email_live_idx"
ON "users" ("email")
WHERE "deleted_at" IS NULL;`

// UpdateUserFields is the allow-list of columns the generic PATCH path may
// touch. Role, verification state, and delete flags only move through their
// dedicated operations.
var UpdateUserFields = []string{"first_name", "last_name"}

type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListUnverifiedBefore(ctx context.Context, cutoff time.Time) ([]*User, error)

	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*User, error)
	SetRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error)
	SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error

	VerifyEmail(ctx context.Context, email, code string, now time.Time) (*User, error)
	VerifyEmailTx(ctx context.Context, tx bun.IDB, email, code string, now time.Time) (*User, error)
	SweepUnverified(ctx context.Context, cutoff, now time.Time) (int, error)
	SweepUnverifiedTx(ctx context.Context, tx bun.IDB, cutoff, now time.Time) (int, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// CreateUsersSchema creates the users table and the partial unique index on
// live emails
func CreateUsersSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	_, err := db.NewRaw(UsersEmailLiveIndexSQL).Exec(ctx)
	return err
}

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(`?TableAlias."email" = ?`, NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *users) ListUnverifiedBefore(ctx context.Context, cutoff time.Time) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Where(`?TableAlias."is_verified" = FALSE`).
		Where(`?TableAlias."is_deleted" = FALSE`).
		Where(`?TableAlias."created_at" < ?`, cutoff).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *users) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*User, error) {
	record := &User{ID: id}
	now := time.Now()
	record.UpdatedAt = &now

	q := a.db.NewUpdate().
		Model(record).
		Column("updated_at").
		WherePK().
		Where(`"usr"."deleted_at" IS NULL`)

	applied := false
	for _, col := range UpdateUserFields {
		val, ok := fields[col]
		if !ok {
			continue
		}
		q = q.Set("? = ?", bun.Ident(col), val)
		applied = true
	}

	if !applied {
		return a.GetByID(ctx, id.String())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return a.GetByID(ctx, id.String())
}

// SetRole is the only path that mutates an account's role
func (a *users) SetRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	now := time.Now()
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set(`"user_role" = ?`, string(role)).
		Set(`"updated_at" = ?`, now).
		Where(`"usr"."id" = ?`, id).
		Where(`"usr"."deleted_at" IS NULL`).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return a.GetByID(ctx, id.String())
}

// SoftDelete marks the account deleted; the flag is monotonic, a second
// call on the same row matches zero rows and reports not found
func (a *users) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set(`"is_deleted" = TRUE`).
		Set(`"deleted_at" = ?`, now).
		Where(`"usr"."id" = ?`, id).
		Where(`"usr"."deleted_at" IS NULL`).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *users) TrackSucccessfulLogin(ctx context.Context, user *User) error {
	// NOTE: Updating using the ORM fails due to a bug, it wont reset
	// login_attempt_at, login_attempts fields.
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.Update(ctx, record, repository.UpdateByID(user.ID.String()))

	return err
}

func (a *users) VerifyEmail(ctx context.Context, email, code string, now time.Time) (*User, error) {
	return a.VerifyEmailTx(ctx, a.db, email, code, now)
}

func (a *users) VerifyEmailTx(ctx context.Context, tx bun.IDB, email, code string, now time.Time) (*User, error) {
	record := &User{}
	err := tx.NewRaw(VerifyUserEmailSQL, now, NormalizeEmail(email), code).
		Scan(ctx, record)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, ErrVerificationFailed
		}
		return nil, err
	}

	return record, nil
}

func (a *users) SweepUnverified(ctx context.Context, cutoff, now time.Time) (int, error) {
	return a.SweepUnverifiedTx(ctx, a.db, cutoff, now)
}

func (a *users) SweepUnverifiedTx(ctx context.Context, tx bun.IDB, cutoff, now time.Time) (int, error) {
	var ids []uuid.UUID
	err := tx.NewRaw(SweepUnverifiedSQL, now, cutoff).Scan(ctx, &ids)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}

	return len(ids), nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
}
