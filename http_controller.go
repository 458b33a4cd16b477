package accounts

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountsController exposes the JSON API for account and token lifecycle
type AccountsController struct {
	Logger   Logger
	Repo     RepositoryManager
	Auther   Authenticator
	Tokens   TokenService
	Verifier *Verifier
	Register *RegisterUserHandler
	Location *time.Location
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:   defLogger{},
		Location: time.UTC,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in accounts controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in accounts controller...")
	}

	if c.Register == nil {
		panic("Missing RegisterUserHandler in accounts controller...")
	}

	if c.Verifier == nil {
		panic("Missing Verifier in accounts controller...")
	}

	return c
}

func WithControllerLogger(l Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(a Authenticator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Auther = a
		return c
	}
}

func WithControllerTokens(ts TokenService) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Tokens = ts
		return c
	}
}

func WithControllerVerifier(v *Verifier) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Verifier = v
		return c
	}
}

func WithControllerRegister(h *RegisterUserHandler) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Register = h
		return c
	}
}

func WithControllerLocation(loc *time.Location) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if loc != nil {
			c.Location = loc
		}
		return c
	}
}

// RegisterRoutes mounts the full HTTP surface on the app
func RegisterRoutes(app *fiber.App, controller *AccountsController) {
	app.Get("/healthz", controller.Health)

	auth := app.Group("/auth")
	auth.Post("/signup", controller.Signup)
	auth.Post("/login", controller.Login)
	auth.Post("/verify", controller.Verify)
	auth.Post("/refresh", controller.Refresh)

	users := app.Group("/users", Protected(controller.Tokens))
	users.Get("/me", controller.Me)
	users.Get("/", RequireRole(RoleAdmin), controller.ListUsers)
	users.Get("/:id", RequireRole(RoleAdmin), controller.GetUser)
	users.Patch("/:id/role", RequireRole(RoleAdmin), controller.SetUserRole)
	users.Patch("/:id", RequireRole(RoleAdmin), controller.UpdateUser)
	users.Delete("/:id", RequireRole(RoleAdmin), controller.DeleteUser)
}

// SignupRequest payload
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		// bcrypt rejects passwords longer than 72 bytes
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

func (a *AccountsController) Signup(c *fiber.Ctx) error {
	payload := new(SignupRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := a.Register.Execute(c.Context(), RegisterUserMessage{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		if goerrors.Is(err, ErrDuplicateEmail) {
			return badRequest(c, ErrDuplicateEmail.Message)
		}
		return a.serverError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user.Sanitized())
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountsController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	pair, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		// wrong password, unknown email, and cooldown all read the same
		if goerrors.Is(err, ErrMismatchedHashAndPassword) ||
			goerrors.Is(err, ErrIdentityNotFound) ||
			goerrors.Is(err, ErrTooManyLoginAttempts) {
			return badRequest(c, "incorrect email or password")
		}
		return a.serverError(c, err)
	}

	return c.JSON(pair)
}

// VerifyRequest payload
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate will run validation rules
func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required),
	)
}

func (a *AccountsController) Verify(c *fiber.Ctx) error {
	payload := new(VerifyRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, ErrVerificationFailed.Message)
	}

	user, err := a.Verifier.Complete(c.Context(), payload.Email, payload.Code, time.Now().In(a.Location))
	if err != nil {
		if goerrors.Is(err, ErrVerificationFailed) {
			return badRequest(c, ErrVerificationFailed.Message)
		}
		return a.serverError(c, err)
	}

	return c.JSON(user.Sanitized())
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *AccountsController) Refresh(c *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if payload.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	pair, err := a.Auther.Refresh(c.Context(), payload.RefreshToken)
	if err != nil {
		// expired, malformed, and wrong-type all collapse to one answer
		if IsTokenExpiredError(err) || IsMalformedError(err) || goerrors.Is(err, ErrTokenWrongType) {
			return badRequest(c, "invalid refresh token")
		}
		return a.serverError(c, err)
	}

	return c.JSON(pair)
}

func (a *AccountsController) Me(c *fiber.Ctx) error {
	claims, ok := ClaimsFromFiberContext(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := a.Repo.Users().GetByEmail(c.Context(), claims.Subject())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return unauthorized(c)
		}
		return a.serverError(c, err)
	}

	if user.IsDeleted || user.DeletedAt != nil {
		return unauthorized(c)
	}

	return c.JSON(user.Sanitized())
}

func (a *AccountsController) ListUsers(c *fiber.Ctx) error {
	records, err := a.Repo.Users().List(c.Context())
	if err != nil {
		return a.serverError(c, err)
	}

	out := make([]*User, 0, len(records))
	for _, u := range records {
		out = append(out, u.Sanitized())
	}

	return c.JSON(out)
}

func (a *AccountsController) GetUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	user, err := a.Repo.Users().GetByID(c.Context(), id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return notFound(c)
		}
		return a.serverError(c, err)
	}

	return c.JSON(user.Sanitized())
}

// UpdateUserRequest payload
type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

func (a *AccountsController) UpdateUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	payload := new(UpdateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	fields := map[string]any{}
	if payload.FirstName != nil {
		fields["first_name"] = *payload.FirstName
	}
	if payload.LastName != nil {
		fields["last_name"] = *payload.LastName
	}

	user, err := a.Repo.Users().UpdateFields(c.Context(), id, fields)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return notFound(c)
		}
		return a.serverError(c, err)
	}

	return c.JSON(user.Sanitized())
}

func (a *AccountsController) DeleteUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	if err := a.Repo.Users().SoftDelete(c.Context(), id, time.Now().In(a.Location)); err != nil {
		if goerrors.IsNotFound(err) {
			return notFound(c)
		}
		return a.serverError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetUserRoleRequest payload. UserID is optional; when present it must
// agree with the path parameter.
type SetUserRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (a *AccountsController) SetUserRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	payload := new(SetUserRoleRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if payload.UserID != "" && payload.UserID != id.String() {
		return badRequest(c, "user_id does not match the requested user")
	}

	role, ok := ParseRole(payload.Role)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": ErrInvalidRole.Message,
		})
	}

	user, err := a.Repo.Users().SetRole(c.Context(), id, role)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return notFound(c)
		}
		return a.serverError(c, err)
	}

	return c.JSON(user.Sanitized())
}

func (a *AccountsController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (a *AccountsController) serverError(c *fiber.Ctx, err error) error {
	a.Logger.Error("request failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "user not found",
	})
}
