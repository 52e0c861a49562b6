package session

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterAuthRoutes mounts the session endpoints on the given router.
// Login and refresh are public; logout, change-password, and current-user
// sit behind the access-token guard.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	authErrHandler := defaultAuthErrorHandler
	if maker, ok := controller.Auther.(interface {
		MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error
	}); ok {
		authErrHandler = maker.MakeClientRouteAuthErrorHandler(false)
	}

	guard := controller.Auther.ProtectedRoute(controller.Config, authErrHandler)

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("session.login")

	app.
		Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("session.refresh")

	app.
		Post(controller.Routes.Logout, guard(controller.LogOut)).
		SetName("session.logout")

	app.
		Post(controller.Routes.ChangePassword, guard(controller.ChangePasswordPost)).
		SetName("session.change-password")

	app.
		Get(controller.Routes.CurrentUser, guard(controller.CurrentUser)).
		SetName("session.current-user")
}

type AuthControllerRoutes struct {
	Login          string
	Refresh        string
	Logout         string
	ChangePassword string
	CurrentUser    string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Manager      SessionManager
	Config       Config
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:          "/login",
			Refresh:        "/refresh-token",
			Logout:         "/logout",
			ChangePassword: "/change-password",
			CurrentUser:    "/current-user",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Manager == nil {
		panic("Missing SessionManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerManager(manager SessionManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Manager = manager
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier, either an email or a username
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse login payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"success":    false,
			"message":    "Invalid login payload",
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= SESSION LOGIN ===")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	pair, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.credentialError(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), payload.GetIdentifier())
	if err != nil {
		a.Logger.Error("login: load user", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"success": true,
		"message": "User logged in successfully",
		"data": router.ViewContext{
			"user":          user.Sanitized(),
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		},
	})
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	pair, err := a.Auther.Refresh(ctx)
	if err != nil {
		a.Logger.Info("refresh rejected", "error", err)
		return ctx.JSON(fiber.StatusUnauthorized, router.ViewContext{
			"success": false,
			"message": "Invalid refresh token",
		})
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"success": true,
		"message": "Access token refreshed",
		"data": router.ViewContext{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		},
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	principalID, err := a.principalID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Auther.Logout(ctx, principalID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"success": true,
		"message": "User logged out",
	})
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
	)
}

func (a *AuthController) ChangePasswordPost(ctx router.Context) error {
	payload := new(ChangePasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"success":    false,
			"message":    "Invalid password payload",
			"validation": err.Error(),
		})
	}

	principalID, err := a.principalID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Manager.ChangePassword(ctx.Context(), principalID, payload.OldPassword, payload.NewPassword); err != nil {
		return a.credentialError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"success": true,
		"message": "Password changed successfully",
	})
}

func (a *AuthController) CurrentUser(ctx router.Context) error {
	user, ok := GetRouterUser(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToFindSession)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"success": true,
		"message": "Current user fetched successfully",
		"data":    user,
	})
}

func (a *AuthController) principalID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := GetRouterClaims(ctx, "claims")
	if !ok {
		return uuid.Nil, ErrUnableToDecodeSession
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryAuth, "Invalid principal identifier").
			WithCode(errors.CodeUnauthorized)
	}

	return id, nil
}

// credentialError collapses every credential failure into the same
// unauthorized response so callers cannot probe which accounts exist.
func (a *AuthController) credentialError(ctx router.Context, err error) error {
	if errors.Is(err, ErrIdentityNotFound) ||
		errors.Is(err, ErrMismatchedHashAndPassword) ||
		IsAuthError(err) {
		a.Logger.Info("credential check failed", "error", err)
		return ctx.JSON(fiber.StatusUnauthorized, router.ViewContext{
			"success": false,
			"message": "Invalid credentials",
		})
	}

	return a.ErrorHandler(ctx, err)
}

func defaultAuthErrorHandler(c router.Context, err error) error {
	return c.JSON(fiber.StatusUnauthorized, router.ViewContext{
		"success": false,
		"message": "Unauthorized request",
	})
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	return c.JSON(richErr.Code, router.ViewContext{
		"success": false,
		"message": richErr.Message,
	})
}
