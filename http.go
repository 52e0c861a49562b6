package session

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session/middleware/jwtware"
	"github.com/google/uuid"
)

// Middleware builds the protected-route guard for an HTTP router.
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// RouteAuthenticator adapts a SessionManager to an HTTP surface: it issues
// and clears the token cookies and builds the guard middleware for
// protected routes. Cookies are HTTPOnly and Secure so tokens never leak to
// page scripts.
type RouteAuthenticator struct {
	manager          SessionManager
	tokens           TokenService
	users            Users
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(manager SessionManager, users Users, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:     cfg,
		manager: manager,
		users:   users,
		Logger:  defLogger{},
	}

	if tp, ok := manager.(interface{ TokenService() TokenService }); ok {
		a.tokens = tp.TokenService()
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// WithTokenService sets the validator used by the protected-route guard.
// Only needed when the session manager does not expose its own.
func (a *RouteAuthenticator) WithTokenService(tokens TokenService) *RouteAuthenticator {
	a.tokens = tokens
	return a
}

func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:    errorHandler,
		TokenValidator:  guardValidator{tokens: a.tokens},
		PrincipalLoader: a.loadPrincipal,
		AuthScheme:      cfg.GetAuthScheme(),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

// Login exchanges credentials for a token pair and sets both token cookies.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (*TokenPair, error) {
	pair, err := a.manager.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	a.setTokenCookies(ctx, pair)
	return pair, nil
}

// Refresh rotates the session using the refresh token from the cookie, or
// from the request body when no cookie is present, and sets the fresh pair
// of cookies.
func (a *RouteAuthenticator) Refresh(ctx router.Context) (*TokenPair, error) {
	refreshToken := ctx.Cookies(a.cfg.GetRefreshCookieName())
	if refreshToken == "" {
		body := struct {
			RefreshToken string `json:"refresh_token"`
		}{}
		if err := ctx.Bind(&body); err == nil {
			refreshToken = body.RefreshToken
		}
	}

	pair, err := a.manager.Refresh(ctx.Context(), refreshToken)
	if err != nil {
		a.Logger.Error("Refresh error: %s", err)
		return nil, err
	}

	a.setTokenCookies(ctx, pair)
	return pair, nil
}

// Logout closes the session and expires both token cookies. Logging out an
// already logged out principal is not an error.
func (a *RouteAuthenticator) Logout(ctx router.Context, principalID uuid.UUID) error {
	if err := a.manager.Logout(ctx.Context(), principalID); err != nil {
		a.Logger.Error("Logout error: %s", err)
		return err
	}

	a.cookieDel(ctx, a.cfg.GetAccessCookieName())
	a.cookieDel(ctx, a.cfg.GetRefreshCookieName())
	return nil
}

// MakeClientRouteAuthErrorHandler collapses every guard failure into the
// same unauthorized response so callers cannot distinguish a missing token
// from an expired or tampered one.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.AuthErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) loadPrincipal(ctx context.Context, claims jwtware.AuthClaims) (any, error) {
	user, err := a.users.GetByIdentifier(ctx, claims.UserID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}
	return user.Sanitized(), nil
}

func (a *RouteAuthenticator) setTokenCookies(c router.Context, pair *TokenPair) {
	a.setCookieToken(c, a.cfg.GetAccessCookieName(), pair.AccessToken, a.cfg.GetAccessTokenTTL())
	a.setCookieToken(c, a.cfg.GetRefreshCookieName(), pair.RefreshToken, a.cfg.GetRefreshTokenTTL())
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.JSON(router.StatusUnauthorized, router.ViewContext{
		"success": false,
		"message": "Unauthorized request",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Error(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(richErr.Code, router.ViewContext{
			"success": false,
			"message": "Internal server error",
		})
	}
}

// guardValidator narrows the token service to the access-token check the
// request guard needs.
type guardValidator struct {
	tokens TokenService
}

func (g guardValidator) ValidateAccess(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := g.tokens.ValidateAccess(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)
