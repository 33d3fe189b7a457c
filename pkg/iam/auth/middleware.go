package auth

import (
	"context"
	"strings"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

const (
	localsAuth        = "auth"
	localsAccessToken = "access_token"
	accessTokenCookie = "access_token"
)

// TokenSessions is the part of the token manager the middleware needs.
type TokenSessions interface {
	FindByAccessSecret(ctx context.Context, secret string) (*token.Token, error)
	ExtendExpiry(ctx context.Context, accessSecret string) error
}

// TokenMiddleware authenticates requests with opaque session tokens.
type TokenMiddleware struct {
	sessions TokenSessions
}

func NewTokenMiddleware(sessions TokenSessions) *TokenMiddleware {
	return &TokenMiddleware{sessions: sessions}
}

// Authenticate resolves the bearer token (or access_token cookie) to a live
// session, slides its expiry, and stores the caller on the request.
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := accessSecret(c)
		if secret == "" {
			return iam.ErrUnauthorized()
		}

		ctx := c.UserContext()
		t, err := am.sessions.FindByAccessSecret(ctx, secret)
		if err != nil {
			if errx.IsType(err, errx.TypeAuthorization) {
				return iam.ErrInvalidToken()
			}
			return err
		}
		if err := am.sessions.ExtendExpiry(ctx, secret); err != nil {
			if errx.IsType(err, errx.TypeAuthorization) {
				return iam.ErrInvalidToken()
			}
			return err
		}

		authContext := t.AuthContext()
		c.Locals(localsAuth, authContext)
		c.Locals(localsAccessToken, secret)
		c.SetUserContext(kernel.WithAuthContext(ctx, authContext))

		return c.Next()
	}
}

// RequireUserAuth rejects client sessions.
func (am *TokenMiddleware) RequireUserAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := GetAuthContext(c)
		if !ok {
			return iam.ErrUnauthorized()
		}
		if !authContext.IsUser() {
			return iam.ErrUserSessionRequired()
		}
		return c.Next()
	}
}

// RequireSuperUser admits only super-user sessions.
func (am *TokenMiddleware) RequireSuperUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := GetAuthContext(c)
		if !ok {
			return iam.ErrUnauthorized()
		}
		if !authContext.IsUser() {
			return iam.ErrUserSessionRequired()
		}
		if !authContext.IsSuperUser {
			return iam.ErrSuperUserRequired()
		}
		return c.Next()
	}
}

// GetAuthContext returns the caller set by Authenticate.
func GetAuthContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	authContext, ok := c.Locals(localsAuth).(*kernel.AuthContext)
	return authContext, ok && authContext != nil
}

func accessSecret(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return c.Cookies(accessTokenCookie)
}

func presentedSecret(c *fiber.Ctx) string {
	secret, _ := c.Locals(localsAccessToken).(string)
	return secret
}
