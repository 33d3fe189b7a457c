package auth

import (
	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam"
	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/validatex"
	"github.com/gofiber/fiber/v2"
)

type AuthHandlers struct {
	service *AuthService
	limiter *IPRateLimiter
}

// NewAuthHandlers builds the /auth handlers. limiter may be nil to disable
// rate limiting on the public routes.
func NewAuthHandlers(service *AuthService, limiter *IPRateLimiter) *AuthHandlers {
	return &AuthHandlers{service: service, limiter: limiter}
}

func (h *AuthHandlers) RegisterRoutes(router fiber.Router, authMiddleware *TokenMiddleware) {
	group := router.Group("/auth", withClientIP)

	public := []fiber.Handler{}
	if h.limiter != nil {
		public = append(public, h.limiter.Handler())
	}
	route := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, public...), handler)
	}

	group.Post("/login", route(h.Login)...)
	group.Post("/client-login", route(h.ClientLogin)...)
	group.Post("/refresh", route(h.Refresh)...)
	group.Post("/validate-otp", route(h.ValidateOTP)...)
	group.Post("/forgot-password", route(h.ForgotPassword)...)
	group.Post("/resend-otp", route(h.ResendOTP)...)
	group.Post("/reset-password", route(h.ResetPassword)...)

	group.Post("/logout", authMiddleware.Authenticate(), h.Logout)
	group.Get("/profile", authMiddleware.Authenticate(), h.Profile)
	group.Get("/validate", authMiddleware.Authenticate(), h.Validate)
	group.Post("/validate-request", authMiddleware.Authenticate(), h.ValidateRequest)
	group.Put("/change-password", authMiddleware.Authenticate(), authMiddleware.RequireUserAuth(), h.ChangePassword)
	group.Get("/tokens", authMiddleware.Authenticate(), authMiddleware.RequireSuperUser(), h.Tokens)
}

func withClientIP(c *fiber.Ctx) error {
	c.SetUserContext(kernel.WithClientIP(c.UserContext(), c.IP()))
	return c.Next()
}

func parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	return validatex.Struct(req)
}

func tokenPair(message string, issued *token.IssuedTokens) fiber.Map {
	return fiber.Map{
		"message":       message,
		"access_token":  issued.AccessToken,
		"refresh_token": issued.RefreshToken,
		"expires_at":    issued.ExpiresAt,
	}
}

// ============================================================================
// Public
// ============================================================================

func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	result, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if result.RequiresOTP {
		message := "OTP sent for 2FA"
		if !result.EmailSent {
			message = "OTP generated; email sending failed"
		}
		return c.JSON(fiber.Map{
			"message":      message,
			"requires_otp": true,
			"email_sent":   result.EmailSent,
		})
	}

	resp := tokenPair("Login successful", result.Tokens)
	resp["user"] = result.User
	return c.JSON(resp)
}

func (h *AuthHandlers) ClientLogin(c *fiber.Ctx) error {
	var req ClientLoginRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	result, err := h.service.ClientLogin(c.UserContext(), req.ClientID)
	if err != nil {
		return err
	}

	resp := tokenPair("Client login successful", result.Tokens)
	resp["client"] = result.Client
	resp["is_client_session"] = true
	return c.JSON(resp)
}

func (h *AuthHandlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	issued, err := h.service.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":      "Token refreshed successfully",
		"access_token": issued.AccessToken,
		"expires_at":   issued.ExpiresAt,
	})
}

func (h *AuthHandlers) ValidateOTP(c *fiber.Ctx) error {
	var req ValidateOTPRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	result, err := h.service.ValidateOTP(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}

	resp := tokenPair("2FA verified", result.Tokens)
	resp["user"] = result.User
	return c.JSON(resp)
}

func (h *AuthHandlers) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	sent, err := h.service.ForgotPassword(c.UserContext(), req.Email)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":    "If the email exists, an OTP has been sent",
		"email_sent": sent,
	})
}

func (h *AuthHandlers) ResendOTP(c *fiber.Ctx) error {
	var req ResendOTPRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	sent, err := h.service.ResendOTP(c.UserContext(), req.Email, otp.Purpose(req.Purpose))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":    "OTP sent",
		"email_sent": sent,
	})
}

func (h *AuthHandlers) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	if err := h.service.ResetPassword(c.UserContext(), req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password reset successful. Please login."})
}

// ============================================================================
// Authenticated
// ============================================================================

func caller(c *fiber.Ctx) (*kernel.AuthContext, error) {
	authContext, ok := GetAuthContext(c)
	if !ok {
		return nil, iam.ErrUnauthorized()
	}
	return authContext, nil
}

func (h *AuthHandlers) Logout(c *fiber.Ctx) error {
	authContext, err := caller(c)
	if err != nil {
		return err
	}

	if err := h.service.Logout(c.UserContext(), authContext, presentedSecret(c)); err != nil {
		return err
	}

	c.ClearCookie(accessTokenCookie)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandlers) Profile(c *fiber.Ctx) error {
	authContext, err := caller(c)
	if err != nil {
		return err
	}

	profile, err := h.service.Profile(c.UserContext(), authContext)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func (h *AuthHandlers) Validate(c *fiber.Ctx) error {
	authContext, err := caller(c)
	if err != nil {
		return err
	}

	profile, err := h.service.Profile(c.UserContext(), authContext)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"valid":             true,
		"user":              profile.User,
		"client":            profile.Client,
		"is_client_session": profile.IsClientSession,
	})
}

// ValidateRequest answers 200 when allowed and 403 with the reason otherwise.
func (h *AuthHandlers) ValidateRequest(c *fiber.Ctx) error {
	authContext, err := caller(c)
	if err != nil {
		return err
	}

	var req access.Request
	if err := parse(c, &req); err != nil {
		return err
	}

	decision, err := h.service.ValidateRequest(c.UserContext(), authContext, req)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if !decision.Allowed {
		status = fiber.StatusForbidden
	}
	return c.Status(status).JSON(decision)
}

func (h *AuthHandlers) ChangePassword(c *fiber.Ctx) error {
	authContext, err := caller(c)
	if err != nil {
		return err
	}

	var req ChangePasswordRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	if err := h.service.ChangePassword(c.UserContext(), *authContext.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully. Please login again."})
}

func (h *AuthHandlers) Tokens(c *fiber.Ctx) error {
	authContext, err := caller(c)
	if err != nil {
		return err
	}

	tokens, err := h.service.Tokens(c.UserContext(), authContext)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tokens": tokens})
}
