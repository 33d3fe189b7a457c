package iamcontainer

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/config"
	"github.com/Abraxas-365/authbuilder/pkg/iam/access"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client/clientapi"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client/clientinfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client/clientsrv"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp/otpinfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm/realmapi"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm/realminfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm/realmsrv"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role/roleapi"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role/roleinfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role/rolesrv"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token/tokeninfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/token/tokensrv"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user/userapi"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/authbuilder/pkg/jobx"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/Abraxas-365/authbuilder/pkg/metricsx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: everything the IAM module needs from the process.
// ---------------------------------------------------------------------------

type Deps struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Cfg     *config.Config
	Metrics *metricsx.Metrics

	// Dispatcher delivers OTP and welcome mail.
	Dispatcher *notifx.Dispatcher
	// Jobs queues welcome mail and runs its handler.
	Jobs *jobx.Client
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// ---------------------------------------------------------------------------

type Container struct {
	RealmService  *realmsrv.RealmService
	ClientService *clientsrv.ClientService
	UserService   *usersrv.UserService
	RoleService   *rolesrv.RoleService
	TokenService  *tokensrv.TokenService
	OTPService    *otpsrv.OTPService
	AccessEngine  *access.Engine
	AuthService   *auth.AuthService

	AuthHandlers   *auth.AuthHandlers
	RealmHandlers  *realmapi.RealmHandlers
	ClientHandlers *clientapi.ClientHandlers
	UserHandlers   *userapi.UserHandlers
	RoleHandlers   *roleapi.RoleHandlers

	AuthMiddleware *auth.TokenMiddleware

	CleanupService *tokeninfra.CleanupService
}

// New builds the IAM graph: repositories, services, handlers, middleware.
func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{}
	cfg := &deps.Cfg.Auth

	// ── Repositories ─────────────────────────────────────────────────────

	realmRepo := realminfra.NewPostgresRealmRepository(deps.DB)
	clientRepo := clientinfra.NewPostgresClientRepository(deps.DB)
	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	roleRepo := roleinfra.NewPostgresRoleRepository(deps.DB)
	tokenRepo := tokeninfra.NewPostgresTokenRepository(deps.DB)
	otpRepo := otpinfra.NewPostgresOTPRepository(deps.DB)

	// ── Infrastructure services ──────────────────────────────────────────

	passwordSvc := authinfra.NewBcryptPasswordService(cfg.Password.BcryptCost)

	var throttle otp.IssueThrottle
	if deps.Redis != nil {
		throttle = otpinfra.NewRedisIssueThrottle(deps.Redis, cfg.OTP.ResendCooldown)
	} else {
		logx.Warn("  ⚠️  No Redis client, OTP resend throttling disabled")
	}

	audit := auth.MultiAudit{authinfra.NewLogxAuditService()}
	if deps.Metrics != nil {
		audit = append(audit, authinfra.NewPrometheusAuditService(deps.Metrics))
	}

	// ── Domain services ──────────────────────────────────────────────────

	c.TokenService = tokensrv.NewTokenService(tokenRepo, &cfg.Token)
	c.OTPService = otpsrv.NewOTPService(otpRepo, passwordSvc, &cfg.OTP)
	c.AccessEngine = access.NewEngine(userRepo, clientRepo, roleRepo)

	c.RealmService = realmsrv.NewRealmService(realmRepo)
	c.ClientService = clientsrv.NewClientService(clientRepo, realmRepo, deps.Dispatcher.Client())
	c.UserService = usersrv.NewUserService(
		userRepo,
		realmRepo,
		clientRepo,
		roleRepo,
		passwordSvc,
		userinfra.NewJobWelcomeNotifier(deps.Jobs),
		c.TokenService,
		cfg,
	)
	c.RoleService = rolesrv.NewRoleService(roleRepo, realmRepo, userRepo)

	c.AuthService = auth.NewAuthService(
		userRepo,
		clientRepo,
		passwordSvc,
		c.TokenService,
		c.OTPService,
		authinfra.NewOTPMailer(deps.Dispatcher, cfg.OTP.TTL),
		throttle,
		c.AccessEngine,
		audit,
		cfg,
	)

	userinfra.NewWelcomeEmailHandler(deps.Dispatcher, clientRepo).Register(deps.Jobs)

	// ── Handlers ─────────────────────────────────────────────────────────

	var limiter *auth.IPRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = auth.NewIPRateLimiter(&cfg.RateLimit)
		logx.WithFields(logx.Fields{
			"per_second": cfg.RateLimit.PerSecond,
			"burst":      cfg.RateLimit.Burst,
		}).Info("  ✅ Auth rate limiting enabled")
	}

	c.AuthHandlers = auth.NewAuthHandlers(c.AuthService, limiter)
	c.RealmHandlers = realmapi.NewRealmHandlers(c.RealmService)
	c.ClientHandlers = clientapi.NewClientHandlers(c.ClientService)
	c.UserHandlers = userapi.NewUserHandlers(c.UserService)
	c.RoleHandlers = roleapi.NewRoleHandlers(c.RoleService)

	// ── Middleware ────────────────────────────────────────────────────────

	c.AuthMiddleware = auth.NewTokenMiddleware(c.TokenService)

	// ── Background services ──────────────────────────────────────────────

	c.CleanupService = tokeninfra.NewCleanupService(c.TokenService, cfg.Token.SweepInterval)

	logx.Info("✅ IAM container initialized")
	return c
}

// RegisterRoutes mounts every IAM route group under router.
func (c *Container) RegisterRoutes(router fiber.Router) {
	c.AuthHandlers.RegisterRoutes(router, c.AuthMiddleware)
	c.RealmHandlers.RegisterRoutes(router, c.AuthMiddleware)
	c.ClientHandlers.RegisterRoutes(router, c.AuthMiddleware)
	c.UserHandlers.RegisterRoutes(router, c.AuthMiddleware)
	c.RoleHandlers.RegisterRoutes(router, c.AuthMiddleware)
}

// SeedAdmin creates the protected super user when it does not exist yet.
func (c *Container) SeedAdmin(ctx context.Context, password string) error {
	return c.UserService.SeedAdmin(ctx, password)
}

// StartBackgroundServices starts the expired-session sweep.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go c.CleanupService.Start(ctx)
	logx.Info("  ✅ IAM cleanup service started")
}
