// cmd/container.go
//
// Composition root. Owns infrastructure (DB, Redis, mail, jobs, metrics) and
// composes the IAM container on top of it.
package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/asyncx"
	"github.com/Abraxas-365/authbuilder/pkg/config"
	"github.com/Abraxas-365/authbuilder/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/authbuilder/pkg/jobx"
	"github.com/Abraxas-365/authbuilder/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
	"github.com/Abraxas-365/authbuilder/pkg/metricsx"
	"github.com/Abraxas-365/authbuilder/pkg/migrate"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
	"github.com/Abraxas-365/authbuilder/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/authbuilder/pkg/notifx/notifxses"
	"github.com/Abraxas-365/authbuilder/pkg/notifx/notifxsmtp"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB         *sqlx.DB
	Redis      *redis.Client
	Metrics    *metricsx.Metrics
	Dispatcher *notifx.Dispatcher
	Jobs       *jobx.Client

	// Bounded-context containers
	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")
	ctx := context.Background()

	// 1. Database
	db, err := asyncx.RetryWithBackoff(ctx, connectAttempts, connectBackoff, func(ctx context.Context) (*sqlx.DB, error) {
		return sqlx.ConnectContext(ctx, "postgres", c.Config.Database.DSN())
	})
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	if c.Config.Database.MigrateOnStart {
		applied, err := migrate.NewManager(db.DB).Up(ctx)
		if err != nil {
			logx.Fatalf("Failed to apply migrations: %v", err)
		}
		logx.WithField("applied", len(applied)).Info("  ✅ Schema up to date")
	}

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := asyncx.RetryWithBackoff(ctx, connectAttempts, connectBackoff, func(ctx context.Context) (string, error) {
		return c.Redis.Ping(ctx).Result()
	}); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metricsx.New(registry)
	logx.Info("  ✅ Metrics registry ready")

	// 4. Mail
	c.initNotifications(ctx)

	// 5. Jobs. The client is always built so work can be queued; workers
	// only run when JOBX_ENABLED is set.
	c.Jobs = jobx.NewClient(
		jobxredis.NewRedisQueue(c.Redis),
		jobx.WithQueues(c.Config.Jobx.Queues...),
		jobx.WithConcurrency(c.Config.Jobx.Concurrency),
		jobx.WithPollInterval(c.Config.Jobx.PollInterval),
		jobx.WithShutdownTimeout(c.Config.Jobx.ShutdownTimeout),
		jobx.WithDequeueTimeout(c.Config.Jobx.DequeueTimeout),
		jobx.WithDefaultRetryDelay(c.Config.Jobx.DefaultRetryDelay),
		jobx.WithObserver(c.Metrics),
	)
	logx.WithField("queues", c.Config.Jobx.Queues).Info("  ✅ Job queue configured")

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initNotifications(ctx context.Context) {
	smtpCfg := c.Config.SMTP
	defaults := notifx.DeliveryProfile{
		Host:       smtpCfg.Host,
		Port:       smtpCfg.Port,
		Secure:     smtpCfg.Secure,
		RequireTLS: smtpCfg.RequireTLS,
		Username:   smtpCfg.Username,
		Password:   smtpCfg.Password,
		FromEmail:  c.Config.Notifx.FromAddress,
		FromName:   c.Config.Notifx.FromName,
		AuthMethod: smtpCfg.AuthMethod,
	}
	smtpProvider := notifxsmtp.NewProvider(defaults, c.Config.Auth.OTP.SendTimeout)

	var (
		provider notifx.EmailSender
		profiles notifx.ProfileSender = smtpProvider
	)
	switch c.Config.Notifx.Provider {
	case "ses":
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(c.Config.Notifx.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		provider = notifxses.NewSESProvider(ses.NewFromConfig(awsCfg), c.Config.Notifx.FromAddress)
		logx.Infof("  ✅ SES mail provider configured (region: %s)", c.Config.Notifx.AWSRegion)

	case "console":
		console := notifxconsole.NewConsoleProvider()
		provider, profiles = console, console
		logx.Warn("  ⚠️  Console mail provider: messages are logged, not sent")

	case "smtp":
		provider = smtpProvider
		logx.Infof("  ✅ SMTP mail provider configured (host: %s)", smtpCfg.Host)

	default:
		logx.Fatalf("Unknown NOTIFX_PROVIDER: %s (use 'smtp', 'ses' or 'console')", c.Config.Notifx.Provider)
	}

	c.Dispatcher = notifx.NewDispatcher(notifx.NewClient(provider, profiles), c.Config.Auth.OTP.SendTimeout)
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	c.IAM = iamcontainer.New(iamcontainer.Deps{
		DB:         c.DB,
		Redis:      c.Redis,
		Cfg:        c.Config,
		Metrics:    c.Metrics,
		Dispatcher: c.Dispatcher,
		Jobs:       c.Jobs,
	})

	if err := c.IAM.SeedAdmin(context.Background(), c.Config.Auth.AdminPassword); err != nil {
		logx.WithError(err).Error("Failed to seed admin user")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	c.IAM.StartBackgroundServices(ctx)

	if !c.Config.Jobx.Enabled {
		logx.Warn("  ⚠️  Job workers disabled, queued mail will wait")
		return
	}
	go func() {
		if err := c.Jobs.Start(ctx); err != nil {
			logx.WithError(err).Error("Job workers stopped")
		}
	}()
	logx.Info("  ✅ Job workers started")
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup completed")
}
