package config

import "time"

// AuthConfig groups the session, one-time code and password settings.
type AuthConfig struct {
	Token     TokenConfig
	OTP       OTPConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig

	// AdminEmail identifies the protected super-user account.
	AdminEmail string
	// AdminPassword seeds the protected account at startup when it is missing.
	AdminPassword string
}

type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SweepInterval time.Duration
}

type OTPConfig struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	SendTimeout    time.Duration
	// DebugLog writes issued plaintext codes at debug level. Never enable in production.
	DebugLog bool
}

type PasswordConfig struct {
	BcryptCost      int
	GeneratedLength int
	MinLength       int
}

type RateLimitConfig struct {
	Enabled   bool
	PerSecond float64
	Burst     int
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Token: TokenConfig{
			AccessTTL:     getEnvDuration("TOKEN_ACCESS_TTL", 60*time.Minute),
			RefreshTTL:    getEnvDuration("TOKEN_REFRESH_TTL", 7*24*time.Hour),
			SweepInterval: getEnvDuration("TOKEN_SWEEP_INTERVAL", 30*time.Minute),
		},
		OTP: OTPConfig{
			TTL:            getEnvDuration("OTP_TTL", 10*time.Minute),
			ResendCooldown: getEnvDuration("OTP_RESEND_COOLDOWN", time.Minute),
			SendTimeout:    getEnvDuration("SMTP_SEND_TIMEOUT", 10*time.Second),
			DebugLog:       getEnvBool("OTP_DEBUG_LOG", false),
		},
		Password: PasswordConfig{
			BcryptCost:      getEnvInt("BCRYPT_COST", 10),
			GeneratedLength: getEnvInt("GENERATED_PASSWORD_LENGTH", 12),
			MinLength:       getEnvInt("PASSWORD_MIN_LENGTH", 6),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getEnvBool("AUTH_RATE_LIMIT_ENABLED", true),
			PerSecond: float64(getEnvInt("AUTH_RATE_LIMIT_PER_SECOND", 5)),
			Burst:     getEnvInt("AUTH_RATE_LIMIT_BURST", 20),
		},
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@admin.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}
