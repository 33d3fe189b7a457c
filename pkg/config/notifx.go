package config

// NotifxConfig selects the provider used for system-default email.
type NotifxConfig struct {
	// Provider is one of smtp, ses or console.
	Provider    string
	FromAddress string
	FromName    string
	AWSRegion   string
}

func loadNotifxConfig() NotifxConfig {
	return NotifxConfig{
		Provider:    getEnv("NOTIFX_PROVIDER", "smtp"),
		FromAddress: getEnv("NOTIFX_FROM_ADDRESS", getEnv("DEFAULT_SMTP_FROM", getEnv("DEFAULT_SMTP_USER", "noreply@authbuilder.local"))),
		FromName:    getEnv("NOTIFX_FROM_NAME", "Auth Builder"),
		AWSRegion:   getEnv("NOTIFX_AWS_REGION", getEnv("AWS_REGION", "us-east-1")),
	}
}

// SMTPConfig is the system-default delivery profile.
type SMTPConfig struct {
	Host       string
	Port       int
	Secure     bool
	RequireTLS bool
	Username   string
	Password   string
	From       string
	AuthMethod string
}

func loadSMTPConfig() SMTPConfig {
	user := getEnv("DEFAULT_SMTP_USER", "")
	return SMTPConfig{
		Host:       getEnv("DEFAULT_SMTP_HOST", "smtp.gmail.com"),
		Port:       getEnvInt("DEFAULT_SMTP_PORT", 587),
		Secure:     getEnvBool("DEFAULT_SMTP_SECURE", false),
		RequireTLS: getEnvBool("DEFAULT_SMTP_REQUIRE_TLS", false),
		Username:   user,
		Password:   getEnv("DEFAULT_SMTP_PASS", ""),
		From:       getEnv("DEFAULT_SMTP_FROM", user),
		AuthMethod: getEnv("DEFAULT_SMTP_AUTH_METHOD", ""),
	}
}
