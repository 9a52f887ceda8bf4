package config

import (
	"os"
	"strconv"

	"github.com/emberleaf/backoffice/internal/mail"
	"github.com/emberleaf/backoffice/internal/square"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Env            string
	Port           string
	AdminToken     string
	AgeGateExitURL string
	Square         square.Config
	SMTP           mail.SMTPConfig
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func Load() Config {
	return Config{
		Env:            getEnvString("APP_ENV", EnvDevelopment),
		Port:           getEnvString("PORT", "8080"),
		AdminToken:     getEnvString("ADMIN_API_TOKEN", ""),
		AgeGateExitURL: getEnvString("AGE_GATE_EXIT_URL", "https://www.google.com"),
		Square: square.Config{
			AccessToken: getEnvString("SQUARE_ACCESS_TOKEN", ""),
			LocationID:  getEnvString("SQUARE_LOCATION_ID", ""),
			BaseURL:     getEnvString("SQUARE_BASE_URL", ""),
		},
		SMTP: mail.SMTPConfig{
			Host:     getEnvString("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnvString("SMTP_USERNAME", ""),
			Password: getEnvString("SMTP_PASSWORD", ""),
			From:     getEnvString("SMTP_FROM", ""),
			NotifyTo: getEnvString("CONTACT_NOTIFY_TO", ""),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
