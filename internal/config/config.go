package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret string
	CBRURL    string

	// SimStartDate seeds the simulated clock when the store holds no
	// committed dates yet.
	SimStartDate time.Time

	// AdvanceCron, when set, advances the simulated clock by one day on the
	// given cron schedule. Empty disables the job.
	AdvanceCron string

	// VarianceSeed drives the deterministic bill-amount variance generator.
	// Zero disables variance entirely.
	VarianceSeed int64
	Variance     float64

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBConn:      getEnv("DB_CONN", ""),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		CBRURL:      getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		AdvanceCron: getEnv("ADVANCE_CRON", ""),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "bank.events"),
		SMTPHost:    getEnv("SMTP_HOST", ""),
		SMTPPort:    getEnv("SMTP_PORT", "587"),
		SMTPUser:    getEnv("SMTP_USER", ""),
		SMTPPass:    getEnv("SMTP_PASS", ""),
		SMTPFrom:    getEnv("SMTP_FROM", "no-reply@bank.local"),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	start := getEnv("SIM_START_DATE", "2024-01-01")
	t, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("invalid SIM_START_DATE %q: %w", start, err)
	}
	cfg.SimStartDate = t

	if seed := getEnv("VARIANCE_SEED", ""); seed != "" {
		if _, err := fmt.Sscanf(seed, "%d", &cfg.VarianceSeed); err != nil {
			return nil, fmt.Errorf("invalid VARIANCE_SEED %q: %w", seed, err)
		}
		if _, err := fmt.Sscanf(getEnv("VARIANCE", "0.1"), "%g", &cfg.Variance); err != nil {
			return nil, fmt.Errorf("invalid VARIANCE: %w", err)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
