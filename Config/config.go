package Config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	ErrUnknownDriver    = errors.New("unknown DB_DRIVER")
	ErrDBNameEmpty      = errors.New("DB_NAME is empty")
	ErrJWTSecretMissing = errors.New("JWT_SECRET must be set in prod")
)

type AppConfig struct {
	Env          string
	Port         string
	JWTSecret    string
	SeedOnStart  bool
	DocumentsDir string
	TemplatesDir string
	LogsDir      string
}

type DatabaseConfig struct {
	Driver   string // sqlite, mysql or postgres
	Path     string // sqlite file
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type SlackConfig struct {
	Token     string
	AppToken  string // socket mode, enables the chat listener
	ChannelID string
}

type FirebaseConfig struct {
	CredentialsFile string
	Topic           string
}

type SMTPConfig struct {
	Server     string
	Port       int
	Username   string
	Password   string
	FromEmail  string
	FromName   string
	TLSEnabled bool
	Recipients []string
}

type Config struct {
	App              AppConfig
	Database         DatabaseConfig
	Slack            SlackConfig
	Firebase         FirebaseConfig
	SMTP             SMTPConfig
	ChatbotRulesFile string
	MonitoringCron   string
	ReminderCron     string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine: containers inject the environment directly.
	_ = godotenv.Load()

	c := &Config{
		App: AppConfig{
			Env:          getEnv("APP_ENV", "dev"),
			Port:         getEnv("APP_PORT", "3001"),
			JWTSecret:    getEnv("JWT_SECRET", "secret"),
			SeedOnStart:  getBool("SEED_ON_START", false),
			DocumentsDir: getEnv("DOCUMENTS_DIR", "./Documents/store"),
			TemplatesDir: getEnv("TEMPLATES_DIR", "./Templates"),
			LogsDir:      getEnv("LOGS_DIR", "logs"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "database.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", ""),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "clinops"),
		},
		Slack: SlackConfig{
			Token:     os.Getenv("SLACK_BOT_TOKEN"),
			AppToken:  os.Getenv("SLACK_APP_TOKEN"),
			ChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
			Topic:           getEnv("FIREBASE_TOPIC", "dm-queries"),
		},
		SMTP: SMTPConfig{
			Server:     os.Getenv("SMTP_SERVER"),
			Port:       getInt("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			FromEmail:  getEnv("SMTP_FROM_EMAIL", "noreply@clinops.local"),
			FromName:   getEnv("SMTP_FROM_NAME", "ClinOps DM Bot"),
			TLSEnabled: getBool("SMTP_TLS", true),
			Recipients: splitList(os.Getenv("SMTP_RECIPIENTS")),
		},
		ChatbotRulesFile: os.Getenv("CHATBOT_RULES_FILE"),
		MonitoringCron:   getEnv("MONITORING_CRON", "0 0 2 * * *"),
		ReminderCron:     getEnv("REMINDER_CRON", "0 0 8 * * *"),
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "mysql", "postgres":
		if c.Database.Name == "" {
			return ErrDBNameEmpty
		}
	default:
		return ErrUnknownDriver
	}
	if c.App.Env == "prod" && c.App.JWTSecret == "secret" {
		return ErrJWTSecretMissing
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
