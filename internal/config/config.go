package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the relay service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Queue    QueueConfig    `yaml:"queue"`
	Mail     MailConfig     `yaml:"mail"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// QueueConfig holds dispatch queue settings
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// MailConfig holds outbound mail transport configuration
type MailConfig struct {
	// Transport selects the delivery backend: "smtp", "ses" or "stdout".
	Transport          string     `yaml:"transport"`
	From               string     `yaml:"from"`
	SendTimeoutSeconds int        `yaml:"send_timeout_seconds"`
	SMTP               SMTPConfig `yaml:"smtp"`
	SES                SESConfig  `yaml:"ses"`
}

// SendTimeout returns the per-send timeout as a duration
func (c MailConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// SMTPConfig holds SMTP relay credentials
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 1024
	}
	if cfg.Mail.Transport == "" {
		cfg.Mail.Transport = "smtp"
	}
	if cfg.Mail.SendTimeoutSeconds == 0 {
		cfg.Mail.SendTimeoutSeconds = 30
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.SES.Region == "" {
		cfg.Mail.SES.Region = "us-east-1"
	}
	// The relay sends from its own identity; fall back to the SMTP login
	// when no explicit from address is configured.
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.SMTP.Username
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if host := os.Getenv("SMTP_HOSTNAME"); host != "" {
		cfg.Mail.SMTP.Host = host
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		cfg.Mail.SMTP.Username = user
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		cfg.Mail.SMTP.Password = pass
	}
	if from := os.Getenv("MAIL_FROM"); from != "" {
		cfg.Mail.From = from
	}
	if transport := os.Getenv("MAIL_TRANSPORT"); transport != "" {
		cfg.Mail.Transport = transport
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Mail.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Mail.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Mail.SES.Region = region
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.SMTP.Username
	}

	return cfg, nil
}
