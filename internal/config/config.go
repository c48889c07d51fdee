// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the photoreport utilities.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport defaults. The mail tool submits through Gmail unless told otherwise.
const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
)

// Archive folder names created beneath each dated root.
const (
	DefaultHelpDir  = "Hilfe"
	DefaultDailyDir = "Tagesbilder"
)

// Fixed message texts for the two mail variants.
const (
	DefaultImageSubject = "Hilfe potentiell benötigt!"
	DefaultImageBody    = "Bilder der aktuellen Situation finden sich im Anhang!"
	DefaultPDFSubject   = "Chronologischer Foto Report."
	DefaultPDFBody      = "Im Anhang befindet sich der Report."
)

const (
	defaultProvider        = "smtp"
	defaultMboxPath        = "outbox.mbox"
	defaultReceiverCharset = "utf-8"
	defaultLogLevel        = "info"
)

// Config holds the complete application configuration.
type Config struct {
	Provider  string          `yaml:"provider"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	SES       SESConfig       `yaml:"ses"`
	Graph     GraphConfig     `yaml:"graph"`
	Mbox      MboxConfig      `yaml:"mbox"`
	Receivers ReceiversConfig `yaml:"receivers"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Templates TemplatesConfig `yaml:"templates"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SMTPConfig holds the mail submission endpoint and credentials.
type SMTPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	CAFile             string `yaml:"ca_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// SESConfig holds AWS SES v2 configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// MboxConfig holds the target file of the mbox transport.
type MboxConfig struct {
	Path string `yaml:"path"`
}

// ReceiversConfig describes how receiver files are decoded.
type ReceiversConfig struct {
	Charset string `yaml:"charset"`
}

// ArchiveConfig holds the names of the folders created under a dated archive root.
type ArchiveConfig struct {
	HelpDir  string `yaml:"help_dir"`
	DailyDir string `yaml:"daily_dir"`
}

// TemplateConfig is a subject and plain-text body pair.
type TemplateConfig struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// TemplatesConfig holds the message texts of both mail variants.
type TemplatesConfig struct {
	Image TemplateConfig `yaml:"image"`
	PDF   TemplateConfig `yaml:"pdf"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Validate reports whether the selected provider has everything it needs.
func (c *Config) Validate() error {
	switch c.Provider {
	case "smtp":
		if c.SMTP.Host == "" {
			return fmt.Errorf("smtp provider requires smtp.host")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("smtp.port out of range: %d", c.SMTP.Port)
		}
	case "ses":
		if !c.SESConfigured() {
			return fmt.Errorf("ses provider requires ses.region")
		}
	case "graph":
		if !c.GraphConfigured() {
			return fmt.Errorf("graph provider requires tenant_id, client_id and client_secret")
		}
	case "mbox":
		if c.Mbox.Path == "" {
			return fmt.Errorf("mbox provider requires mbox.path")
		}
	case "stdout":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

// SESConfigured returns true if an SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// GraphConfigured returns true if all three Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != ""
}

// SMTPUsername returns the login name for the submission server. Gmail
// logs in with the sender address, so that is the fallback.
func (c *Config) SMTPUsername(sender string) string {
	if c.SMTP.Username != "" {
		return c.SMTP.Username
	}
	return sender
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Provider = defaultProvider
	c.SMTP.Host = DefaultSMTPHost
	c.SMTP.Port = DefaultSMTPPort
	c.Mbox.Path = defaultMboxPath
	c.Receivers.Charset = defaultReceiverCharset
	c.Archive.HelpDir = DefaultHelpDir
	c.Archive.DailyDir = DefaultDailyDir
	c.Templates.Image = TemplateConfig{Subject: DefaultImageSubject, Body: DefaultImageBody}
	c.Templates.PDF = TemplateConfig{Subject: DefaultPDFSubject, Body: DefaultPDFBody}
	c.Logging.Level = defaultLogLevel
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("MAIL_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_CA_FILE"); v != "" {
		c.SMTP.CAFile = v
	}
	if v := os.Getenv("SMTP_INSECURE_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SMTP.InsecureSkipVerify = b
		}
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}

	if v := os.Getenv("MBOX_PATH"); v != "" {
		c.Mbox.Path = v
	}
	if v := os.Getenv("RECEIVERS_CHARSET"); v != "" {
		c.Receivers.Charset = v
	}
	if v := os.Getenv("ARCHIVE_HELP_DIR"); v != "" {
		c.Archive.HelpDir = v
	}
	if v := os.Getenv("ARCHIVE_DAILY_DIR"); v != "" {
		c.Archive.DailyDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
