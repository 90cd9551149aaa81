package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	WMS       WMSConfig
	Selection SelectionConfig
	Session   SessionConfig
	Report    ReportConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// WMSConfig describes the cadastral feature service.
type WMSConfig struct {
	URL     string
	Layer   string
	Timeout time.Duration
}

// SelectionConfig holds click handling configuration.
type SelectionConfig struct {
	ConfirmPolicy string
}

// SessionConfig holds selection session lifetime configuration.
type SessionConfig struct {
	// TTL is how long a session may stay idle before its selections are dropped.
	TTL time.Duration
}

// ReportConfig holds letter and export configuration.
type ReportConfig struct {
	Schema               string
	BoroughPrefix        string
	EnforcementRecipient string
	// Recipients overrides the built-in borough mailboxes when non-empty.
	Recipients map[string]string
}

// Load reads configuration from environment variables.
// RECIPIENTS_FILE may point at a YAML, JSON or TOML file with a "recipients" map.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("WMS_URL", "https://integracja.gugik.gov.pl/cgi-bin/KrajowaIntegracjaEwidencjiGruntow")
	v.SetDefault("WMS_LAYER", "dzialki")
	v.SetDefault("WMS_TIMEOUT", "10s")
	v.SetDefault("CONFIRM_POLICY", "require")
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("TABLE_SCHEMA", "v2")
	v.SetDefault("BOROUGH_PREFIX", "Dzielnica ")
	v.SetDefault("ENFORCEMENT_RECIPIENT", "kancelaria@pinb.warszawa.pl")
	v.SetDefault("RECIPIENTS_FILE", "")

	// Bind environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		WMS: WMSConfig{
			URL:     v.GetString("WMS_URL"),
			Layer:   v.GetString("WMS_LAYER"),
			Timeout: v.GetDuration("WMS_TIMEOUT"),
		},
		Selection: SelectionConfig{
			ConfirmPolicy: v.GetString("CONFIRM_POLICY"),
		},
		Session: SessionConfig{
			TTL: v.GetDuration("SESSION_TTL"),
		},
		Report: ReportConfig{
			Schema:               v.GetString("TABLE_SCHEMA"),
			BoroughPrefix:        v.GetString("BOROUGH_PREFIX"),
			EnforcementRecipient: v.GetString("ENFORCEMENT_RECIPIENT"),
		},
	}

	if path := v.GetString("RECIPIENTS_FILE"); path != "" {
		recipients, err := loadRecipients(path)
		if err != nil {
			return nil, err
		}
		cfg.Report.Recipients = recipients
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadRecipients reads the "recipients" borough -> mailbox map from a config file.
// Keys come back lower-cased; borough lookup is case-insensitive. The key delimiter
// is moved off "." so names like "M.st. Warszawa" stay one key.
func loadRecipients(path string) (map[string]string, error) {
	f := viper.NewWithOptions(viper.KeyDelimiter("::"))
	f.SetConfigFile(path)
	if err := f.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read recipients file %s: %w", path, err)
	}

	recipients := f.GetStringMapString("recipients")
	if len(recipients) == 0 {
		return nil, fmt.Errorf("recipients file %s has no recipients", path)
	}
	return recipients, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	u, err := url.Parse(c.WMS.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("WMS_URL must be an absolute http(s) URL")
	}
	if c.WMS.Layer == "" {
		return fmt.Errorf("WMS_LAYER is required")
	}
	if c.WMS.Timeout <= 0 {
		return fmt.Errorf("WMS_TIMEOUT must be positive")
	}

	switch c.Selection.ConfirmPolicy {
	case "require", "skip":
	default:
		return fmt.Errorf("CONFIRM_POLICY must be one of: require skip")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	switch c.Report.Schema {
	case "v1", "v2":
	default:
		return fmt.Errorf("TABLE_SCHEMA must be one of: v1 v2")
	}
	if c.Report.EnforcementRecipient == "" {
		return fmt.Errorf("ENFORCEMENT_RECIPIENT is required")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
