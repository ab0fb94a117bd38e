package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LogLevel string         `toml:"log_level"`
	Auth     AuthConfig     `toml:"auth"`
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Service  ServiceConfig  `toml:"service"`
}

// AuthConfig contains the identity provider settings used by the client session.
type AuthConfig struct {
	Domain          string   `toml:"domain"`
	ClientID        string   `toml:"client_id"`
	Audience        string   `toml:"audience"`
	Scopes          []string `toml:"scopes"`
	ReturnTo        string   `toml:"return_to"`
	CredentialStore string   `toml:"credential_store"`
}

// APIConfig points the client at the deck service.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout, defaulting to 30 seconds.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the loopback callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedirectURI is the OAuth2 redirect handled by the loopback server.
func (s ServerConfig) RedirectURI() string {
	return fmt.Sprintf("http://%s/callback", s.Addr())
}

// ServiceConfig contains the deck service settings.
type ServiceConfig struct {
	Addr                 string   `toml:"addr"`
	Environment          string   `toml:"environment"`
	Issuer               string   `toml:"issuer"`
	Audience             string   `toml:"audience"`
	JWKSPath             string   `toml:"jwks_path"`
	JWKSURL              string   `toml:"jwks_url"`
	RequireEmailVerified bool     `toml:"require_email_verified"`
	CORSAllowedOrigins   []string `toml:"cors_allowed_origins"`
	RateLimit            float64  `toml:"rate_limit"`
	RateBurst            int      `toml:"rate_burst"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overrides config values with environment variables when they are set.
func (c *Config) ApplyEnv() {
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Database.Path, "DATABASE_PATH")

	setString(&c.API.BaseURL, "DODECK_API_BASE_URL")
	setString(&c.Auth.Domain, "DODECK_AUTH_DOMAIN")
	setString(&c.Auth.ClientID, "DODECK_AUTH_CLIENT_ID")
	setString(&c.Auth.Audience, "DODECK_AUTH_AUDIENCE")
	setString(&c.Auth.CredentialStore, "DODECK_CREDENTIAL_STORE")

	setString(&c.Service.Issuer, "AUTH0_ISSUER")
	setString(&c.Service.Audience, "AUTH0_AUDIENCE")
	setString(&c.Service.JWKSPath, "AUTH0_JWKS_PATH")
	setString(&c.Service.JWKSURL, "AUTH0_JWKS_URL")
	setString(&c.Service.Environment, "ENVIRONMENT")

	if v, ok := os.LookupEnv("REQUIRE_EMAIL_VERIFIED"); ok {
		c.Service.RequireEmailVerified = parseBool(v, c.Service.RequireEmailVerified)
	}
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		c.Service.CORSAllowedOrigins = splitCSV(v)
	}
}

// ValidateClient reports whether the settings needed to sign in and fetch decks are present.
func (c *Config) ValidateClient() error {
	var missing []string
	if c.Auth.Domain == "" {
		missing = append(missing, "auth.domain")
	}
	if c.Auth.ClientID == "" {
		missing = append(missing, "auth.client_id")
	}
	if c.API.BaseURL == "" {
		missing = append(missing, "api.base_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
