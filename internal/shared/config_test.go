package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./dodeck.db" {
			t.Errorf("expected database path ./dodeck.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.API.BaseURL != "http://127.0.0.1:8000" {
			t.Errorf("expected api base URL http://127.0.0.1:8000, got %s", config.API.BaseURL)
		}

		if config.Auth.CredentialStore != "database" {
			t.Errorf("expected credential store database, got %s", config.Auth.CredentialStore)
		}

		if len(config.Auth.Scopes) != 4 {
			t.Errorf("expected 4 default scopes, got %v", config.Auth.Scopes)
		}

		if !config.Service.RequireEmailVerified {
			t.Error("expected email verification to be required by default")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `log_level = "debug"

[auth]
domain = "tenant.example.com"
client_id = "abc123"
audience = "https://api.example.com"

[api]
base_url = "http://localhost:9000"
timeout_seconds = 5

[server]
host = "localhost"
port = 4000
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Auth.Domain != "tenant.example.com" {
			t.Errorf("expected domain tenant.example.com, got %s", config.Auth.Domain)
		}
		if config.API.Timeout() != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.API.Timeout())
		}
		if config.Server.RedirectURI() != "http://localhost:4000/callback" {
			t.Errorf("unexpected redirect URI %s", config.Server.RedirectURI())
		}
		if config.Database.Path != "./dodeck.db" {
			t.Errorf("expected missing keys to keep defaults, got %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[auth\ndomain ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("DODECK_API_BASE_URL", "https://api.dodeck.test")
		t.Setenv("DODECK_AUTH_DOMAIN", "env.auth0.com")
		t.Setenv("DODECK_AUTH_CLIENT_ID", "env-client")
		t.Setenv("DODECK_AUTH_AUDIENCE", "env-audience")
		t.Setenv("REQUIRE_EMAIL_VERIFIED", "no")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.API.BaseURL != "https://api.dodeck.test" {
			t.Errorf("expected env base URL, got %s", config.API.BaseURL)
		}
		if config.Auth.Domain != "env.auth0.com" || config.Auth.ClientID != "env-client" || config.Auth.Audience != "env-audience" {
			t.Errorf("expected auth values from env, got %+v", config.Auth)
		}
		if config.Service.RequireEmailVerified {
			t.Error("expected REQUIRE_EMAIL_VERIFIED=no to disable verification")
		}
		if len(config.Service.CORSAllowedOrigins) != 2 {
			t.Errorf("expected 2 origins, got %v", config.Service.CORSAllowedOrigins)
		}
	})

	t.Run("LoadEnvFiles", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("DODECK_TEST_ENV_FILE=loaded\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("DODECK_TEST_ENV_FILE") })

		LoadEnvFiles(filepath.Join(t.TempDir(), "missing.env"), envPath)

		if got := os.Getenv("DODECK_TEST_ENV_FILE"); got != "loaded" {
			t.Errorf("expected env var from file, got %q", got)
		}
	})

	t.Run("ValidateClient", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.ValidateClient(); err != nil {
			t.Errorf("expected default config to validate, got %v", err)
		}

		config.Auth.ClientID = ""
		config.API.BaseURL = ""
		err := config.ValidateClient()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
