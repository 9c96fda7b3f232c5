package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("ENV")
	os.Unsetenv("SANDBOX")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.SessionCookie != "careview_session" {
		t.Errorf("expected default session cookie careview_session, got %s", cfg.SessionCookie)
	}
	if !cfg.Sandbox {
		t.Error("expected sandbox fallback when no API_BASE_URL in development")
	}
	if cfg.SessionSecret == "" {
		t.Error("expected an ephemeral session secret to be generated")
	}
}

func TestLoad_WithAPIBaseURL(t *testing.T) {
	os.Setenv("API_BASE_URL", "https://api.example.com")
	defer os.Unsetenv("API_BASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("expected API_BASE_URL to be set, got %s", cfg.APIBaseURL)
	}
	if cfg.Sandbox {
		t.Error("expected sandbox to stay off when an upstream is configured")
	}
}

func TestLoad_ProductionRequiresSessionSecret(t *testing.T) {
	os.Setenv("ENV", "production")
	os.Setenv("API_BASE_URL", "https://api.example.com")
	os.Unsetenv("SESSION_SECRET")
	defer func() {
		os.Unsetenv("ENV")
		os.Unsetenv("API_BASE_URL")
	}()

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when SESSION_SECRET is missing in production")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestValidate_RequiresUpstreamOrSandbox(t *testing.T) {
	c := &Config{Env: "production"}
	if err := c.Validate(); err == nil {
		t.Error("expected error without API_BASE_URL or sandbox")
	}

	c.Sandbox = true
	if err := c.Validate(); err == nil {
		t.Error("expected error for sandbox in production")
	}

	c = &Config{Env: "development", Sandbox: true}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_APIBaseURLMustBeAbsolute(t *testing.T) {
	c := &Config{Env: "production", APIBaseURL: "not a url"}
	if err := c.Validate(); err == nil {
		t.Error("expected error for relative API_BASE_URL")
	}

	c.APIBaseURL = "https://api.example.com"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_TLSFiles(t *testing.T) {
	c := &Config{Env: "development", Sandbox: true, TLSEnabled: true}
	if err := c.Validate(); err == nil {
		t.Error("expected error when TLS enabled without cert file")
	}

	c.TLSCertFile = "server.crt"
	if err := c.Validate(); err == nil {
		t.Error("expected error when TLS enabled without key file")
	}

	c.TLSKeyFile = "server.key"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
