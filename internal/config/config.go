package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string  `mapstructure:"PORT"`
	Env            string  `mapstructure:"ENV"`
	APIBaseURL     string  `mapstructure:"API_BASE_URL"`
	Sandbox        bool    `mapstructure:"SANDBOX"`
	SessionSecret  string  `mapstructure:"SESSION_SECRET"`
	SessionCookie  string  `mapstructure:"SESSION_COOKIE"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	TLSEnabled     bool    `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string  `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string  `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("SESSION_COOKIE", "careview_session")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("API_BASE_URL")
	v.BindEnv("SANDBOX")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("SESSION_COOKIE")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("TLS_ENABLED")
	v.BindEnv("TLS_CERT_FILE")
	v.BindEnv("TLS_KEY_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.IsDev() && cfg.APIBaseURL == "" {
		// No upstream configured in development: fall back to the built-in
		// sandbox so the portal is runnable out of the box.
		cfg.Sandbox = true
	}

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("SESSION_SECRET is required in production")
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = hex.EncodeToString(key)
		log.Println("WARNING: SESSION_SECRET not set; generated an ephemeral key.")
		log.Println("WARNING: Sessions will not survive a server restart.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside sandbox mode
// an upstream API base URL must be configured, and it must parse as an
// absolute URL so the proxy and the outbound client can use it.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		if !c.Sandbox {
			return fmt.Errorf(
				"API_BASE_URL must be set when SANDBOX is false (current ENV=%q). "+
					"Refusing to start without an upstream API. "+
					"Use SANDBOX=true to run against the built-in sandbox API", c.Env)
		}
	} else {
		u, err := url.Parse(c.APIBaseURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
		}
	}

	if c.IsProduction() && c.Sandbox {
		return fmt.Errorf("SANDBOX must not be enabled in production")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
