package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careview/careview/internal/config"
	"github.com/careview/careview/internal/platform/middleware"
	"github.com/careview/careview/internal/proxy"
	"github.com/careview/careview/internal/sandbox"
	"github.com/careview/careview/internal/session"
	"github.com/careview/careview/internal/upstream"
	"github.com/careview/careview/internal/web"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "careview-server",
		Short: "Clinician-facing patient overview portal",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(routesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List registered routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.Nop()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e, err := buildServer(cfg, logger)
			if err != nil {
				return err
			}
			routes := e.Routes()
			sort.Slice(routes, func(i, j int) bool {
				if routes[i].Path != routes[j].Path {
					return routes[i].Path < routes[j].Path
				}
				return routes[i].Method < routes[j].Method
			})
			for _, r := range routes {
				fmt.Printf("%-7s %s\n", r.Method, r.Path)
			}
			return nil
		},
	}
}

// buildServer wires the echo instance: middleware chain, portal routes, and
// either the embedded sandbox or the reverse proxy to the remote API.
func buildServer(cfg *config.Config, logger zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	e.Renderer = renderer

	secure := cfg.IsProduction() || cfg.TLSEnabled
	sessions := session.NewManager([]byte(cfg.SessionSecret), cfg.SessionCookie, secure)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(sessions.Middleware())
	e.Use(middleware.Audit(logger))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// The upstream origin: the remote API, or the embedded sandbox mounted on
	// this same server for development.
	apiBase := cfg.APIBaseURL
	if cfg.Sandbox {
		sb := sandbox.New([]byte(cfg.SessionSecret), logger)
		group := e.Group("/sandbox")
		group.Use(middleware.RateLimit(rateLimitCfg))
		sb.RegisterRoutes(group)
		apiBase = fmt.Sprintf("http://127.0.0.1:%s/sandbox", cfg.Port)
		logger.Info().Msg("sandbox upstream enabled")
	}

	target, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	proxy.Register(e, target, logger)

	client := upstream.NewClient(apiBase, http.DefaultClient)
	handler := web.NewHandler(client, sessions, logger)
	// Credential submissions get the stricter per-client rate limit.
	handler.RegisterRoutes(e, middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	return e, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	e, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	addr := ":" + cfg.Port
	go func() {
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
