// Package proxy forwards browser-side API calls to the configured remote
// origin under a same-origin path, so page scripts never need the remote
// host or its CORS policy.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Prefix is the local mount point; everything under it is forwarded with the
// prefix stripped.
const Prefix = "/api/proxy"

// New builds an echo handler that reverse-proxies to target. The target must
// be an absolute URL, validated at config load.
func New(target *url.URL, logger zerolog.Logger) echo.HandlerFunc {
	log := logger.With().Str("component", "proxy").Logger()

	rp := httputil.NewSingleHostReverseProxy(target)
	baseDirector := rp.Director
	rp.Director = func(req *http.Request) {
		baseDirector(req)
		req.URL.Path = strings.TrimPrefix(req.URL.Path, Prefix)
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
		req.Host = target.Host
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("proxy upstream unreachable")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"upstream unreachable"}}`))
	}

	return func(c echo.Context) error {
		rp.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Register mounts the proxy for all methods under Prefix.
func Register(e *echo.Echo, target *url.URL, logger zerolog.Logger) {
	h := New(target, logger)
	e.Any(Prefix+"/*", h)
}
