package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careview/careview/internal/session"
)

// AuditEntry captures one access to a patient-facing screen: who viewed what,
// when, and from where.
type AuditEntry struct {
	UserID     string
	UserEmail  string
	PatientID  string
	Path       string
	Method     string
	IPAddress  string
	UserAgent  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries. Tests provide a mock; by default the
// middleware only emits structured logs.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns middleware that logs access to the patient screens. Clinical
// portals keep a PHI access trail: every view of the overview or a patient
// detail records the authenticated clinician and, when present, the patient
// whose record was opened.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			// Run the handler first so the response status is known.
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     c.Request().Method,
				IPAddress:  c.RealIP(),
				UserAgent:  c.Request().UserAgent(),
				StatusCode: c.Response().Status,
				PatientID:  extractPatientID(path),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if sess, status := session.Current(c); status == session.StatusAuthenticated {
				entry.UserID = sess.User.ID
				entry.UserEmail = sess.User.Email
			}

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "phi_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("user_email", entry.UserEmail).
				Str("patient_id", entry.PatientID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

// isAuditablePath returns true for the screens that display patient data.
func isAuditablePath(path string) bool {
	return path == "/overview" || strings.HasPrefix(path, "/patients/")
}

// extractPatientID pulls the patient identifier out of a detail path.
func extractPatientID(path string) string {
	if !strings.HasPrefix(path, "/patients/") {
		return ""
	}
	rest := strings.TrimPrefix(path, "/patients/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
