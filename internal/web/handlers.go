// Package web serves the clinician-facing HTML portal: the two-step sign-in
// flow and the patient overview and detail screens. All clinical data is read
// through the upstream client on each request; nothing is cached here.
package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careview/careview/internal/authflow"
	"github.com/careview/careview/internal/patient"
	"github.com/careview/careview/internal/session"
	"github.com/careview/careview/internal/upstream"
)

// listFetchLimit is how many patients the overview pulls per render. Filters
// and grouping are applied locally over this window.
const listFetchLimit = 100

const msgListFailed = "Could not load patients. Please try again."

// Handler owns the portal routes.
type Handler struct {
	upstream *upstream.Client
	sessions *session.Manager
	flow     *authflow.Flow
	logger   zerolog.Logger
}

func NewHandler(client *upstream.Client, sessions *session.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		upstream: client,
		sessions: sessions,
		flow:     authflow.New(client, client),
		logger:   logger.With().Str("component", "web").Logger(),
	}
}

// RegisterRoutes mounts the portal on the echo instance. Any given middleware
// is applied to the credential-bearing form submissions only.
func (h *Handler) RegisterRoutes(e *echo.Echo, authPost ...echo.MiddlewareFunc) {
	e.GET("/", h.root)
	e.GET("/login", h.loginPage)
	e.POST("/login", h.loginSubmit, authPost...)
	e.GET("/verify", h.verifyPage)
	e.POST("/verify", h.verifySubmit, authPost...)
	e.GET("/overview", h.overview)
	e.GET("/patients/:id", h.patientDetail)
	e.POST("/logout", h.logout)
	e.GET("/assets/app.js", h.appScript)
}

// appScript serves the page script from the binary. Kept same-origin so the
// content security policy stays at default-src 'self'.
func (h *Handler) appScript(c echo.Context) error {
	return c.Blob(http.StatusOK, "text/javascript; charset=utf-8", appJS)
}

// root sends authenticated users to the overview and everyone else to the
// sign-in screen. Session status is resolved by middleware before this runs,
// so there is no intermediate "still checking" render on the server side.
func (h *Handler) root(c echo.Context) error {
	if _, status := session.Current(c); status == session.StatusAuthenticated {
		return c.Redirect(http.StatusSeeOther, "/overview")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// ---------------------------------------------------------------------------
// Sign-in and sign-up
// ---------------------------------------------------------------------------

type loginData struct {
	Title     string
	UserEmail string
	Mode      string
	Email     string
	Error     string
}

func normalizeMode(raw string) authflow.Mode {
	if raw == string(authflow.ModeSignup) {
		return authflow.ModeSignup
	}
	return authflow.ModeLogin
}

func (h *Handler) loginPage(c echo.Context) error {
	if _, status := session.Current(c); status == session.StatusAuthenticated {
		return c.Redirect(http.StatusSeeOther, "/overview")
	}
	mode := normalizeMode(c.QueryParam("mode"))
	return c.Render(http.StatusOK, "login.html", loginData{Title: "Sign in", Mode: string(mode)})
}

func (h *Handler) loginSubmit(c echo.Context) error {
	mode := normalizeMode(c.FormValue("mode"))
	email := c.FormValue("email")
	password := c.FormValue("password")

	challenge, err := h.flow.Start(c.Request().Context(), mode, email, password)
	if err != nil {
		h.logger.Debug().Err(err).Str("mode", string(mode)).Msg("auth start rejected")
		return c.Render(http.StatusOK, "login.html", loginData{
			Title: "Sign in",
			Mode:  string(mode),
			Email: email,
			Error: err.Error(),
		})
	}

	q := url.Values{}
	q.Set("challengeId", challenge.ID)
	q.Set("email", challenge.Email)
	return c.Redirect(http.StatusSeeOther, "/verify?"+q.Encode())
}

// ---------------------------------------------------------------------------
// Verification
// ---------------------------------------------------------------------------

type verifyData struct {
	Title       string
	UserEmail   string
	ChallengeID string
	Email       string
	Error       string
}

// verifyPage renders the code entry form. Landing here without a challenge,
// for example by opening the URL directly, shows a dead-end page instead of a
// form that could never submit successfully. No upstream call happens on
// either branch.
func (h *Handler) verifyPage(c echo.Context) error {
	challengeID := c.QueryParam("challengeId")
	if challengeID == "" {
		return c.Render(http.StatusOK, "no_challenge.html", loginData{Title: "Verification"})
	}
	return c.Render(http.StatusOK, "verify.html", verifyData{
		Title:       "Verify",
		ChallengeID: challengeID,
		Email:       c.QueryParam("email"),
	})
}

func (h *Handler) verifySubmit(c echo.Context) error {
	challengeID := c.FormValue("challengeId")
	if challengeID == "" {
		return c.Render(http.StatusOK, "no_challenge.html", loginData{Title: "Verification"})
	}
	email := c.FormValue("email")
	code := c.FormValue("code")

	auth, err := h.flow.Verify(c.Request().Context(), challengeID, code)
	if err != nil {
		return c.Render(http.StatusOK, "verify.html", verifyData{
			Title:       "Verify",
			ChallengeID: challengeID,
			Email:       email,
			Error:       err.Error(),
		})
	}

	if err := h.sessions.Establish(c, auth.Token, auth.User); err != nil {
		h.logger.Error().Err(err).Msg("establish session")
		return c.Render(http.StatusOK, "verify.html", verifyData{
			Title:       "Verify",
			ChallengeID: challengeID,
			Email:       email,
			Error:       authflow.MsgGenericVerify,
		})
	}
	return c.Redirect(http.StatusSeeOther, "/overview")
}

// ---------------------------------------------------------------------------
// Patient screens
// ---------------------------------------------------------------------------

type overviewData struct {
	Title     string
	UserEmail string
	Groups    []patient.AttentionGroup
	Concerns  []string
	Filter    patient.Criteria
	Shown     int
	Total     int
	Error     string
}

// requireSession returns the session when authenticated, or redirects to the
// sign-in screen and returns done=true.
func (h *Handler) requireSession(c echo.Context) (session.Session, bool, error) {
	sess, status := session.Current(c)
	if status != session.StatusAuthenticated {
		return session.Session{}, true, c.Redirect(http.StatusSeeOther, "/login")
	}
	return sess, false, nil
}

// expelIfUnauthorized clears the session and redirects to sign-in when the
// upstream rejected our token. Returns done=true when it handled the error.
func (h *Handler) expelIfUnauthorized(c echo.Context, err error) (bool, error) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if clearErr := h.sessions.Clear(c); clearErr != nil {
			h.logger.Error().Err(clearErr).Msg("clear session")
		}
		return true, c.Redirect(http.StatusSeeOther, "/login")
	}
	return false, nil
}

func (h *Handler) overview(c echo.Context) error {
	sess, done, err := h.requireSession(c)
	if done {
		return err
	}

	data := overviewData{
		Title:     "Overview",
		UserEmail: sess.User.Email,
		Filter: patient.Criteria{
			AttentionLevel: c.QueryParam("attentionLevel"),
			Concern:        c.QueryParam("concern"),
		},
	}

	list, err := h.upstream.ListPatients(c.Request().Context(), sess.Token, upstream.ListParams{
		Limit: listFetchLimit,
		Sort:  "-riskScore",
	})
	if err != nil {
		if done, redirErr := h.expelIfUnauthorized(c, err); done {
			return redirErr
		}
		h.logger.Error().Err(err).Msg("list patients")
		data.Error = msgListFailed
		return c.Render(http.StatusOK, "overview.html", data)
	}

	filtered := patient.Filter(list.Data, data.Filter)
	data.Groups = patient.Prioritize(filtered)
	data.Concerns = patient.Concerns(list.Data)
	data.Shown = len(filtered)
	data.Total = len(list.Data)
	return c.Render(http.StatusOK, "overview.html", data)
}

// detailObservationLimit caps how many observation entries the detail screen
// renders; the full series still arrives on the wire.
const detailObservationLimit = 10

type detailData struct {
	Title        string
	UserEmail    string
	Patient      *patient.Patient
	Observations []map[string]string
}

// patientDetail fetches one record with the request context, so a client that
// navigates away cancels the upstream call instead of leaving it running.
func (h *Handler) patientDetail(c echo.Context) error {
	sess, done, err := h.requireSession(c)
	if done {
		return err
	}

	p, err := h.upstream.GetPatient(c.Request().Context(), sess.Token, c.Param("id"))
	if err != nil {
		if done, redirErr := h.expelIfUnauthorized(c, err); done {
			return redirErr
		}
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return c.Render(http.StatusNotFound, "not_found.html", loginData{Title: "Not found", UserEmail: sess.User.Email})
		}
		h.logger.Error().Err(err).Str("patient_id", c.Param("id")).Msg("get patient")
		return c.Render(http.StatusOK, "overview.html", overviewData{
			Title:     "Overview",
			UserEmail: sess.User.Email,
			Error:     msgListFailed,
		})
	}

	return c.Render(http.StatusOK, "detail.html", detailData{
		Title:        p.Name,
		UserEmail:    sess.User.Email,
		Patient:      p,
		Observations: patient.DecodeObservations(p.Observations, detailObservationLimit),
	})
}

func (h *Handler) logout(c echo.Context) error {
	if err := h.sessions.Clear(c); err != nil {
		h.logger.Error().Err(err).Msg("clear session")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}
