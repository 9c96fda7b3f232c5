// Package sandbox provides a self-contained mock of the clinical API for local
// development. It serves the same wire contract the real upstream does:
// two-step authentication with emailed codes (echoed in the response here, so
// no mail server is needed) and a seeded patient panel. Everything lives in
// memory and resets on restart.
package sandbox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/careview/careview/internal/patient"
	"github.com/careview/careview/pkg/pagination"
)

const challengeTTL = 10 * time.Minute

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

type account struct {
	id           string
	email        string
	passwordHash []byte
}

type challenge struct {
	id        string
	accountID string
	code      string
	expiresAt time.Time
}

// Service is the in-memory sandbox upstream. Safe for concurrent use.
type Service struct {
	mu         sync.Mutex
	accounts   map[string]*account   // keyed by lowercased email
	challenges map[string]*challenge // keyed by challenge id
	patients   []patient.Patient
	signingKey []byte
	now        func() time.Time
	logger     zerolog.Logger
}

// New builds a sandbox seeded with a fixture patient panel and one known
// clinician account (clinician@example.com / sandbox-password).
func New(signingKey []byte, logger zerolog.Logger) *Service {
	s := &Service{
		accounts:   make(map[string]*account),
		challenges: make(map[string]*challenge),
		signingKey: signingKey,
		now:        time.Now,
		logger:     logger.With().Str("component", "sandbox").Logger(),
	}
	s.patients = seedPatients(s.now())

	hash, _ := bcrypt.GenerateFromPassword([]byte("sandbox-password"), bcrypt.DefaultCost)
	s.accounts["clinician@example.com"] = &account{
		id:           uuid.NewString(),
		email:        "clinician@example.com",
		passwordHash: hash,
	}
	return s
}

// RegisterRoutes mounts the sandbox endpoints on the given group.
func (s *Service) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/signup", s.handleSignup)
	g.POST("/auth/login", s.handleLogin)
	g.POST("/auth/verify", s.handleVerify)
	g.GET("/patients", s.handleListPatients)
	g.GET("/patients/:id", s.handleGetPatient)
}

// ---------------------------------------------------------------------------
// Auth handlers
// ---------------------------------------------------------------------------

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

func (s *Service) handleSignup(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid request body", "")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return apiError(c, http.StatusBadRequest, "email and password are required", "")
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		return apiError(c, http.StatusConflict, "account already exists for this email", "EMAIL_TAKEN")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.mu.Unlock()
		return apiError(c, http.StatusInternalServerError, "could not create account", "")
	}
	acct := &account{id: uuid.NewString(), email: email, passwordHash: hash}
	s.accounts[email] = acct
	ch := s.newChallengeLocked(acct)
	s.mu.Unlock()

	s.logger.Info().Str("email", email).Str("challenge_id", ch.id).Msg("signup challenge issued")
	return c.JSON(http.StatusOK, s.challengeResponse(ch, acct))
}

func (s *Service) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid request body", "")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	acct, exists := s.accounts[email]
	s.mu.Unlock()
	if !exists || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		return apiError(c, http.StatusUnauthorized, "invalid email or password", "INVALID_CREDENTIALS")
	}

	s.mu.Lock()
	ch := s.newChallengeLocked(acct)
	s.mu.Unlock()

	s.logger.Info().Str("email", email).Str("challenge_id", ch.id).Msg("login challenge issued")
	return c.JSON(http.StatusOK, s.challengeResponse(ch, acct))
}

func (s *Service) handleVerify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid request body", "")
	}

	s.mu.Lock()
	ch, exists := s.challenges[req.ChallengeID]
	if exists && s.now().After(ch.expiresAt) {
		delete(s.challenges, req.ChallengeID)
		exists = false
	}
	s.mu.Unlock()

	if !exists {
		return apiError(c, http.StatusUnauthorized, "challenge expired or unknown", "CHALLENGE_EXPIRED")
	}
	// A wrong code leaves the challenge in place so the form can retry.
	if req.Code != ch.code {
		return apiError(c, http.StatusUnauthorized, "incorrect verification code", "CODE_MISMATCH")
	}

	var acct *account
	s.mu.Lock()
	delete(s.challenges, req.ChallengeID)
	for _, a := range s.accounts {
		if a.id == ch.accountID {
			acct = a
			break
		}
	}
	s.mu.Unlock()
	if acct == nil {
		return apiError(c, http.StatusUnauthorized, "account no longer exists", "")
	}

	token, err := s.issueToken(acct)
	if err != nil {
		return apiError(c, http.StatusInternalServerError, "could not issue token", "")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  map[string]string{"id": acct.id, "email": acct.email},
	})
}

// ChallengeCode returns the pending code for a challenge, or "" if the
// challenge is unknown. Intended for tests and local tooling; real codes are
// only delivered out of band.
func (s *Service) ChallengeCode(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.challenges[id]; ok {
		return ch.code
	}
	return ""
}

func (s *Service) newChallengeLocked(acct *account) *challenge {
	ch := &challenge{
		id:        uuid.NewString(),
		accountID: acct.id,
		code:      randomCode(),
		expiresAt: s.now().Add(challengeTTL),
	}
	s.challenges[ch.id] = ch
	return ch
}

// challengeResponse echoes the code in the delivery block so sandbox users
// can complete verification without a mailbox.
func (s *Service) challengeResponse(ch *challenge, acct *account) map[string]interface{} {
	return map[string]interface{}{
		"twoFactorRequired": true,
		"challengeId":       ch.id,
		"delivery": map[string]string{
			"channel": "email",
			"hint":    maskEmail(acct.email),
			"devCode": ch.code,
		},
		"user": map[string]string{"id": acct.id, "email": acct.email},
	}
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

func (s *Service) issueToken(acct *account) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   acct.id,
		"email": acct.email,
		"iat":   now.Unix(),
		"exp":   now.Add(12 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *Service) verifyToken(raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("missing subject")
	}
	return sub, nil
}

func (s *Service) requireBearer(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return apiError(c, http.StatusUnauthorized, "missing bearer token", "UNAUTHENTICATED")
	}
	if _, err := s.verifyToken(strings.TrimPrefix(header, prefix)); err != nil {
		return apiError(c, http.StatusUnauthorized, "invalid or expired token", "UNAUTHENTICATED")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Patient handlers
// ---------------------------------------------------------------------------

func (s *Service) handleListPatients(c echo.Context) error {
	if err := s.requireBearer(c); err != nil {
		return err
	}

	crit := patient.Criteria{
		AttentionLevel: c.QueryParam("attentionLevel"),
		Concern:        c.QueryParam("concern"),
	}
	matched := make([]patient.Patient, 0, len(s.patients))
	matched = append(matched, patient.Filter(s.patients, crit)...)
	if role := c.QueryParam("hcpRole"); role != "" {
		var kept []patient.Patient
		for _, p := range matched {
			if p.Hcp.Role == role {
				kept = append(kept, p)
			}
		}
		matched = kept
	}

	switch c.QueryParam("sort") {
	case "-riskScore":
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Status.RiskScore > matched[j].Status.RiskScore
		})
	case "riskScore":
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Status.RiskScore < matched[j].Status.RiskScore
		})
	}

	params := pagination.FromContext(c)
	start, end := params.Slice(len(matched))
	page := make([]patient.Patient, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, summarize(p))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(matched), params))
}

func (s *Service) handleGetPatient(c echo.Context) error {
	if err := s.requireBearer(c); err != nil {
		return err
	}
	id := c.Param("id")
	for _, p := range s.patients {
		if p.ID == id {
			return c.JSON(http.StatusOK, p)
		}
	}
	return apiError(c, http.StatusNotFound, "patient not found", "NOT_FOUND")
}

// summarize converts a stored patient to its list-response shape: the full
// observation series is replaced with the three most recent entries.
func summarize(p patient.Patient) patient.Patient {
	if len(p.Observations) > 3 {
		p.RecentObservations = p.Observations[:3]
	} else {
		p.RecentObservations = p.Observations
	}
	p.Observations = nil
	return p
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func apiError(c echo.Context, status int, message, code string) error {
	return c.JSON(status, map[string]errorPayload{
		"error": {Message: message, Code: code},
	})
}
