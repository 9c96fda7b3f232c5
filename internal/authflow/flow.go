// Package authflow orchestrates the two-step credential + one-time-code
// sign-in sequence against the upstream auth endpoints. It owns all
// pre-submission validation and the mapping of failures to the messages the
// screens display; nothing in here touches the network for invalid input.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/careview/careview/internal/upstream"
)

// Mode selects which start endpoint a credential submission hits. The two are
// mutually exclusive and user-toggled on the login screen.
type Mode string

const (
	ModeLogin  Mode = "login"
	ModeSignup Mode = "signup"
)

const (
	// MinPasswordLen mirrors the upstream's password policy; shorter
	// passwords are rejected before any request is made.
	MinPasswordLen = 8

	// CodeLen is the exact length of a verification code.
	CodeLen = 6
)

// Display messages for failures that do not surface the server's own text.
const (
	MsgConflict      = "Email already registered. Try logging in instead."
	MsgGenericStart  = "Something went wrong. Please try again."
	MsgGenericVerify = "Verification failed. Please try again."
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidationError is a pre-submission failure; it blocks the network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FlowError is a submission failure with the message the screen should show.
type FlowError struct {
	Message string
	// Cause is the underlying error: *upstream.APIError for rejected
	// requests, anything else for transport failures.
	Cause error
}

func (e *FlowError) Error() string { return e.Message }
func (e *FlowError) Unwrap() error { return e.Cause }

// Challenge pairs the identifier of a pending verification with the email it
// was issued for. It travels to the verify screen in the navigation target,
// never in the session.
type Challenge struct {
	ID    string
	Email string
}

// Starter is the slice of the upstream client the flow needs for step one.
type Starter interface {
	StartLogin(ctx context.Context, email, password string) (*upstream.TwoFactorStart, error)
	StartSignup(ctx context.Context, email, password string) (*upstream.TwoFactorStart, error)
}

// Verifier is the slice of the upstream client the flow needs for step two.
type Verifier interface {
	VerifyCode(ctx context.Context, challengeID, code string) (*upstream.Auth, error)
}

// Flow drives the two-step authentication sequence.
type Flow struct {
	starter  Starter
	verifier Verifier
}

func New(starter Starter, verifier Verifier) *Flow {
	return &Flow{starter: starter, verifier: verifier}
}

// ValidateCredentials checks email shape and password length without touching
// the network.
func ValidateCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Enter a valid email address."}
	}
	if len(password) < MinPasswordLen {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters.", MinPasswordLen),
		}
	}
	return nil
}

// ValidateCode checks that the code is exactly six digits.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return &ValidationError{Field: "code", Message: "Enter the 6-digit code."}
	}
	return nil
}

// Start submits credentials and returns the issued challenge. A 409 conflict
// on signup maps to the distinguished "try logging in" message; other API
// failures surface the server message verbatim; transport failures fall back
// to a generic message. All of these come back as *FlowError.
func (f *Flow) Start(ctx context.Context, mode Mode, email, password string) (*Challenge, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	var (
		res *upstream.TwoFactorStart
		err error
	)
	switch mode {
	case ModeSignup:
		res, err = f.starter.StartSignup(ctx, email, password)
	default:
		res, err = f.starter.StartLogin(ctx, email, password)
	}
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			if mode == ModeSignup && apiErr.Status == http.StatusConflict {
				return nil, &FlowError{Message: MsgConflict, Cause: err}
			}
			return nil, &FlowError{Message: apiErr.Message, Cause: err}
		}
		return nil, &FlowError{Message: MsgGenericStart, Cause: err}
	}

	return &Challenge{ID: res.ChallengeID, Email: email}, nil
}

// Verify exchanges the challenge and code for a session. On failure the
// challenge remains usable for a retry with a fresh code. An empty challenge
// identifier is a caller bug — the verify screen must not submit without one.
func (f *Flow) Verify(ctx context.Context, challengeID, code string) (*upstream.Auth, error) {
	if challengeID == "" {
		return nil, &ValidationError{Field: "challengeId", Message: "Missing verification challenge."}
	}
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	auth, err := f.verifier.VerifyCode(ctx, challengeID, code)
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			return nil, &FlowError{Message: apiErr.Message, Cause: err}
		}
		return nil, &FlowError{Message: MsgGenericVerify, Cause: err}
	}
	return auth, nil
}
