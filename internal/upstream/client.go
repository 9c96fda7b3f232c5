// Package upstream wraps outbound calls to the remote clinical API. Every
// non-2xx response is normalized into *APIError; failures to reach the server
// at all are returned as plain errors so callers can tell "server rejected"
// from "could not reach server".
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/careview/careview/internal/patient"
)

// APIError carries the HTTP status, the upstream's optional machine-readable
// code, and a human-readable message for a rejected request.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// User is the authenticated identity returned by the upstream.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TwoFactorStart is the response to a login or signup start call.
type TwoFactorStart struct {
	TwoFactorRequired bool            `json:"twoFactorRequired"`
	ChallengeID       string          `json:"challengeId"`
	Delivery          json.RawMessage `json:"delivery"`
	User              User            `json:"user"`
}

// Auth is the response to a successful code verification.
type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ListMeta is the pagination envelope on the patient list endpoint.
type ListMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// PatientList is the patient list response.
type PatientList struct {
	Data []patient.Patient `json:"data"`
	Meta ListMeta          `json:"meta"`
}

// ListParams are the optional query parameters of the patient list endpoint.
// Zero values are omitted from the request.
type ListParams struct {
	Page           int
	Limit          int
	AttentionLevel string
	Concern        string
	Sort           string
	HcpRole        string
}

func (p ListParams) encode() string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.AttentionLevel != "" {
		q.Set("attentionLevel", p.AttentionLevel)
	}
	if p.Concern != "" {
		q.Set("concern", p.Concern)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.HcpRole != "" {
		q.Set("hcpRole", p.HcpRole)
	}
	return q.Encode()
}

// Client talks to the remote clinical API. The zero http.Client imposes no
// timeout; cancellation comes from the request context.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// errorBody is the upstream's error envelope. Any other shape on an error
// response degrades to the generic status message.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		// Transport failure: no response at all. Deliberately not an
		// *APIError so callers can distinguish the two.
		return fmt.Errorf("upstream request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{
			Status:  res.StatusCode,
			Message: fmt.Sprintf("request failed with status %d", res.StatusCode),
		}
		var eb errorBody
		if err := json.NewDecoder(res.Body).Decode(&eb); err == nil && eb.Error.Message != "" {
			apiErr.Message = eb.Error.Message
			apiErr.Code = eb.Error.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StartSignup begins account creation; the upstream issues a verification
// challenge and delivers a one-time code out of band.
func (c *Client) StartSignup(ctx context.Context, email, password string) (*TwoFactorStart, error) {
	var out TwoFactorStart
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartLogin begins a login; response shape matches StartSignup.
func (c *Client) StartLogin(ctx context.Context, email, password string) (*TwoFactorStart, error) {
	var out TwoFactorStart
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", credentials{email, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyCode exchanges a challenge id and 6-digit code for a session token.
func (c *Client) VerifyCode(ctx context.Context, challengeID, code string) (*Auth, error) {
	body := struct {
		ChallengeID string `json:"challengeId"`
		Code        string `json:"code"`
	}{challengeID, code}

	var out Auth
	if err := c.do(ctx, http.MethodPost, "/auth/verify", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPatients fetches the patient list with summarized observations.
func (c *Client) ListPatients(ctx context.Context, token string, params ListParams) (*PatientList, error) {
	path := "/patients"
	if qs := params.encode(); qs != "" {
		path += "?" + qs
	}
	var out PatientList
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPatient fetches one patient with full observations.
func (c *Client) GetPatient(ctx context.Context, token, id string) (*patient.Patient, error) {
	var out patient.Patient
	if err := c.do(ctx, http.MethodGet, "/patients/"+url.PathEscape(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
