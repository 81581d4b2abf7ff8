package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/projectflow/loginguard/internal/models"
)

// IdentityProvider verifies credentials; passwords never reach the ledger
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignUp(ctx context.Context, email, password, name string) (*models.AuthUser, error)
	ResetPassword(ctx context.Context, email, redirectTo string) error
}

// SupabaseIdentityProvider talks to the Supabase GoTrue REST API
type SupabaseIdentityProvider struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewSupabaseIdentityProvider creates a provider for the project at projectURL
func NewSupabaseIdentityProvider(projectURL, anonKey string, client *http.Client) *SupabaseIdentityProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseIdentityProvider{
		baseURL: strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey: anonKey,
		client:  client,
	}
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
}

func (e gotrueError) message() string {
	for _, m := range []string{e.Msg, e.ErrorDescription, e.Error, e.ErrorCode} {
		if m != "" {
			return m
		}
	}
	return "unknown error"
}

// SignIn exchanges email and password for a session
func (p *SupabaseIdentityProvider) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	body := map[string]string{"email": email, "password": password}

	var session models.AuthSession
	status, apiErr, err := p.do(ctx, "/token?grant_type=password", body, &session)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		return &session, nil
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidCredentials, apiErr.message())
	default:
		return nil, fmt.Errorf("%w: sign in returned %d: %s", models.ErrIdentityProvider, status, apiErr.message())
	}
}

// SignUp registers a new account; name is stored in the user metadata
func (p *SupabaseIdentityProvider) SignUp(ctx context.Context, email, password, name string) (*models.AuthUser, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}

	// With auto-confirm enabled the provider answers with a session wrapping the user
	var resp struct {
		models.AuthUser
		User *models.AuthUser `json:"user"`
	}
	status, apiErr, err := p.do(ctx, "/signup", body, &resp)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		if resp.User != nil {
			return resp.User, nil
		}
		return &resp.AuthUser, nil
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, apiErr.message())
	default:
		return nil, fmt.Errorf("%w: sign up returned %d: %s", models.ErrIdentityProvider, status, apiErr.message())
	}
}

// ResetPassword asks the provider to email a recovery link
func (p *SupabaseIdentityProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	status, apiErr, err := p.do(ctx, path, map[string]string{"email": email}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: recover returned %d: %s", models.ErrIdentityProvider, status, apiErr.message())
	}
	return nil
}

// do posts a JSON body and decodes a 2xx response into out
func (p *SupabaseIdentityProvider) do(ctx context.Context, path string, body any, out any) (int, gotrueError, error) {
	var apiErr gotrueError

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, apiErr, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, apiErr, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Authorization", "Bearer "+p.anonKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, apiErr, fmt.Errorf("%w: %w", models.ErrIdentityProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, apiErr, fmt.Errorf("%w: read response: %w", models.ErrIdentityProvider, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return resp.StatusCode, apiErr, fmt.Errorf("%w: decode response: %w", models.ErrIdentityProvider, err)
			}
		}
		return resp.StatusCode, apiErr, nil
	}

	_ = json.Unmarshal(raw, &apiErr)
	return resp.StatusCode, apiErr, nil
}
