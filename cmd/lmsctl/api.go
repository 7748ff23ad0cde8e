package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/session"
)

// lmsAPI is a client of the access API served by cmd/api.
type lmsAPI struct {
	baseURL string
	client  *http.Client
	tokens  session.TokenSource
}

func newLMSAPI(baseURL string, tokens session.TokenSource) *lmsAPI {
	return &lmsAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
	}
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

func (a *lmsAPI) Signup(ctx context.Context, req signupRequest) (*domain.UserProfile, error) {
	var out struct {
		User domain.UserProfile `json:"user"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/v1/auth/signup", "", req, &out); err != nil {
		return nil, err
	}
	if out.User.ID == "" {
		// 202: the credential exists but the profile write failed.
		return nil, fmt.Errorf("account %s created without a profile; it is created on first sign-in", req.Email)
	}
	return &out.User, nil
}

// Profile satisfies session.ProfileSource. The role lookup runs first so a
// principal without a profile gets one before it is read.
func (a *lmsAPI) Profile(ctx context.Context, _ *domain.Principal) (*domain.UserProfile, error) {
	token, err := a.tokens.IDToken(ctx)
	if err != nil {
		return nil, err
	}

	var role struct {
		Role domain.Role `json:"role"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/auth/role", token, nil, &role); err != nil {
		return nil, err
	}

	var out struct {
		User domain.UserProfile `json:"user"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/auth/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (a *lmsAPI) do(ctx context.Context, method, path, token string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", path, domain.ErrUserNotFound)
		case http.StatusConflict:
			return fmt.Errorf("%s: %w", path, domain.ErrEmailInUse)
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, e.Error)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
