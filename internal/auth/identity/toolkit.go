package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1"
	defaultTimeout     = 15 * time.Second
)

// Toolkit is a client of the Identity Toolkit REST API. It holds the credentials of
// one signed-in principal and publishes sign-in state changes to subscribers.
type Toolkit struct {
	apiKey      string
	identityURL string
	tokenURL    string
	httpClient  *http.Client
	log         *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	creds *Credentials

	changes notifier
}

type ToolkitOption func(*Toolkit)

func WithIdentityURL(u string) ToolkitOption {
	return func(t *Toolkit) { t.identityURL = strings.TrimRight(u, "/") }
}

func WithTokenURL(u string) ToolkitOption {
	return func(t *Toolkit) { t.tokenURL = strings.TrimRight(u, "/") }
}

func WithLogger(l *slog.Logger) ToolkitOption {
	return func(t *Toolkit) { t.log = l }
}

func NewToolkit(apiKey string, opts ...ToolkitOption) *Toolkit {
	t := &Toolkit{
		apiKey:      apiKey,
		identityURL: DefaultIdentityURL,
		tokenURL:    DefaultTokenURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ Provider = (*Toolkit)(nil)

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateAccount registers a principal and signs it in.
func (t *Toolkit) CreateAccount(ctx context.Context, email, password string) (*domain.Principal, error) {
	var resp authResponse
	err := t.post(ctx, t.identityURL+"/accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return t.establish(ctx, resp), nil
}

func (t *Toolkit) SignIn(ctx context.Context, email, password string) (*domain.Principal, error) {
	var resp authResponse
	err := t.post(ctx, t.identityURL+"/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return t.establish(ctx, resp), nil
}

func (t *Toolkit) SignOut(ctx context.Context) error {
	t.mu.Lock()
	t.creds = nil
	t.mu.Unlock()

	t.changes.publish(nil)
	return nil
}

func (t *Toolkit) SendPasswordReset(ctx context.Context, email string) error {
	return t.post(ctx, t.identityURL+"/accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

func (t *Toolkit) Subscribe(fn func(*domain.Principal)) func() {
	return t.changes.subscribe(fn)
}

// Current returns the signed-in principal, or nil.
func (t *Toolkit) Current() *domain.Principal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.creds == nil {
		return nil
	}
	p := t.creds.Principal
	return &p
}

// IDToken returns a valid ID token, refreshing it when close to expiry.
func (t *Toolkit) IDToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	creds := t.creds
	t.mu.Unlock()

	if creds == nil {
		return "", domain.ErrMissingPrincipal
	}
	if !creds.expired(t.now()) {
		return creds.IDToken, nil
	}

	refreshed, err := t.refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	if t.creds != nil && t.creds.Principal.ID == creds.Principal.ID {
		t.creds.IDToken = refreshed.IDToken
		t.creds.RefreshToken = refreshed.RefreshToken
		t.creds.ExpiresAt = refreshed.ExpiresAt
	}
	t.mu.Unlock()

	return refreshed.IDToken, nil
}

func (t *Toolkit) establish(ctx context.Context, resp authResponse) *domain.Principal {
	p := domain.Principal{ID: resp.LocalID, Email: resp.Email}
	if verified, err := t.lookupVerified(ctx, resp.IDToken); err != nil {
		t.log.Warn("account lookup failed", slog.String("uid", resp.LocalID), logging.Err(err))
	} else {
		p.EmailVerified = verified
	}

	t.mu.Lock()
	t.creds = &Credentials{
		Principal:    p,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    t.now().Add(parseExpiresIn(resp.ExpiresIn)),
	}
	t.mu.Unlock()

	t.changes.publish(&p)
	return &p
}

func (t *Toolkit) lookupVerified(ctx context.Context, idToken string) (bool, error) {
	var resp struct {
		Users []struct {
			EmailVerified bool `json:"emailVerified"`
		} `json:"users"`
	}
	if err := t.post(ctx, t.identityURL+"/accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return false, err
	}
	if len(resp.Users) == 0 {
		return false, nil
	}
	return resp.Users[0].EmailVerified, nil
}

func (t *Toolkit) refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	reqURL := t.tokenURL + "/token?key=" + url.QueryEscape(t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := t.do(req, &out); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return &Credentials{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    t.now().Add(parseExpiresIn(out.ExpiresIn)),
	}, nil
}

func (t *Toolkit) post(ctx context.Context, endpoint string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := endpoint + "?key=" + url.QueryEscape(t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, out)
}

func (t *Toolkit) do(req *http.Request, out any) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		return mapAPIError(resp.StatusCode, apiErr.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// mapAPIError converts Identity Toolkit error codes. Messages may carry a suffix,
// e.g. "WEAK_PASSWORD : Password should be at least 6 characters".
func mapAPIError(status int, message string) error {
	code := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	switch code {
	case "EMAIL_EXISTS":
		return domain.ErrEmailInUse
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return fmt.Errorf("%w (%s)", domain.ErrInvalidLogin, code)
	}
	if message == "" {
		return fmt.Errorf("identity provider returned status %d", status)
	}
	return fmt.Errorf("identity provider returned status %d: %s", status, message)
}

func parseExpiresIn(s string) time.Duration {
	secs, err := strconv.Atoi(s)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}
