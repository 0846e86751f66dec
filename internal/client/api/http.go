package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/authkeep/internal/client/models"
	"github.com/dmitrijs2005/authkeep/internal/client/tokens"
)

// Service endpoint paths, relative to the configured base URL.
const (
	pathLogin    = "auth/login/"
	pathRegister = "auth/register/"
	pathLogout   = "auth/logout/"
	pathUser     = "auth/user/"
	pathRefresh  = "auth/token/refresh/"
)

// tokenResponse is the credential pair as the service returns it.
type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// HTTPClient implements Client against the remote auth service. Credential
// state lives in the token repository; the client itself is stateless
// between calls.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	store   tokens.Repository

	// refreshGroup collapses concurrent refresh attempts (proactive tick vs
	// reactive retry) into one remote call whose result all callers share.
	refreshGroup singleflight.Group
}

func NewHTTPClient(baseURL string, store tokens.Repository, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		http:    &http.Client{Timeout: timeout},
		store:   store,
	}
}

// do sends one JSON request. A transport-level failure (no response at all,
// timeouts included) comes back as a Network AuthError; any HTTP response,
// success or not, is handed to the caller for interpretation.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, bearer string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, newAuthError(ErrUnknown, fmt.Sprintf("failed to encode request: %v", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, newAuthError(ErrUnknown, fmt.Sprintf("failed to build request: %v", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, newAuthError(ErrNetwork, "")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, newAuthError(ErrNetwork, "")
	}
	return resp.StatusCode, data, nil
}

// Login authenticates with the service, stores the returned pair, and
// decodes the user identity from the access token claims.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*models.User, error) {
	status, body, err := c.do(ctx, http.MethodPost, pathLogin, map[string]string{
		"username": username,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, serviceError(status, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, newAuthError(ErrUnknown, "failed to decode login response")
	}
	if err := c.store.Save(ctx, tokens.Pair{Access: tr.Access, Refresh: tr.Refresh}); err != nil {
		return nil, newAuthError(ErrUnknown, err.Error())
	}

	user, err := userFromToken(tr.Access)
	if err != nil {
		return nil, newAuthError(ErrUnknown, "failed to decode user from access token")
	}
	return user, nil
}

// Register creates a new account. It never logs the user in.
func (c *HTTPClient) Register(ctx context.Context, username, password, email string) error {
	status, body, err := c.do(ctx, http.MethodPost, pathRegister, map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	}, "")
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return serviceError(status, body)
	}
	return nil
}

// CurrentUser fetches the identity behind the stored access token. With no
// stored token it returns (nil, nil) without touching the network. A 401 is
// retried exactly once after a refresh; a second 401 is surfaced as-is,
// never another refresh.
func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.User, error) {
	access, err := c.store.Access(ctx)
	if err != nil {
		return nil, newAuthError(ErrUnknown, err.Error())
	}
	if access == "" {
		return nil, nil
	}

	for attempt := 0; ; attempt++ {
		status, body, err := c.do(ctx, http.MethodGet, pathUser, nil, access)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusOK:
			var user models.User
			if err := json.Unmarshal(body, &user); err != nil {
				return nil, newAuthError(ErrUnknown, "failed to decode user response")
			}
			return &user, nil

		case status == http.StatusUnauthorized && attempt == 0:
			access, err = c.RefreshTokens(ctx)
			if err != nil {
				return nil, err
			}

		default:
			return nil, serviceError(status, body)
		}
	}
}

// RefreshTokens exchanges the stored refresh token for a new pair, stores
// it, and returns the new access token. Concurrent callers share a single
// remote call. On failure the stored credentials are left untouched: whether
// to force a logout is the caller's policy decision.
func (c *HTTPClient) RefreshTokens(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refreshOnce(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *HTTPClient) refreshOnce(ctx context.Context) (string, error) {
	refresh, err := c.store.Refresh(ctx)
	if err != nil {
		return "", newAuthError(ErrRefreshFailed, err.Error())
	}
	if refresh == "" {
		return "", newAuthError(ErrRefreshFailed, "no refresh token stored")
	}

	status, body, err := c.do(ctx, http.MethodPost, pathRefresh, map[string]string{"refresh": refresh}, "")
	if err != nil {
		return "", newAuthError(ErrRefreshFailed, err.Error())
	}
	if status != http.StatusOK {
		return "", newAuthError(ErrRefreshFailed, flattenErrorBody(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", newAuthError(ErrRefreshFailed, "failed to decode refresh response")
	}
	if err := c.store.Save(ctx, tokens.Pair{Access: tr.Access, Refresh: tr.Refresh}); err != nil {
		return "", newAuthError(ErrRefreshFailed, err.Error())
	}
	return tr.Access, nil
}

// Logout notifies the service (best effort) and then unconditionally clears
// the stored pair. A failing remote call never blocks the local cleanup.
func (c *HTTPClient) Logout(ctx context.Context) error {
	access, _ := c.store.Access(ctx)
	refresh, _ := c.store.Refresh(ctx)

	if access != "" || refresh != "" {
		// Remote revocation is advisory; the session dies locally regardless.
		_, _, _ = c.do(ctx, http.MethodPost, pathLogout, map[string]string{"refresh": refresh}, access)
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear stored tokens: %w", err)
	}
	return nil
}

// userFromToken decodes the identity claims the service embeds in the access
// token. The signature is not verified; the token is treated as data here.
func userFromToken(token string) (*models.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	u := &models.User{}
	for key, dst := range map[string]*string{
		"user_id":    &u.ID,
		"username":   &u.Username,
		"email":      &u.Email,
		"first_name": &u.FirstName,
		"last_name":  &u.LastName,
	} {
		if v, ok := claims[key].(string); ok {
			*dst = v
		}
	}
	return u, nil
}
