package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authkeep/internal/client/tokens"

	_ "modernc.org/sqlite"
)

var testSigningKey = []byte("transport-test-key")

// ---- helpers ----

func setupStore(t *testing.T) tokens.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE tokens (key TEXT PRIMARY KEY, value TEXT NOT NULL);`)
	require.NoError(t, err)
	return tokens.NewSQLiteRepository(db)
}

// mintAccessToken issues a signed access token carrying identity claims the
// way the auth service does.
func mintAccessToken(t *testing.T, userID, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"username":   username,
		"email":      username + "@example.com",
		"first_name": "Jane",
		"last_name":  "Doe",
		"exp":        time.Now().Add(5 * time.Minute).Unix(),
	})
	signed, err := token.SignedString(testSigningKey)
	require.NoError(t, err)
	return signed
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeService is a scriptable stand-in for the remote auth service.
type fakeService struct {
	t *testing.T

	loginStatus int
	loginBody   any

	registerStatus int
	registerBody   any

	// userResponses is consumed one response per profile request.
	mu            sync.Mutex
	userResponses []func(w http.ResponseWriter, r *http.Request)

	refreshHandler func(w http.ResponseWriter, r *http.Request)

	logoutStatus int

	loginCalls   atomic.Int64
	userCalls    atomic.Int64
	refreshCalls atomic.Int64
	logoutCalls  atomic.Int64
}

func (f *fakeService) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	// Go 1.21 ServeMux has no method patterns; guard the method explicitly.
	handle := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		})
	}

	handle(http.MethodPost, "/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls.Add(1)
		writeJSON(f.t, w, f.loginStatus, f.loginBody)
	})
	handle(http.MethodPost, "/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		if f.registerBody != nil {
			writeJSON(f.t, w, f.registerStatus, f.registerBody)
			return
		}
		w.WriteHeader(f.registerStatus)
	})
	handle(http.MethodGet, "/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		f.userCalls.Add(1)
		f.mu.Lock()
		if len(f.userResponses) == 0 {
			f.mu.Unlock()
			assert.Fail(f.t, "unexpected profile request")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h := f.userResponses[0]
		f.userResponses = f.userResponses[1:]
		f.mu.Unlock()
		h(w, r)
	})
	handle(http.MethodPost, "/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		f.refreshHandler(w, r)
	})
	handle(http.MethodPost, "/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		w.WriteHeader(f.logoutStatus)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string, store tokens.Repository) *HTTPClient {
	t.Helper()
	return NewHTTPClient(baseURL, store, 5*time.Second)
}

// ---- login / register ----

func TestLogin_Success_StoresPairAndDecodesIdentity(t *testing.T) {
	store := setupStore(t)
	userID := uuid.NewString()
	access := mintAccessToken(t, userID, "jane")

	svc := &fakeService{t: t, loginStatus: 200, loginBody: map[string]string{
		"access":  access,
		"refresh": "refresh-1",
	}}
	c := newClient(t, svc.server(t).URL, store)

	user, err := c.Login(context.Background(), "jane", "secret")
	require.NoError(t, err)

	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane", user.FirstName)

	stored, err := store.Access(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, stored)

	refresh, err := store.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestLogin_BadCredentials_UnauthorizedAndNothingStored(t *testing.T) {
	store := setupStore(t)
	svc := &fakeService{t: t, loginStatus: 401, loginBody: map[string][]string{
		"detail": {"No active account found with the given credentials"},
	}}
	c := newClient(t, svc.server(t).URL, store)

	_, err := c.Login(context.Background(), "jane", "wrong")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnauthorized))
	assert.Contains(t, err.Error(), "No active account found")

	access, err := store.Access(context.Background())
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestLogin_ServerDown_NetworkError(t *testing.T) {
	store := setupStore(t)
	svc := &fakeService{t: t, loginStatus: 200}
	srv := svc.server(t)
	srv.Close()
	c := newClient(t, srv.URL, store)

	_, err := c.Login(context.Background(), "jane", "secret")
	require.True(t, errors.Is(err, ErrNetwork))
}

func TestRegister_Success(t *testing.T) {
	svc := &fakeService{t: t, registerStatus: 201}
	c := newClient(t, svc.server(t).URL, setupStore(t))

	require.NoError(t, c.Register(context.Background(), "jane", "secret", "jane@example.com"))
}

func TestRegister_ValidationErrorsFlattened(t *testing.T) {
	svc := &fakeService{t: t, registerStatus: 400, registerBody: map[string][]string{
		"email":    {"Enter a valid email address."},
		"password": {"This password is too short."},
	}}
	c := newClient(t, svc.server(t).URL, setupStore(t))

	err := c.Register(context.Background(), "jane", "x", "nope")
	require.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Enter a valid email address. This password is too short.", err.Error())
}

// ---- current user & reactive refresh ----

func TestCurrentUser_NoStoredToken_NoNetworkCall(t *testing.T) {
	svc := &fakeService{t: t}
	c := newClient(t, svc.server(t).URL, setupStore(t))

	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, svc.userCalls.Load())
}

func TestCurrentUser_Success(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "acc", Refresh: "ref"}))

	svc := &fakeService{t: t}
	svc.userResponses = []func(http.ResponseWriter, *http.Request){
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
			writeJSON(t, w, 200, map[string]string{"id": "42", "username": "jane"})
		},
	}
	c := newClient(t, svc.server(t).URL, store)

	user, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)
}

func TestCurrentUser_401_RefreshesOnceThenRetries(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "stale", Refresh: "ref"}))

	svc := &fakeService{t: t}
	svc.userResponses = []func(http.ResponseWriter, *http.Request){
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(401) },
		func(w http.ResponseWriter, r *http.Request) {
			// retry must carry the refreshed token
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			writeJSON(t, w, 200, map[string]string{"id": "42", "username": "jane"})
		},
	}
	svc.refreshHandler = func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ref", req["refresh"])
		writeJSON(t, w, 200, map[string]string{"access": "fresh", "refresh": "ref-2"})
	}
	c := newClient(t, svc.server(t).URL, store)

	user, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)
	assert.EqualValues(t, 2, svc.userCalls.Load())
	assert.EqualValues(t, 1, svc.refreshCalls.Load())

	access, err := store.Access(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", access)
}

func TestCurrentUser_RetryStill401_SurfacesUnauthorizedNotRefreshError(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "stale", Refresh: "ref"}))

	svc := &fakeService{t: t}
	svc.userResponses = []func(http.ResponseWriter, *http.Request){
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(401) },
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(401) },
	}
	svc.refreshHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, 200, map[string]string{"access": "fresh", "refresh": "ref-2"})
	}
	c := newClient(t, svc.server(t).URL, store)

	_, err := c.CurrentUser(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnauthorized))
	require.False(t, errors.Is(err, ErrRefreshFailed))

	// bounded: exactly one refresh, exactly one retry
	assert.EqualValues(t, 2, svc.userCalls.Load())
	assert.EqualValues(t, 1, svc.refreshCalls.Load())
}

// ---- refresh ----

func TestRefreshTokens_Success_StoresNewPair(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "old", Refresh: "ref"}))

	svc := &fakeService{t: t}
	svc.refreshHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, 200, map[string]string{"access": "new-acc", "refresh": "new-ref"})
	}
	c := newClient(t, svc.server(t).URL, store)

	access, err := c.RefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-acc", access)

	refresh, err := store.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-ref", refresh)
}

func TestRefreshTokens_NoRefreshToken_FailsWithoutNetworkCall(t *testing.T) {
	svc := &fakeService{t: t}
	c := newClient(t, svc.server(t).URL, setupStore(t))

	_, err := c.RefreshTokens(context.Background())
	require.True(t, errors.Is(err, ErrRefreshFailed))
	assert.Zero(t, svc.refreshCalls.Load())
}

func TestRefreshTokens_Rejected_KeepsStoredCredentials(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "old", Refresh: "ref"}))

	svc := &fakeService{t: t}
	svc.refreshHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(401) }
	c := newClient(t, svc.server(t).URL, store)

	_, err := c.RefreshTokens(ctx)
	require.True(t, errors.Is(err, ErrRefreshFailed))

	// the caller decides whether to wipe the session
	access, err := store.Access(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", access)
}

func TestRefreshTokens_ConcurrentCallersShareOneCall(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "old", Refresh: "ref"}))

	started := make(chan struct{})
	release := make(chan struct{})

	svc := &fakeService{t: t}
	svc.refreshHandler = func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeJSON(t, w, 200, map[string]string{"access": "new-acc", "refresh": "new-ref"})
	}
	c := newClient(t, svc.server(t).URL, store)

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.RefreshTokens(ctx)
	}()

	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = c.RefreshTokens(ctx)
	}()

	time.Sleep(50 * time.Millisecond) // let the second caller join the in-flight call
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, "new-acc", results[0])
	assert.Equal(t, "new-acc", results[1])
	assert.EqualValues(t, 1, svc.refreshCalls.Load())
}

// ---- logout ----

func TestLogout_ClearsStore_EvenWhenRemoteFails(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "acc", Refresh: "ref"}))

	svc := &fakeService{t: t, logoutStatus: 500}
	c := newClient(t, svc.server(t).URL, store)

	require.NoError(t, c.Logout(ctx))
	assert.EqualValues(t, 1, svc.logoutCalls.Load())

	access, err := store.Access(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestLogout_ClearsStore_EvenWhenServerUnreachable(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, tokens.Pair{Access: "acc", Refresh: "ref"}))

	svc := &fakeService{t: t}
	srv := svc.server(t)
	srv.Close()
	c := newClient(t, srv.URL, store)

	require.NoError(t, c.Logout(ctx))

	refresh, err := store.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, refresh)
}

func TestLogout_EmptyStore_SkipsRemoteCall(t *testing.T) {
	svc := &fakeService{t: t, logoutStatus: 200}
	c := newClient(t, svc.server(t).URL, setupStore(t))

	require.NoError(t, c.Logout(context.Background()))
	assert.Zero(t, svc.logoutCalls.Load())
}
