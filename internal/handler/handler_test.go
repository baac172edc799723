package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brunogervazio/ezcoins-web/internal/credential"
	"github.com/brunogervazio/ezcoins-web/internal/guard"
	"github.com/brunogervazio/ezcoins-web/internal/remote"
	"github.com/brunogervazio/ezcoins-web/internal/router"
	"github.com/brunogervazio/ezcoins-web/internal/session"
	"github.com/brunogervazio/ezcoins-web/internal/view"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Login(ctx context.Context, input remote.LoginInput) (*remote.AuthPayload, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.AuthPayload), args.Error(1)
}

func (m *MockRemote) GetUser(ctx context.Context, id string) (*session.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Snapshot), args.Error(1)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	remote *MockRemote
	creds  *credential.Store
	engine *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithGuardReader(t, nil)
}

// newTestEnvWithGuardReader lets the test put a reader between the guard and
// the credential store.
func newTestEnvWithGuardReader(t *testing.T, wrap func(*credential.Store) guard.CredentialReader) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m := new(MockRemote)
	creds, err := credential.Open(context.Background(), credential.NewMemoryBackend(), logger)
	require.NoError(t, err)
	cache, err := session.NewCache(m, 8, logger)
	require.NoError(t, err)
	var reader guard.CredentialReader = creds
	if wrap != nil {
		reader = wrap(creds)
	}
	g := guard.New(reader, "/login", "/home")
	r := router.New(g, router.DefaultRoutes("/login", "/home"), logger)

	ctrl := view.NewController(m, creds, cache, r, "/login", "/home", logger)
	login := view.NewLoginView(ctrl)
	header := view.NewHeader(ctrl)

	pages := NewPageHandler(ctrl, login, header)
	sessions := NewSessionHandler(ctrl, login, header)

	e := gin.New()
	for _, p := range []string{"/", "/login", "/home", "/history", "/donate"} {
		e.GET(p, pages.Show)
	}
	e.POST("/login", sessions.Login)
	e.POST("/logout", sessions.Logout)
	e.POST("/session/refresh", sessions.Refresh)
	e.POST("/menu/:menu/toggle", pages.ToggleMenu)
	e.POST("/menu/close", pages.CloseMenus)
	e.POST("/nav/:command", pages.Nav)

	return &testEnv{remote: m, creds: creds, engine: e}
}

func (e *testEnv) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) signIn(t *testing.T, toOffer int64) {
	t.Helper()
	e.remote.On("Login", mock.Anything, remote.LoginInput{Email: "a@b.com", Password: "x"}).
		Return(&remote.AuthPayload{Token: "tok1", UserID: "u1"}, nil).Once()
	e.remote.On("GetUser", mock.Anything, "u1").Return(&session.Snapshot{
		Profile: session.Profile{ID: "u1", Name: "Ana"},
		Wallet:  session.Wallet{ToOffer: toOffer},
	}, nil).Once()

	w := e.do(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com","password":"x"}`), "application/json")
	require.Equal(t, http.StatusSeeOther, w.Code)
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(pinger{})
	e := gin.New()
	e.GET("/healthz", h.Healthz)

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"ready", nil, http.StatusOK, `"status":"ready"`},
		{"backend down", errors.New("dial tcp: refused"), http.StatusServiceUnavailable, `"status":"not_ready"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := gin.New()
			e.GET("/readyz", NewHealthHandler(pinger{err: tt.err}).Readyz)

			w := httptest.NewRecorder()
			e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestPage_AnonymousRedirects(t *testing.T) {
	env := newTestEnv(t)

	for _, p := range []string{"/", "/home", "/history", "/donate"} {
		w := env.do(http.MethodGet, p, nil, "")
		assert.Equal(t, http.StatusFound, w.Code, p)
		assert.Equal(t, "/login", w.Header().Get("Location"), p)
	}

	w := env.do(http.MethodGet, "/login", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var page PageModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "/login", page.Path)
	assert.Nil(t, page.Header)
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, 42)

	creds, ok := env.creds.Read()
	require.True(t, ok)
	assert.Equal(t, "tok1", creds.Token)

	w := env.do(http.MethodGet, "/home", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var page PageModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.NotNil(t, page.Header)
	assert.Equal(t, "EZȻ 42", page.Header.Balance)
	assert.Equal(t, "Ana", page.Header.Snapshot.Profile.Name)

	w = env.do(http.MethodGet, "/login", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
}

func TestLogin_Form(t *testing.T) {
	env := newTestEnv(t)
	env.remote.On("Login", mock.Anything, remote.LoginInput{Email: "a@b.com", Password: "x"}).
		Return(&remote.AuthPayload{Token: "tok1", UserID: "u1"}, nil).Once()
	env.remote.On("GetUser", mock.Anything, "u1").Return(nil, remote.ErrRemoteUnavailable).Once()

	form := url.Values{"email": {"a@b.com"}, "password": {"x"}}
	w := env.do(http.MethodPost, "/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
}

func TestLogin_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com"}`), "application/json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EZC_LOGIN_INVALID_INPUT")
	env.remote.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		ezc  string
	}{
		{"unauthorized", remote.ErrUnauthorized, http.StatusUnauthorized, "EZC_UNAUTHORIZED"},
		{"unavailable", remote.ErrRemoteUnavailable, http.StatusServiceUnavailable, "EZC_REMOTE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.remote.On("Login", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := env.do(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com","password":"bad"}`), "application/json")

			assert.Equal(t, tt.code, w.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.ezc, body.Error)
			assert.Equal(t, view.Message(tt.err), body.Message)

			_, ok := env.creds.Read()
			assert.False(t, ok)

			w = env.do(http.MethodGet, "/login", nil, "")
			var page PageModel
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
			assert.Equal(t, view.Message(tt.err), page.LoginError)
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, 1)

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/logout", nil, "")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	}

	_, ok := env.creds.Read()
	assert.False(t, ok)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/session/refresh", nil, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	env.signIn(t, 1)
	env.remote.On("GetUser", mock.Anything, "u1").Return(&session.Snapshot{
		Profile: session.Profile{ID: "u1"},
		Wallet:  session.Wallet{ToOffer: 7},
	}, nil).Once()

	w = env.do(http.MethodPost, "/session/refresh", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":"EZȻ 7"`)

	env.remote.On("GetUser", mock.Anything, "u1").Return(nil, remote.ErrRemoteUnavailable).Once()
	w = env.do(http.MethodPost, "/session/refresh", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	env.remote.On("GetUser", mock.Anything, "u1").Return(nil, remote.ErrUnauthorized).Once()
	w = env.do(http.MethodPost, "/session/refresh", nil, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	_, ok := env.creds.Read()
	assert.False(t, ok)
}

func TestMenus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/menu/account/toggle", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"menus":{"account":true,"mobile":false}}`, w.Body.String())

	w = env.do(http.MethodPost, "/menu/close", nil, "")
	assert.JSONEq(t, `{"menus":{"account":false,"mobile":false}}`, w.Body.String())

	w = env.do(http.MethodPost, "/menu/settings/toggle", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNav(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, 1)

	w := env.do(http.MethodPost, "/nav/history", nil, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/history", w.Header().Get("Location"))

	w = env.do(http.MethodPost, "/nav/settings", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "EZC_NOT_FOUND")
}

// logoutAfterRead clears the store right after the next read it serves, as a
// logout landing between the guard decision and the page render would.
type logoutAfterRead struct {
	store *credential.Store
	armed bool
}

func (l *logoutAfterRead) Read() (credential.Credentials, bool) {
	creds, ok := l.store.Read()
	if l.armed {
		l.armed = false
		l.store.Clear(context.Background())
	}
	return creds, ok
}

func TestPage_LogoutDuringRenderRedirects(t *testing.T) {
	var reader *logoutAfterRead
	env := newTestEnvWithGuardReader(t, func(s *credential.Store) guard.CredentialReader {
		reader = &logoutAfterRead{store: s}
		return reader
	})
	require.NoError(t, env.creds.Write(context.Background(), "tok1", "u1"))

	reader.armed = true
	w := env.do(http.MethodGet, "/home", nil, "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestPage_AuthenticatedPageAlwaysHasHeader(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.creds.Write(context.Background(), "tok1", "u1"))

	w := env.do(http.MethodGet, "/home", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var page PageModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.NotNil(t, page.Header)
	assert.Equal(t, "EZȻ -", page.Header.Balance)
}
