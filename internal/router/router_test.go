package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sessionauth/internal/auth"
	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/handler"
	authmw "sessionauth/internal/middleware"
	"sessionauth/internal/model"
	"sessionauth/internal/repository"
	"sessionauth/internal/repository/memory"
	"sessionauth/internal/router"
	"sessionauth/internal/service"
	"sessionauth/internal/session"
)

type app struct {
	e        *echo.Echo
	users    *memory.UserRepository
	sessions *memory.SessionRepository
}

func newApp(t *testing.T) *app {
	t.Helper()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	return &app{e: build(t, users, sessions), users: users, sessions: sessions}
}

func build(t *testing.T, users repository.UserRepository, sessions repository.SessionRepository) *echo.Echo {
	t.Helper()

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	credentials, err := auth.NewCredentialsStrategy(users, hasher)
	require.NoError(t, err)
	codec, err := auth.NewCookieCodec([]string{"test-secret"}, false)
	require.NoError(t, err)

	authn := authmw.New(authmw.Config{
		Store:      session.NewStore(sessions),
		Codec:      codec,
		Strategies: auth.NewRegistry(credentials, auth.SignupStrategy{}),
		TTL:        time.Hour,
	})

	e := echo.New()
	router.Register(e,
		authn,
		handler.NewAuthHandler(service.NewAuthService(users, hasher), authn),
		handler.NewUserHandler(),
	)
	return e
}

func (a *app) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.do(req, cookies...)
}

func (a *app) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return a.do(req)
}

func (a *app) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (a *app) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func credentials(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func findCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == auth.SessionCookieName {
			return ck
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSignupLoginAndIndex(t *testing.T) {
	a := newApp(t)

	rec := a.postForm("/signup", credentials("a@b.com", "password123"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	require.NotNil(t, findCookie(rec))

	rec = a.postForm("/login", credentials("a@b.com", "password123"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	ck := findCookie(rec)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, 604800, ck.MaxAge)

	rec = a.get("/", ck)
	require.Equal(t, http.StatusOK, rec.Code)
	var user session.PublicData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.NotZero(t, user.UserID)
	assert.Equal(t, "USER", user.Role)
}

func TestLogin_NormalizesEmail(t *testing.T) {
	a := newApp(t)
	require.Equal(t, http.StatusFound, a.postForm("/signup", credentials("user@x.com", "password123")).Code)

	rec := a.postJSON("/login", `{"email":" USER@X.com ","password":"password123"}`)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.NotNil(t, findCookie(rec))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	a := newApp(t)
	require.Equal(t, http.StatusFound, a.postForm("/signup", credentials("a@b.com", "password123")).Code)

	wrongPassword := a.postForm("/login", credentials("a@b.com", "password124"))
	unknownEmail := a.postForm("/login", credentials("nobody@b.com", "password123"))

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail} {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, findCookie(rec))
		body := decode(t, rec)
		assert.Equal(t, "INVALID_CREDENTIALS", body.Code)
	}
	assert.Equal(t, decode(t, wrongPassword).Message, decode(t, unknownEmail).Message)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	a := newApp(t)

	require.Equal(t, http.StatusFound, a.postForm("/signup", credentials("dup@x.com", "password123")).Code)
	rec := a.postForm("/signup", credentials("dup@x.com", "password123"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, findCookie(rec))
	body := decode(t, rec)
	assert.Equal(t, "DUPLICATE_EMAIL", body.Code)
	assert.Equal(t, "This email is already registered!", body.Message)
	assert.Equal(t, 1, a.users.Count())
	assert.Equal(t, 1, a.sessions.Len())
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		fields map[string]string
	}{
		{
			name:   "short password",
			form:   credentials("a@b.com", "short"),
			fields: map[string]string{"password": "Password must contain at least 8 characters"},
		},
		{
			name:   "long password",
			form:   credentials("a@b.com", strings.Repeat("x", 101)),
			fields: map[string]string{"password": "Password must not exceed 100 characters"},
		},
		{
			name:   "bad email",
			form:   credentials("not-an-email", "password123"),
			fields: map[string]string{"email": "Invalid email"},
		},
		{
			name: "empty form",
			form: url.Values{},
			fields: map[string]string{
				"email":    "Invalid email",
				"password": "Password must contain at least 8 characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t)
			rec := a.postForm("/signup", tt.form)

			assert.Equal(t, http.StatusOK, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			assert.Equal(t, tt.fields, body.FieldErrors)
			assert.Equal(t, 0, a.users.Count())
		})
	}
}

func TestIndex_RequiresSession(t *testing.T) {
	a := newApp(t)

	rec := a.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = a.get("/", &http.Cookie{Name: auth.SessionCookieName, Value: "forged"})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestFormPages_RedirectWhenAuthenticated(t *testing.T) {
	a := newApp(t)
	ck := findCookie(a.postForm("/signup", credentials("a@b.com", "password123")))
	require.NotNil(t, ck)

	for _, path := range []string{"/login", "/signup"} {
		rec := a.get(path)
		assert.Equal(t, http.StatusOK, rec.Code, path)

		rec = a.get(path, ck)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation), path)
	}
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	ck := findCookie(a.postForm("/signup", credentials("a@b.com", "password123")))
	require.NotNil(t, ck)

	rec := a.postForm("/logout", url.Values{}, ck)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	cleared := findCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, 0, a.sessions.Len())

	rec = a.get("/", ck)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = a.postForm("/logout", url.Values{}, ck)
	assert.Equal(t, http.StatusFound, rec.Code)
}

// brokenUsers fails every lookup, standing in for an unreachable database.
type brokenUsers struct{}

func (brokenUsers) Create(ctx context.Context, user *model.User) error {
	return errors.New("dial tcp: connection refused")
}

func (brokenUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (brokenUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestStorageFailureIsHidden(t *testing.T) {
	a := &app{e: build(t, brokenUsers{}, memory.NewSessionRepository())}

	for _, path := range []string{"/login", "/signup"} {
		rec := a.postForm(path, credentials("a@b.com", "password123"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		body := decode(t, rec)
		assert.Equal(t, apperrors.UnknownErrorMessage, body.Message)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	}
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec := a.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
