package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"sessionauth/internal/auth"
	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/logging"
	"sessionauth/internal/session"
)

// ContextKey is where RequireAuth stores the *Current session.
const ContextKey = "session"

// RedirectOutcome is a redirect chosen by an authentication policy. It is a
// value, not an error, so handlers that map errors never swallow it.
type RedirectOutcome struct {
	Location string
	Status   int
}

// Apply writes the redirect to the response.
func (r *RedirectOutcome) Apply(c echo.Context) error {
	return c.Redirect(r.Status, r.Location)
}

// Options selects what happens on success or failure. An empty location
// means the caller handles that outcome itself.
type Options struct {
	SuccessRedirect string
	FailureRedirect string
	// Context is passed to the strategy as already validated input.
	Context *auth.Input
}

// Result is the outcome of IsAuthenticated or Authenticate. User is nil when
// the request is unauthenticated. Redirect is set when a policy fired.
type Result struct {
	User     *session.PublicData
	Redirect *RedirectOutcome
}

// Current is the session attached to a request.
type Current struct {
	ID   string
	Data session.Data
}

// SessionStore is the subset of session.Store the authenticator needs.
type SessionStore interface {
	Create(ctx context.Context, data session.Data, expiresAt time.Time) (string, error)
	Read(ctx context.Context, id string) (*session.Data, error)
	Update(ctx context.Context, id string, data session.Data, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// Authenticator moves sessions between the cookie and the session store.
type Authenticator struct {
	store      SessionStore
	codec      *auth.CookieCodec
	strategies *auth.Registry
	ttl        time.Duration
	rolling    bool
	now        func() time.Time
}

// Config configures an Authenticator.
type Config struct {
	Store      SessionStore
	Codec      *auth.CookieCodec
	Strategies *auth.Registry
	// TTL is the lifetime of a session record.
	TTL time.Duration
	// Rolling slides the record expiry on every authenticated request.
	Rolling bool
}

// New creates an Authenticator.
func New(cfg Config) *Authenticator {
	return &Authenticator{
		store:      cfg.Store,
		codec:      cfg.Codec,
		strategies: cfg.Strategies,
		ttl:        cfg.TTL,
		rolling:    cfg.Rolling,
		now:        time.Now,
	}
}

func redirect(location string) *RedirectOutcome {
	return &RedirectOutcome{Location: location, Status: http.StatusFound}
}

// current resolves the request cookie to a session. A missing, forged or
// expired cookie yields nil without error.
func (a *Authenticator) current(c echo.Context) (*Current, error) {
	cookie, err := c.Cookie(auth.SessionCookieName)
	if err != nil {
		return nil, nil
	}
	return a.resolve(c.Request().Context(), cookie.Value)
}

func (a *Authenticator) resolve(ctx context.Context, value string) (*Current, error) {
	id, err := a.codec.Decode(value)
	if err != nil {
		return nil, nil
	}
	data, err := a.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return &Current{ID: id, Data: *data}, nil
}

// IsAuthenticated reports the session user. SuccessRedirect fires when a
// session exists, FailureRedirect when it does not.
func (a *Authenticator) IsAuthenticated(c echo.Context, opts Options) (*Result, error) {
	cur, err := a.current(c)
	if err != nil {
		return nil, err
	}

	if cur == nil {
		res := &Result{}
		if opts.FailureRedirect != "" {
			res.Redirect = redirect(opts.FailureRedirect)
		}
		return res, nil
	}

	res := &Result{User: cur.Data.User}
	if opts.SuccessRedirect != "" {
		res.Redirect = redirect(opts.SuccessRedirect)
	}
	return res, nil
}

// Authenticate runs the named strategy on opts.Context. On success it creates
// a session, sets the cookie and applies SuccessRedirect. Expected strategy
// failures are returned as errors unless FailureRedirect is set.
func (a *Authenticator) Authenticate(c echo.Context, strategyName string, opts Options) (*Result, error) {
	strategy, err := a.strategies.Get(strategyName)
	if err != nil {
		return nil, err
	}

	var in auth.Input
	if opts.Context != nil {
		in = *opts.Context
	}

	ctx := c.Request().Context()
	user, err := strategy.Authenticate(ctx, in)
	if err != nil {
		if opts.FailureRedirect != "" && apperrors.IsExpected(err) {
			return &Result{Redirect: redirect(opts.FailureRedirect)}, nil
		}
		return nil, err
	}

	// Drop any session the client already held so ids are never reused
	// across logins.
	if prev, err := a.current(c); err == nil && prev != nil {
		if err := a.store.Delete(ctx, prev.ID); err != nil {
			logging.Warn().Err(err).Str("session_id", prev.ID).Msg("failed to delete replaced session")
		}
	}

	data := session.Data{User: user, Strategy: strategy.Name()}
	id, err := a.store.Create(ctx, data, a.now().Add(a.ttl))
	if err != nil {
		return nil, err
	}
	if err := a.setCookie(c, id); err != nil {
		return nil, err
	}

	logging.Info().Uint("user_id", user.UserID).Str("strategy", strategy.Name()).Msg("session created")

	res := &Result{User: user}
	if opts.SuccessRedirect != "" {
		res.Redirect = redirect(opts.SuccessRedirect)
	}
	return res, nil
}

// Commit persists cur with a fresh expiry and re-issues the cookie.
func (a *Authenticator) Commit(c echo.Context, cur *Current) error {
	if err := a.store.Update(c.Request().Context(), cur.ID, cur.Data, a.now().Add(a.ttl)); err != nil {
		return err
	}
	return a.setCookie(c, cur.ID)
}

// Logout deletes the current session, clears the cookie and redirects.
func (a *Authenticator) Logout(c echo.Context, location string) (*RedirectOutcome, error) {
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
		if id, err := a.codec.Decode(cookie.Value); err == nil {
			if err := a.store.Delete(c.Request().Context(), id); err != nil {
				return nil, err
			}
		}
	}
	c.SetCookie(a.codec.ExpiredCookie())
	return redirect(location), nil
}

func (a *Authenticator) setCookie(c echo.Context, id string) error {
	value, err := a.codec.Encode(id)
	if err != nil {
		return err
	}
	c.SetCookie(a.codec.Cookie(value))
	return nil
}

// RequireAuth rejects requests without a valid session by redirecting to
// failureRedirect. Storage failures are passed to the echo error handler.
func (a *Authenticator) RequireAuth(failureRedirect string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.SessionCookieName,
		ContextKey:  ContextKey,
		ParseTokenFunc: func(c echo.Context, value string) (interface{}, error) {
			cur, err := a.resolve(c.Request().Context(), value)
			if err != nil {
				return nil, err
			}
			if cur == nil {
				return nil, auth.ErrInvalidCookie
			}
			return cur, nil
		},
		SuccessHandler: func(c echo.Context) {
			if !a.rolling {
				return
			}
			cur, ok := c.Get(ContextKey).(*Current)
			if !ok {
				return
			}
			if err := a.Commit(c, cur); err != nil {
				logging.Warn().Err(err).Str("session_id", cur.ID).Msg("failed to refresh session")
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var serr *apperrors.StorageError
			if errors.As(err, &serr) {
				return err
			}
			return redirect(failureRedirect).Apply(c)
		},
	})
}

// UserFromContext returns the session user stored by RequireAuth.
func UserFromContext(c echo.Context) *session.PublicData {
	cur, ok := c.Get(ContextKey).(*Current)
	if !ok || cur == nil {
		return nil
	}
	return cur.Data.User
}
