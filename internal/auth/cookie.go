package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// SessionCookieName is the cookie carrying the signed session id.
	SessionCookieName = "_appSession"
	// SessionCookieMaxAge bounds how long a browser keeps the cookie,
	// independently of the session record's own expiry.
	SessionCookieMaxAge = 7 * 24 * time.Hour
)

// ErrInvalidCookie is returned for cookies that fail signature or expiry checks.
var ErrInvalidCookie = errors.New("invalid session cookie")

// cookieClaims binds the session id to the cookie's issue time.
type cookieClaims struct {
	jwt.RegisteredClaims
}

// CookieCodec signs session ids into cookie values. The first secret signs;
// every secret is accepted when verifying so secrets can be rotated.
type CookieCodec struct {
	secrets [][]byte
	secure  bool
	now     func() time.Time
}

// NewCookieCodec creates a codec. secure sets the cookie Secure attribute.
func NewCookieCodec(secrets []string, secure bool) (*CookieCodec, error) {
	if len(secrets) == 0 {
		return nil, errors.New("at least one session secret is required")
	}
	keys := make([][]byte, 0, len(secrets))
	for _, s := range secrets {
		keys = append(keys, []byte(s))
	}
	return &CookieCodec{secrets: keys, secure: secure, now: time.Now}, nil
}

// Encode signs sessionID into a cookie value valid for SessionCookieMaxAge.
func (c *CookieCodec) Encode(sessionID string) (string, error) {
	now := c.now()
	claims := &cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionCookieMaxAge)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secrets[0])
}

// Decode verifies value and returns the session id it carries.
func (c *CookieCodec) Decode(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidCookie
	}
	for _, secret := range c.secrets {
		key := secret
		claims := &cookieClaims{}
		token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		})
		if err != nil || !token.Valid || claims.ID == "" {
			continue
		}
		return claims.ID, nil
	}
	return "", ErrInvalidCookie
}

// Cookie builds the Set-Cookie value for a signed session id.
func (c *CookieCodec) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie builds a cookie that makes the browser drop the session.
func (c *CookieCodec) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
