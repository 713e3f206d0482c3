package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"sessionauth/internal/auth"
	"sessionauth/internal/errors"
	"sessionauth/internal/logging"
	"sessionauth/internal/middleware"
	"sessionauth/internal/model"
	"sessionauth/internal/service"
	"sessionauth/internal/session"
)

// Redirect targets shared by the auth pages.
const (
	HomePath  = "/"
	LoginPath = "/login"
)

// AuthHandler handles the login, signup and logout endpoints.
type AuthHandler struct {
	authService service.AuthService
	authn       *middleware.Authenticator
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, authn *middleware.Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService, authn: authn}
}

// CredentialsRequest is the login and signup form.
type CredentialsRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=100"`
}

// PageResponse describes a form page for clients that render it themselves.
type PageResponse struct {
	Page   string   `json:"page"`
	Fields []string `json:"fields"`
}

var fieldMessages = map[string]map[string]string{
	"email": {
		"required": "Invalid email",
		"email":    "Invalid email",
	},
	"password": {
		"required": "Password must contain at least 8 characters",
		"min":      "Password must contain at least 8 characters",
		"max":      "Password must not exceed 100 characters",
	},
}

// bindCredentials reads the form, normalizes the email and validates it.
func bindCredentials(c echo.Context) (*CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return nil, &errors.ValidationError{Fields: map[string]string{"form": "Invalid request body"}}
	}
	req.Email = model.NormalizeEmail(req.Email)

	if err := c.Validate(&req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			msg, ok := fieldMessages[field][fe.Tag()]
			if !ok {
				msg = "Invalid value"
			}
			if _, seen := fields[field]; !seen {
				fields[field] = msg
			}
		}
		return nil, &errors.ValidationError{Fields: fields}
	}
	return &req, nil
}

// respondError renders err for the form. Unexpected errors are logged and
// replaced with a generic message.
func respondError(c echo.Context, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		logging.Error().Err(err).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("request failed")
	}
	return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func (h *AuthHandler) page(c echo.Context, name string) error {
	res, err := h.authn.IsAuthenticated(c, middleware.Options{SuccessRedirect: HomePath})
	if err != nil {
		return respondError(c, err)
	}
	if res.Redirect != nil {
		return res.Redirect.Apply(c)
	}
	return c.JSON(http.StatusOK, PageResponse{Page: name, Fields: []string{"email", "password"}})
}

// LoginPage godoc
// @Summary Login form
// @Tags auth
// @Produce json
// @Success 200 {object} PageResponse
// @Success 302 "Already authenticated, redirects to /"
// @Router /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return h.page(c, "login")
}

// SignupPage godoc
// @Summary Signup form
// @Tags auth
// @Produce json
// @Success 200 {object} PageResponse
// @Success 302 "Already authenticated, redirects to /"
// @Router /signup [get]
func (h *AuthHandler) SignupPage(c echo.Context) error {
	return h.page(c, "signup")
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body CredentialsRequest true "Login credentials"
// @Success 302 "Session cookie set, redirects to /"
// @Success 200 {object} errors.ErrorResponse "Validation or credential error"
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return respondError(c, err)
	}

	res, err := h.authn.Authenticate(c, auth.StrategyCredentials, middleware.Options{
		SuccessRedirect: HomePath,
		Context:         &auth.Input{Email: req.Email, Password: req.Password},
	})
	if err != nil {
		return respondError(c, err)
	}
	return res.Redirect.Apply(c)
}

// Signup godoc
// @Summary Create an account and log in
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body CredentialsRequest true "Signup data"
// @Success 302 "Account created, session cookie set, redirects to /"
// @Success 200 {object} errors.ErrorResponse "Validation or duplicate email error"
// @Failure 500 {object} errors.ErrorResponse
// @Router /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.Signup(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	res, err := h.authn.Authenticate(c, auth.StrategySignup, middleware.Options{
		SuccessRedirect: HomePath,
		Context: &auth.Input{User: &session.PublicData{
			Username: user.Name,
			UserID:   user.ID,
			Role:     string(user.Role),
		}},
	})
	if err != nil {
		return respondError(c, err)
	}
	return res.Redirect.Apply(c)
}

// Logout godoc
// @Summary Logout
// @Tags auth
// @Success 302 "Session cleared, redirects to /login"
// @Failure 500 {object} errors.ErrorResponse
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	out, err := h.authn.Logout(c, LoginPath)
	if err != nil {
		return respondError(c, err)
	}
	return out.Apply(c)
}
