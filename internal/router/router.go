package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/handler"
	"sessionauth/internal/logging"
	authmw "sessionauth/internal/middleware"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	authn *authmw.Authenticator,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) {
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(e)

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logging.Info()
			if v.Error != nil {
				ev = logging.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public routes
	e.GET(handler.LoginPath, authHandler.LoginPage)
	e.POST(handler.LoginPath, authHandler.Login)
	e.GET("/signup", authHandler.SignupPage)
	e.POST("/signup", authHandler.Signup)
	e.POST("/logout", authHandler.Logout)

	// Secured routes (require a session cookie)
	e.GET(handler.HomePath, userHandler.Index, authn.RequireAuth(handler.LoginPath))
}

// errorHandler keeps internal error details out of responses.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if he, ok := err.(*echo.HTTPError); ok {
			e.DefaultHTTPErrorHandler(he, c)
			return
		}

		logging.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		httpErr := apperrors.MapErrorToHTTP(err)
		if err := c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse()); err != nil {
			logging.Error().Err(err).Msg("failed to write error response")
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
