package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"sessionauth/internal/middleware"
)

// UserHandler serves pages for authenticated users.
type UserHandler struct{}

// NewUserHandler creates a handler layer.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Index godoc
// @Summary Current session user
// @Tags users
// @Produce json
// @Success 200 {object} session.PublicData
// @Success 302 "Not authenticated, redirects to /login"
// @Router / [get]
func (h *UserHandler) Index(c echo.Context) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return c.Redirect(http.StatusFound, LoginPath)
	}
	return c.JSON(http.StatusOK, user)
}
