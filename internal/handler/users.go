package handler // handler contains the HTTP adapters

import (
	"net/http" // status codes
	"strings"  // trimming
	"time"     // timeouts

	"github.com/labstack/echo/v4" // web framework

	"github.com/iliyamo/habit-tracker/internal/service" // user directory
)

// UserHandler serves the /v1/users resource.
type UserHandler struct {
	Users   *service.UserService
	Timeout time.Duration
}

// NewUserHandler constructs a UserHandler and panics if the service is nil.
func NewUserHandler(users *service.UserService, timeout time.Duration) *UserHandler {
	if users == nil {
		panic("nil service passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Timeout: timeout}
}

// Ensure handles POST /v1/users.  It is idempotent on the external
// identity; alexa_user_id is accepted as an alias.
func (h *UserHandler) Ensure(c echo.Context) error {
	var body struct {
		ExternalIdentity string `json:"external_identity"`
		AlexaUserID      string `json:"alexa_user_id"`
		DisplayName      string `json:"display_name"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ext := strings.TrimSpace(body.ExternalIdentity)
	if ext == "" {
		ext = strings.TrimSpace(body.AlexaUserID)
	}
	if ext == "" {
		return badRequest(c, "external_identity is required")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	u, err := h.Users.EnsureUser(ctx, ext, body.DisplayName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Streak handles GET /v1/users/:id/streak.
func (h *UserHandler) Streak(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	n, err := h.Users.CurrentStreak(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"streak": n})
}
