package handler // handler contains the HTTP adapters

import (
	"context"  // request scoped deadlines
	"errors"   // errors.Is against service sentinels
	"net/http" // status codes
	"strconv"  // numeric identifiers
	"strings"  // trimming
	"time"     // timeouts

	"github.com/labstack/echo/v4" // web framework

	"github.com/iliyamo/habit-tracker/internal/service" // error taxonomy
)

// defaultTimeout bounds store work when a handler was built without one.
const defaultTimeout = 5 * time.Second

// requestCtx derives the store deadline for a request.
func requestCtx(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// parseID reads a positive uint64 path or query value.
func parseID(raw string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// badRequest writes a 400 with msg.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// writeError maps the service error taxonomy onto HTTP statuses.  Store
// failures get a generic body; the cause is already logged.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
	case errors.Is(err, service.ErrHabitNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "habit not found"})
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
