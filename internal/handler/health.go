package handler // handler contains the HTTP adapters

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // web framework
)

// Health is a liveness probe for load balancers and monitors.  It returns
// a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
