package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/habit-tracker/internal/handler" // HTTP adapters
)

// RegisterRoutes registers the health check outside the rate limiter and
// every API route behind it.  limiter may be nil.
func RegisterRoutes(e *echo.Echo, habits *handler.HabitHandler, users *handler.UserHandler, voice *handler.VoiceHandler, limiter echo.MiddlewareFunc) {
	// Liveness probe for load balancers; never rate limited.
	e.GET("/healthz", handler.Health)

	var mws []echo.MiddlewareFunc
	if limiter != nil {
		mws = append(mws, limiter)
	}

	v1 := e.Group("/v1", mws...)

	v1.POST("/users", users.Ensure)
	v1.GET("/users/:id/streak", users.Streak)

	v1.GET("/habits", habits.List)
	v1.POST("/habits", habits.Create)
	// Delete by name takes user_id and name as query parameters.
	v1.DELETE("/habits", habits.DeleteByName)
	v1.DELETE("/habits/:id", habits.Delete)
	v1.POST("/habits/:id/logs", habits.Log)
	// Static segments win over :id, so these do not collide with the routes above.
	v1.GET("/habits/summary", habits.Summary)
	v1.GET("/habits/logs/by-date", habits.ActivityDates)
	v1.GET("/habits/logs/:date", habits.DailyLog)

	// The voice assistant posts its request envelope here.
	e.POST("/alexa", voice.Handle, mws...)
}
