package handler // handler contains the HTTP adapters

import (
	"net/http" // status codes
	"strings"  // trimming
	"time"     // timeouts

	"github.com/labstack/echo/v4" // web framework

	"github.com/iliyamo/habit-tracker/internal/model"   // response rows
	"github.com/iliyamo/habit-tracker/internal/service" // habit rules
)

// HabitHandler serves the /v1/habits resource.
type HabitHandler struct {
	Habits  *service.HabitService
	Timeout time.Duration
}

// NewHabitHandler constructs a HabitHandler and panics if the service is nil.
func NewHabitHandler(habits *service.HabitService, timeout time.Duration) *HabitHandler {
	if habits == nil {
		panic("nil service passed to NewHabitHandler")
	}
	return &HabitHandler{Habits: habits, Timeout: timeout}
}

// summaryItem is a SummaryRow with its derived completion fields.
type summaryItem struct {
	model.SummaryRow
	Completed bool `json:"completed"`
	Progress  int  `json:"progress"`
}

// dailyItem is a DailyLogRow with its derived completion fields.
type dailyItem struct {
	model.DailyLogRow
	Completed bool `json:"completed"`
	Progress  int  `json:"progress"`
}

// List handles GET /v1/habits?user_id= and returns the user's habits newest first.
func (h *HabitHandler) List(c echo.Context) error {
	userID, ok := parseID(c.QueryParam("user_id"))
	if !ok {
		return badRequest(c, "user_id is required")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	items, err := h.Habits.ListHabits(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Create handles POST /v1/habits.
func (h *HabitHandler) Create(c echo.Context) error {
	var body struct {
		UserID    uint64 `json:"user_id"`
		Name      string `json:"name"`
		GoalType  string `json:"goal_type"`
		DailyGoal *int   `json:"daily_goal"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.UserID == 0 || strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.GoalType) == "" {
		return badRequest(c, "user_id, name and goal_type are required")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	created, err := h.Habits.CreateHabit(ctx, service.CreateHabitInput{
		UserID:    body.UserID,
		Name:      body.Name,
		GoalType:  body.GoalType,
		DailyGoal: body.DailyGoal,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Delete handles DELETE /v1/habits/:id.  A missing habit is reported in
// the body, not as 404.
func (h *HabitHandler) Delete(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	deleted, err := h.Habits.DeleteHabitByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

// DeleteByName handles DELETE /v1/habits?user_id=&name=.
func (h *HabitHandler) DeleteByName(c echo.Context) error {
	userID, ok := parseID(c.QueryParam("user_id"))
	name := strings.TrimSpace(c.QueryParam("name"))
	if !ok || name == "" {
		return badRequest(c, "user_id and name are required")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	deleted, err := h.Habits.DeleteHabitByName(ctx, userID, name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

// Log handles POST /v1/habits/:id/logs.  The body is optional: date
// defaults to today and amount to 1.
func (h *HabitHandler) Log(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return badRequest(c, "invalid habit id")
	}
	var body struct {
		Date   string `json:"date"`
		Amount *int   `json:"amount"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	amount := 1
	if body.Amount != nil {
		amount = *body.Amount
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	date, err := h.Habits.LogHabit(ctx, id, body.Date, amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "date": date})
}

// Summary handles GET /v1/habits/summary?user_id=&from=&to=.
func (h *HabitHandler) Summary(c echo.Context) error {
	userID, ok := parseID(c.QueryParam("user_id"))
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if !ok || from == "" || to == "" {
		return badRequest(c, "user_id, from and to are required")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	rows, err := h.Habits.Summarize(ctx, userID, from, to)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]summaryItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, summaryItem{SummaryRow: r, Completed: r.Completed(), Progress: r.Progress()})
	}
	return c.JSON(http.StatusOK, out)
}

// ActivityDates handles GET /v1/habits/logs/by-date?user_id=&from=&to=
// and returns the sorted dates with any activity, for calendar markers.
func (h *HabitHandler) ActivityDates(c echo.Context) error {
	userID, ok := parseID(c.QueryParam("user_id"))
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if !ok || from == "" || to == "" {
		return badRequest(c, "user_id, from and to are required")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	out, err := h.Habits.ActivityDates(ctx, userID, from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DailyLog handles GET /v1/habits/logs/:date?user_id=.
func (h *HabitHandler) DailyLog(c echo.Context) error {
	userID, ok := parseID(c.QueryParam("user_id"))
	if !ok {
		return badRequest(c, "user_id is required")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	rows, err := h.Habits.DailyLog(ctx, userID, c.Param("date"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dailyItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, dailyItem{
			DailyLogRow: r,
			Completed:   model.IsComplete(r.GoalType, r.DailyGoal, r.Amount),
			Progress:    model.ProgressPercent(r.GoalType, r.DailyGoal, r.Amount),
		})
	}
	return c.JSON(http.StatusOK, out)
}
