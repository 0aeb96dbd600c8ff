package handler // handler contains the HTTP adapters

import (
	"context"  // request scoped deadlines
	"fmt"      // speech formatting
	"net/http" // status codes
	"strconv"  // slot numbers
	"strings"  // slot normalisation
	"time"     // timeouts

	"github.com/labstack/echo/v4" // web framework

	"github.com/iliyamo/habit-tracker/internal/logger"  // error logging
	"github.com/iliyamo/habit-tracker/internal/model"   // goal kinds
	"github.com/iliyamo/habit-tracker/internal/service" // habit rules
)

// Request and intent names understood by the voice adapter.
const (
	RequestLaunch       = "LaunchRequest"
	RequestIntent       = "IntentRequest"
	RequestSessionEnded = "SessionEndedRequest"

	IntentCreateHabit = "CreateHabitIntent"
	IntentLogHabit    = "LogHabitIntent"
	IntentSummary     = "SummaryIntent"
	IntentListHabits  = "ListHabitsIntent"
	IntentDeleteHabit = "DeleteHabitIntent"
	IntentHelp        = "AMAZON.HelpIntent"
	IntentCancel      = "AMAZON.CancelIntent"
	IntentStop        = "AMAZON.StopIntent"
	IntentFallback    = "AMAZON.FallbackIntent"
)

// anonymousUser identifies callers whose envelope carries no user id.
const anonymousUser = "anon"

// VoiceRequest is the subset of the voice assistant request envelope the
// adapter reads.
type VoiceRequest struct {
	Version string `json:"version"`
	Session *struct {
		User *voiceUser `json:"user"`
	} `json:"session"`
	Context *struct {
		System *struct {
			User *voiceUser `json:"user"`
		} `json:"System"`
	} `json:"context"`
	Request struct {
		Type   string `json:"type"`
		Intent *struct {
			Name  string               `json:"name"`
			Slots map[string]voiceSlot `json:"slots"`
		} `json:"intent"`
	} `json:"request"`
}

type voiceUser struct {
	UserID string `json:"userId"`
}

type voiceSlot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// userID prefers the system user over the session user.
func (r *VoiceRequest) userID() string {
	if r.Context != nil && r.Context.System != nil && r.Context.System.User != nil && r.Context.System.User.UserID != "" {
		return r.Context.System.User.UserID
	}
	if r.Session != nil && r.Session.User != nil && r.Session.User.UserID != "" {
		return r.Session.User.UserID
	}
	return anonymousUser
}

func (r *VoiceRequest) intentName() string {
	if r.Request.Intent == nil {
		return ""
	}
	return r.Request.Intent.Name
}

// slot returns the trimmed value of a slot, or "" when absent.
func (r *VoiceRequest) slot(name string) string {
	if r.Request.Intent == nil {
		return ""
	}
	return strings.TrimSpace(r.Request.Intent.Slots[name].Value)
}

// VoiceResponse is the plain text response envelope.
type VoiceResponse struct {
	Version  string    `json:"version"`
	Response voiceBody `json:"response"`
}

type voiceBody struct {
	OutputSpeech     *voiceSpeech `json:"outputSpeech,omitempty"`
	Reprompt         *voicePrompt `json:"reprompt,omitempty"`
	ShouldEndSession bool         `json:"shouldEndSession"`
}

type voicePrompt struct {
	OutputSpeech voiceSpeech `json:"outputSpeech"`
}

type voiceSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func speak(text string) VoiceResponse {
	return VoiceResponse{Version: "1.0", Response: voiceBody{
		OutputSpeech:     &voiceSpeech{Type: "PlainText", Text: text},
		ShouldEndSession: true,
	}}
}

// ask keeps the session open with a reprompt.
func ask(text, reprompt string) VoiceResponse {
	r := speak(text)
	r.Response.Reprompt = &voicePrompt{OutputSpeech: voiceSpeech{Type: "PlainText", Text: reprompt}}
	r.Response.ShouldEndSession = false
	return r
}

// VoiceHandler adapts voice assistant intents onto the habit services.
// The caller is trusted to have verified the request signature.
type VoiceHandler struct {
	Habits  *service.HabitService
	Users   *service.UserService
	Timeout time.Duration
}

// NewVoiceHandler constructs a VoiceHandler and panics if a service is nil.
func NewVoiceHandler(habits *service.HabitService, users *service.UserService, timeout time.Duration) *VoiceHandler {
	if habits == nil || users == nil {
		panic("nil service passed to NewVoiceHandler")
	}
	return &VoiceHandler{Habits: habits, Users: users, Timeout: timeout}
}

// Handle serves POST /alexa.  Every reply is 200 with a speech body;
// failures are spoken, not signalled by status.
func (h *VoiceHandler) Handle(c echo.Context) error {
	var req VoiceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request envelope")
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	resp, err := h.dispatch(ctx, &req)
	if err != nil {
		logger.Error("voice request failed", "type", req.Request.Type, "intent", req.intentName(), "error", err)
		resp = speak("Sorry, something went wrong. Please try again.")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *VoiceHandler) dispatch(ctx context.Context, req *VoiceRequest) (VoiceResponse, error) {
	switch req.Request.Type {
	case RequestLaunch:
		return ask("Welcome to My Habits. You can say: create habit water with goal eight, or log five of water.", "What would you like to do?"), nil
	case RequestSessionEnded:
		return VoiceResponse{Version: "1.0", Response: voiceBody{ShouldEndSession: true}}, nil
	case RequestIntent:
	default:
		return speak("Sorry, I can't handle that request."), nil
	}

	switch req.intentName() {
	case IntentCreateHabit:
		return h.createHabit(ctx, req)
	case IntentLogHabit:
		return h.logHabit(ctx, req)
	case IntentSummary:
		return h.summary(ctx, req)
	case IntentListHabits:
		return h.listHabits(ctx, req)
	case IntentDeleteHabit:
		return h.deleteHabit(ctx, req)
	case IntentHelp:
		return ask("You can say: create habit water with goal eight, log five of water, or today's summary.", "What would you like to do?"), nil
	case IntentCancel, IntentStop:
		return speak("Goodbye."), nil
	default:
		return ask("I didn't catch that. Try: create habit water, or log five of water.", "What would you like to do?"), nil
	}
}

func (h *VoiceHandler) user(ctx context.Context, req *VoiceRequest) (model.User, error) {
	return h.Users.EnsureUser(ctx, req.userID(), "")
}

// voiceGoalKind maps the spoken goal type onto a GoalKind.  Anything not
// recognised as counting is a yes/no habit.
func voiceGoalKind(spoken string) model.GoalKind {
	switch strings.ToLower(strings.TrimSpace(spoken)) {
	case "count", "counter", "number", "amount", "times", "repetitions",
		"conteo", "cantidad", "numero", "número", "repeticiones":
		return model.GoalCount
	}
	if k, ok := model.ParseGoalKind(spoken); ok {
		return k
	}
	return model.GoalBoolean
}

func (h *VoiceHandler) createHabit(ctx context.Context, req *VoiceRequest) (VoiceResponse, error) {
	name := req.slot("HabitName")
	if name == "" {
		return ask("What is the habit called?", "Tell me the name of the habit."), nil
	}
	u, err := h.user(ctx, req)
	if err != nil {
		return VoiceResponse{}, err
	}

	kind := voiceGoalKind(req.slot("GoalType"))
	var goal *int
	if kind == model.GoalCount {
		n, err := strconv.Atoi(req.slot("DailyGoal"))
		if err != nil || n <= 0 {
			return ask(fmt.Sprintf("What daily goal should %s have?", name), "Tell me a number, for example eight."), nil
		}
		goal = &n
	}

	if _, found, err := h.Habits.FindHabit(ctx, u.ID, name); err != nil {
		return VoiceResponse{}, err
	} else if found {
		return speak(fmt.Sprintf("The habit %s already exists.", name)), nil
	}

	if _, err := h.Habits.CreateHabit(ctx, service.CreateHabitInput{UserID: u.ID, Name: name, GoalType: string(kind), DailyGoal: goal}); err != nil {
		return VoiceResponse{}, err
	}
	if goal != nil {
		return speak(fmt.Sprintf("Done. I created the habit %s with a daily goal of %d.", name, *goal)), nil
	}
	return speak(fmt.Sprintf("Done. I created the habit %s.", name)), nil
}

func (h *VoiceHandler) logHabit(ctx context.Context, req *VoiceRequest) (VoiceResponse, error) {
	name := req.slot("HabitName")
	if name == "" {
		return ask("Which habit do you want to log?", "Tell me the name of the habit."), nil
	}
	u, err := h.user(ctx, req)
	if err != nil {
		return VoiceResponse{}, err
	}
	habit, found, err := h.Habits.FindHabit(ctx, u.ID, name)
	if err != nil {
		return VoiceResponse{}, err
	}
	if !found {
		return speak(fmt.Sprintf("I couldn't find the habit %s. You can say: create habit %s.", name, name)), nil
	}

	amount := 1
	if n, err := strconv.Atoi(req.slot("Amount")); err == nil {
		amount = n
	}
	date, err := h.Habits.LogHabit(ctx, habit.ID, req.slot("When"), amount)
	if service.IsValidation(err) {
		return speak("Please tell me a specific day or amount."), nil
	}
	if err != nil {
		return VoiceResponse{}, err
	}

	what := "done"
	if habit.GoalType == model.GoalCount {
		what = strconv.Itoa(amount)
	}
	return speak(fmt.Sprintf("Logged %s for %s on %s.", what, habit.Name, date)), nil
}

func (h *VoiceHandler) summary(ctx context.Context, req *VoiceRequest) (VoiceResponse, error) {
	u, err := h.user(ctx, req)
	if err != nil {
		return VoiceResponse{}, err
	}
	today := h.Habits.Dates().Today()
	rows, err := h.Habits.Summarize(ctx, u.ID, today, today)
	if err != nil {
		return VoiceResponse{}, err
	}
	if len(rows) == 0 {
		return speak("You don't have any habits yet. Say: create habit water."), nil
	}
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.GoalType == model.GoalCount && r.DailyGoal != nil {
			parts = append(parts, fmt.Sprintf("%s: %d of %d", r.Name, r.Total, *r.DailyGoal))
			continue
		}
		state := "pending"
		if r.Completed() {
			state = "done"
		}
		parts = append(parts, r.Name+": "+state)
	}
	return speak("Today's summary: " + strings.Join(parts, ", ") + "."), nil
}

func (h *VoiceHandler) listHabits(ctx context.Context, req *VoiceRequest) (VoiceResponse, error) {
	u, err := h.user(ctx, req)
	if err != nil {
		return VoiceResponse{}, err
	}
	habits, err := h.Habits.ListHabits(ctx, u.ID)
	if err != nil {
		return VoiceResponse{}, err
	}
	if len(habits) == 0 {
		return speak("You don't have any habits yet. Say: create habit water."), nil
	}
	names := make([]string, 0, len(habits))
	for _, hb := range habits {
		names = append(names, hb.Name)
	}
	return speak("Your habits: " + strings.Join(names, ", ") + "."), nil
}

func (h *VoiceHandler) deleteHabit(ctx context.Context, req *VoiceRequest) (VoiceResponse, error) {
	name := req.slot("HabitName")
	if name == "" {
		return ask("Which habit do you want to delete?", "Tell me the name of the habit."), nil
	}
	u, err := h.user(ctx, req)
	if err != nil {
		return VoiceResponse{}, err
	}
	ok, err := h.Habits.DeleteHabitByName(ctx, u.ID, name)
	if err != nil {
		return VoiceResponse{}, err
	}
	if !ok {
		return speak(fmt.Sprintf("I couldn't find %s.", name)), nil
	}
	return speak(fmt.Sprintf("Done, I deleted %s.", name)), nil
}
