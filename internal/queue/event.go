// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// HabitLoggedQueue is the durable queue habit log events travel on.
const HabitLoggedQueue = "habit.logged"

// HabitLoggedEvent is published after an amount is accumulated against a
// habit.  It carries enough for downstream consumers to audit or notify
// without querying the primary database.
type HabitLoggedEvent struct {
	EventID   string `json:"event_id"`
	UserID    uint64 `json:"user_id"`
	HabitID   uint64 `json:"habit_id"`
	HabitName string `json:"habit_name"`
	Date      string `json:"date"`
	Amount    int    `json:"amount"`
	LoggedAt  string `json:"logged_at"`
}
