package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/habit-tracker/internal/logger"
)

// StartActivityConsumer connects to RabbitMQ, declares the habit.logged
// queue (durable) and appends one line per event to out.  It reconnects
// with exponential backoff capped at 30s and returns when ctx is done.
// Malformed messages are rejected without requeue so they cannot loop.
func StartActivityConsumer(ctx context.Context, url string, out io.Writer) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("activity-consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("activity-consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, out io.Writer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("activity-consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(HabitLoggedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(HabitLoggedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(d.Body, out); err != nil {
				logger.Error("activity-consumer: handle message failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one habit.logged payload and writes its audit line.
func HandleMessage(body []byte, out io.Writer) error {
	var ev HabitLoggedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.HabitID == 0 || ev.Date == "" {
		return errors.New("event missing habit_id or date")
	}
	line := fmt.Sprintf("[%s] Habit logged | event_id=%s | user_id=%d | habit_id=%d | habit=%q | date=%s | amount=%d\n",
		ev.LoggedAt, ev.EventID, ev.UserID, ev.HabitID, ev.HabitName, ev.Date, ev.Amount)
	if _, err := io.WriteString(out, line); err != nil {
		return fmt.Errorf("write activity log: %w", err)
	}
	return nil
}
