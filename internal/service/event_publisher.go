package service

import (
	"context"
	"encoding/json"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/habit-tracker/internal/logger"
	"github.com/iliyamo/habit-tracker/internal/queue"
)

// EventPublisher delivers domain events.  HabitService treats delivery as
// best effort.
type EventPublisher interface {
	PublishHabitLogged(ctx context.Context, ev queue.HabitLoggedEvent) error
}

// DefaultPublishTimeout bounds one publish, connection handshake included.
const DefaultPublishTimeout = 2 * time.Second

// AMQPPublisher publishes events to RabbitMQ, one connection per event.
type AMQPPublisher struct {
	URL     string
	Timeout time.Duration // zero means DefaultPublishTimeout
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Timeout: DefaultPublishTimeout}
}

// dial connects within ctx.  The socket deadline covers the AMQP
// handshake; the library clears it once the connection is open.
func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, error) {
	deadline, _ := ctx.Deadline()
	return amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

// PublishHabitLogged publishes ev to the habit.logged queue as a
// persistent JSON message.  It gives up when ctx or the publisher timeout
// expires, whichever is first.  The event id doubles as the AMQP message
// id so consumers can drop redeliveries.
func (p *AMQPPublisher) PublishHabitLogged(ctx context.Context, ev queue.HabitLoggedEvent) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.dial(ctx)
	if err != nil {
		logger.Warn("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.HabitLoggedQueue, // name
		true,                   // durable
		false,                  // autoDelete
		false,                  // exclusive
		false,                  // noWait
		nil,                    // args
	); err != nil {
		logger.Warn("rabbitmq: queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.HabitLoggedQueue, false, false, pub); err != nil {
		logger.Warn("rabbitmq: publish failed", "error", err)
		return err
	}
	return nil
}
