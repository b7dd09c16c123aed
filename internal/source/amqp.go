package source

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"tweetarchive/internal/config"
)

// AMQP consumes a durable RabbitMQ queue with manual acks.
type AMQP struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	tag     string
	err     error
}

func DialAMQP(cfg config.AMQPConfig) (*AMQP, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp url is empty")
	}
	if cfg.Queue == "" {
		return nil, fmt.Errorf("amqp queue is empty")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	return &AMQP{conn: conn, channel: ch, queue: q, tag: "tweetarchive-" + uuid.NewString()}, nil
}

func (a *AMQP) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := a.channel.ConsumeWithContext(ctx, a.queue.Name, a.tag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", a.queue.Name, err)
	}
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					if ctx.Err() == nil {
						a.err = fmt.Errorf("consumer %s closed by broker", a.tag)
					}
					return
				}
				select {
				case out <- fromAMQP(m):
				case <-ctx.Done():
					_ = m.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

func fromAMQP(m amqp.Delivery) Delivery {
	return Delivery{
		Body: m.Body,
		Ack:  func() error { return m.Ack(false) },
		Nack: func(requeue bool) error { return m.Nack(false, requeue) },
	}
}

func (a *AMQP) Err() error { return a.err }

func (a *AMQP) Close() error {
	if a.channel != nil {
		a.channel.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
