package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ErrDropMessage marks a delivery that can never succeed; the consumer rejects it without requeue.
var ErrDropMessage = errors.New("drop message")

type rabbitChannel struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

// dialQueue connects and declares the durable queue shared by publisher and consumer.
func dialQueue(url, queue string) (*rabbitChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &rabbitChannel{conn: conn, ch: ch, Queue: queue}, nil
}

func (r *rabbitChannel) Close() {
	if r == nil {
		return
	}
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

// RabbitPublisher publishes JSON messages to one queue through the default exchange.
type RabbitPublisher struct {
	*rabbitChannel
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	rc, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	return &RabbitPublisher{rc}, nil
}

// PublishJSON publishes a JSON-encoded persistent message.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
}

// RabbitConsumer delivers messages from one queue to a handler with manual acks.
type RabbitConsumer struct {
	*rabbitChannel
	Logger *logrus.Logger
}

func NewRabbitConsumer(url, queue string, prefetch int, logger *logrus.Logger) (*RabbitConsumer, error) {
	rc, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	if err := rc.ch.Qos(prefetch, 0, false); err != nil {
		rc.Close()
		return nil, err
	}
	return &RabbitConsumer{rabbitChannel: rc, Logger: logger}, nil
}

// Consume blocks until ctx is cancelled or the channel closes.
// nil acks; ErrDropMessage rejects; any other error requeues after a short pause.
func (c *RabbitConsumer) Consume(ctx context.Context, handle func(context.Context, []byte) error) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return amqp.ErrClosed
			}
			err := handle(ctx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, ErrDropMessage):
				LogWarn(c.Logger, "message dropped", err, logrus.Fields{"queue": c.Queue})
				_ = msg.Nack(false, false)
			default:
				LogWarn(c.Logger, "message requeued", err, logrus.Fields{"queue": c.Queue})
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				_ = msg.Nack(false, true)
			}
		}
	}
}
