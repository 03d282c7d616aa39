package rabbit

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// ErrDrop tells Consume to reject a message without requeueing it.
var ErrDrop = errors.New("drop message")

const consumerTag = "wedsite-notifier"

type Config struct {
	URL      string
	Exchange string
	Queue    string
	// Delayed declares an x-delayed-message exchange, which needs the
	// rabbitmq_delayed_message_exchange plugin. Without it delays are ignored.
	Delayed bool
}

type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	delayed  bool
	mu       sync.Mutex
}

func NewRabbit(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		zlog.Logger.Error().Err(err).Msg("failed to open RabbitMQ channel")
		return nil, err
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		delayed:  cfg.Delayed,
	}

	kind, args := "direct", amqp.Table(nil)
	if cfg.Delayed {
		kind, args = "x-delayed-message", amqp.Table{"x-delayed-type": "direct"}
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, kind, true, false, false, false, args); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to declare exchange")
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to declare queue")
		return nil, err
	}

	if err := ch.QueueBind(cfg.Queue, cfg.Queue, cfg.Exchange, false, nil); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to bind queue")
		return nil, err
	}

	if err := ch.Qos(8, 0, false); err != nil {
		client.Close()
		zlog.Logger.Error().Err(err).Msg("failed to set prefetch")
		return nil, err
	}

	zlog.Logger.Info().
		Str("exchange", cfg.Exchange).
		Str("queue", cfg.Queue).
		Bool("delayed", cfg.Delayed).
		Msg("RabbitMQ initialized")

	return client, nil
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	zlog.Logger.Info().Msg("RabbitMQ connection closed")
}

func (c *Client) Publish(message []byte, delaySeconds int) error {
	headers := amqp.Table{}
	if c.delayed && delaySeconds > 0 {
		headers["x-delay"] = int32(delaySeconds * 1000)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.mu.Lock()
	err := c.channel.PublishWithContext(ctx,
		c.exchange,
		c.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
			Timestamp:    time.Now(),
			Headers:      headers,
		},
	)
	c.mu.Unlock()

	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to publish message to RabbitMQ")
	} else {
		zlog.Logger.Debug().Str("exchange", c.exchange).Int("delay_s", delaySeconds).Msg("message published")
	}
	return err
}

// Consume acks on success, drops on ErrDrop and requeues on any other error.
// The returned channel closes once the delivery stream ends.
func (c *Client) Consume(handler func([]byte) error) (<-chan struct{}, error) {
	msgs, err := c.channel.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to start consuming messages")
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			err := handler(d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, ErrDrop):
				zlog.Logger.Warn().Err(err).Msg("message rejected")
				_ = d.Nack(false, false)
			default:
				zlog.Logger.Warn().Err(err).Msg("failed to process message, requeueing")
				_ = d.Nack(false, true)
			}
		}
	}()

	zlog.Logger.Info().Str("queue", c.queue).Msg("Started consuming")
	return done, nil
}

// StopConsuming cancels the consumer; in-flight deliveries still finish.
func (c *Client) StopConsuming() error {
	return c.channel.Cancel(consumerTag, false)
}
