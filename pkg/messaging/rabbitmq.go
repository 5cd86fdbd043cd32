package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"card-template-pipeline/pkg/types"
)

// retryableError marks a handler failure that should be redelivered.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps err so Consume requeues the delivery.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was wrapped with Retryable.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Dial waits for RabbitMQ to be ready with retries
func Dial(ctx context.Context, url string, log zerolog.Logger) (*amqp.Connection, error) {
	maxRetries := 30
	retryDelay := time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warn().Err(err).Msgf("waiting for RabbitMQ... (attempt %d/%d)", i+1, maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("RabbitMQ not ready after %d attempts: %w", maxRetries, lastErr)
}

// DeclareQueue declares the durable jobs queue.
func DeclareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// Publisher publishes template jobs to the jobs queue.
type Publisher struct {
	channel *amqp.Channel
	queue   string
	log     zerolog.Logger
}

// NewPublisher creates a publisher on ch and declares queue.
func NewPublisher(ch *amqp.Channel, queue string, log zerolog.Logger) (*Publisher, error) {
	if err := DeclareQueue(ch, queue); err != nil {
		return nil, err
	}
	return &Publisher{channel: ch, queue: queue, log: log}, nil
}

// PublishJob publishes job as a persistent JSON message.
func (p *Publisher) PublishJob(ctx context.Context, job *types.TemplateJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	p.log.Debug().Str("job_id", job.ID).Msg("published template job")
	return nil
}

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Acknowledger is the subset of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consume delivers messages from queue to handler until ctx is done.
// A nil error acks, a Retryable error requeues, anything else drops.
func Consume(ctx context.Context, ch *amqp.Channel, queue string, prefetch int, handler Handler, log zerolog.Logger) error {
	if err := DeclareQueue(ch, queue); err != nil {
		return err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := ch.Consume(
		queue,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Info().Str("queue", queue).Int("prefetch", prefetch).Msg("consuming template jobs")
	return Dispatch(ctx, msgs, prefetch, handler, log)
}

// Dispatch runs handler for each delivery on msgs with at most limit
// handlers in flight, settling each delivery when its handler returns.
// Receiving pauses while all slots are busy. It returns once ctx is done
// and every in-flight handler has finished.
func Dispatch(ctx context.Context, msgs <-chan amqp.Delivery, limit int, handler Handler, log zerolog.Logger) error {
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case msg, ok := <-msgs:
			if !ok {
				_ = g.Wait()
				return fmt.Errorf("delivery channel closed")
			}
			g.Go(func() error {
				Settle(&msg, handler(ctx, msg.Body), log)
				return nil
			})
		}
	}
}

// Settle acks or nacks d according to the handler result.
func Settle(d Acknowledger, err error, log zerolog.Logger) {
	var settleErr error
	switch {
	case err == nil:
		settleErr = d.Ack(false)
	case IsRetryable(err):
		log.Warn().Err(err).Msg("requeueing message")
		settleErr = d.Nack(false, true)
	default:
		log.Error().Err(err).Msg("dropping message")
		settleErr = d.Nack(false, false)
	}
	if settleErr != nil {
		log.Error().Err(settleErr).Msg("failed to settle message")
	}
}
