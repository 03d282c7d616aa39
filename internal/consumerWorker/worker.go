package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"wedsite/internal/mailer"
	"wedsite/internal/metrics"
	"wedsite/internal/notify"
	"wedsite/internal/rabbit"
)

type broker interface {
	Consume(handler func([]byte) error) (<-chan struct{}, error)
	StopConsuming() error
	Publish(message []byte, delaySeconds int) error
}

type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	SendTimeout time.Duration
}

// Reader delivers queued notification tasks.
type Reader struct {
	rmq    broker
	mailer mailer.Mailer
	log    *zerolog.Logger
	opts   Options

	encode func(any) ([]byte, error)

	ctx      context.Context
	cancel   context.CancelFunc
	consumed <-chan struct{}
}

func NewReader(rmq broker, m mailer.Mailer, log *zerolog.Logger, opts Options) *Reader {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Reader{rmq: rmq, mailer: m, log: log, opts: opts, encode: json.Marshal}
}

func (r *Reader) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	consumed, err := r.rmq.Consume(r.handle)
	if err != nil {
		r.cancel()
		return fmt.Errorf("start consuming: %w", err)
	}
	r.consumed = consumed

	r.log.Info().Int("max_attempts", r.opts.MaxAttempts).Msg("notification reader started")
	return nil
}

func (r *Reader) handle(body []byte) error {
	var task notify.Task
	if err := json.Unmarshal(body, &task); err != nil {
		r.log.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal notification")
		return fmt.Errorf("%w: %v", rabbit.ErrDrop, err)
	}
	if task.Attempt <= 0 {
		task.Attempt = 1
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.opts.SendTimeout)
	defer cancel()

	err := notify.Deliver(ctx, r.mailer, r.log, task)
	if err == nil {
		return nil
	}
	if errors.Is(err, notify.ErrNoRecipient) {
		return fmt.Errorf("%w: %v", rabbit.ErrDrop, err)
	}

	if task.Attempt >= r.opts.MaxAttempts {
		metrics.Notification(task.Kind, metrics.OutcomeDropped)
		r.log.Error().
			Str("kind", task.Kind).
			Str("to", task.To).
			Int("attempt", task.Attempt).
			Msg("notification dropped after final attempt")
		return fmt.Errorf("%w: %v", rabbit.ErrDrop, err)
	}

	delay := int(r.opts.RetryDelay.Seconds()) * task.Attempt
	task.Attempt++
	next, merr := r.encode(task)
	if merr != nil {
		metrics.Notification(task.Kind, metrics.OutcomeDropped)
		r.log.Error().Err(merr).Str("kind", task.Kind).Str("to", task.To).Msg("failed to encode retry")
		return fmt.Errorf("%w: %v", rabbit.ErrDrop, merr)
	}
	if perr := r.rmq.Publish(next, delay); perr != nil {
		// broker redelivers the original
		return perr
	}
	metrics.Notification(task.Kind, metrics.OutcomeRetry)
	return nil
}

func (r *Reader) Stop() {
	if r.cancel == nil {
		return
	}
	if err := r.rmq.StopConsuming(); err != nil {
		r.log.Warn().Err(err).Msg("failed to cancel consumer")
	}
	if r.consumed != nil {
		select {
		case <-r.consumed:
		case <-time.After(r.opts.SendTimeout):
			r.log.Warn().Msg("timed out waiting for in-flight notifications")
		}
	}
	r.cancel()
	r.log.Info().Msg("notification reader stopped")
}
