package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedsite/internal/mailer"
)

const defaultSendTimeout = 30 * time.Second

// Executor delivers tasks on background goroutines, at most `workers` at a
// time. A crash loses whatever is still in flight.
type Executor struct {
	mailer  mailer.Mailer
	log     *zerolog.Logger
	sem     chan struct{}
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewExecutor(m mailer.Mailer, workers int, log *zerolog.Logger) *Executor {
	if workers <= 0 {
		workers = 4
	}
	return &Executor{
		mailer:  m,
		log:     log,
		sem:     make(chan struct{}, workers),
		timeout: defaultSendTimeout,
	}
}

func (e *Executor) Dispatch(ctx context.Context, task Task) {
	// the request context ends with the response; keep its values only
	ctx = context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		e.sem <- struct{}{}
		defer func() { <-e.sem }()

		sendCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		_ = Deliver(sendCtx, e.mailer, e.log, task)
	}()
}

// Shutdown waits for in-flight tasks until ctx expires.
func (e *Executor) Shutdown(ctx context.Context) error {
	if err := wait(ctx, &e.wg); err != nil {
		e.log.Warn().Msg("notification executor drain timed out, pending emails dropped")
		return err
	}
	e.log.Info().Msg("notification executor drained")
	return nil
}

func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
