package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"wedsite/internal/metrics"
)

type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

// QueueDispatcher hands tasks to the broker; a consumer worker delivers them.
// Publishing happens off the request path; Shutdown waits for it so the
// broker connection can be closed afterwards.
type QueueDispatcher struct {
	pub Publisher
	log *zerolog.Logger
	wg  sync.WaitGroup
}

func NewQueueDispatcher(pub Publisher, log *zerolog.Logger) *QueueDispatcher {
	return &QueueDispatcher{pub: pub, log: log}
}

func (q *QueueDispatcher) Dispatch(_ context.Context, task Task) {
	body, err := json.Marshal(task)
	if err != nil {
		q.log.Error().Err(err).Str("kind", task.Kind).Msg("failed to encode notification")
		metrics.Notification(task.Kind, metrics.OutcomeDropped)
		return
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.pub.Publish(body, 0); err != nil {
			q.log.Error().Err(err).Str("kind", task.Kind).Str("to", task.To).Msg("failed to enqueue notification")
			metrics.Notification(task.Kind, metrics.OutcomeDropped)
		}
	}()
}

// Shutdown waits for pending publishes until ctx expires.
func (q *QueueDispatcher) Shutdown(ctx context.Context) error {
	if err := wait(ctx, &q.wg); err != nil {
		q.log.Warn().Msg("queue dispatcher drain timed out, pending notifications dropped")
		return err
	}
	q.log.Info().Msg("queue dispatcher drained")
	return nil
}
