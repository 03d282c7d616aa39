package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"wedsite/internal/mailer"
	"wedsite/internal/metrics"
)

const (
	KindRSVPOrganizer = "rsvp_organizer"
	KindRSVPGuest     = "rsvp_guest"
)

// Task is one email that has already been rendered.
type Task struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Attempt int    `json:"attempt"`
}

// Dispatcher accepts tasks without waiting for delivery. Callers never learn
// the outcome; it is logged and counted.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task)
}

var ErrNoRecipient = errors.New("notification has no recipient")

// Deliver sends one task and records the outcome.
func Deliver(ctx context.Context, m mailer.Mailer, log *zerolog.Logger, task Task) error {
	start := time.Now()
	err := deliver(ctx, m, task)

	ev := log.Info()
	outcome := metrics.OutcomeOK
	if err != nil {
		ev = log.Error().Err(err)
		outcome = metrics.OutcomeError
	}
	metrics.Notification(task.Kind, outcome)
	ev.Str("kind", task.Kind).
		Str("to", task.To).
		Int("attempt", task.Attempt).
		Dur("duration", time.Since(start)).
		Msg("notification processed")
	return err
}

func deliver(ctx context.Context, m mailer.Mailer, task Task) error {
	if task.To == "" {
		return ErrNoRecipient
	}
	return m.Send(ctx, task.To, task.Subject, task.HTML)
}
