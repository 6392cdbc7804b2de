package Notifications

import (
	"context"
	"errors"
	"fmt"

	"ClinOps/DMBot"

	"go.uber.org/zap"
)

// Channel delivers a notification to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, n DMBot.Notification) error
}

// Dispatcher fans a notification out to every channel. It satisfies
// DMBot.Notifier.
type Dispatcher struct {
	channels []Channel
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger, channels ...Channel) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{channels: channels, log: log}
}

func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, c := range d.channels {
		names[i] = c.Name()
	}
	return names
}

// Dispatch sends n to all channels. A failing channel does not stop the
// others; the failures are returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, n DMBot.Notification) error {
	var errs []error
	for _, c := range d.channels {
		if err := c.Send(ctx, n); err != nil {
			d.log.Warn("notification channel failed",
				zap.String("channel", c.Name()),
				zap.String("notification_id", n.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ DMBot.Notifier = (*Dispatcher)(nil)

// subject renders the one-line form used by chat and push channels.
func subject(n DMBot.Notification) string {
	if n.QueryID != "" {
		return fmt.Sprintf("[%s] %s (%s)", n.Severity, n.Title, n.QueryID)
	}
	return fmt.Sprintf("[%s] %s", n.Severity, n.Title)
}
