package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/models"
)

// Publisher streams event-log entries to an external bus.
type Publisher interface {
	Publish(topic string, event any) error
}

// Topic is the stream every event-log entry is published to.
const Topic = "bank.events"

// Sink receives event-log entries.
type Sink interface {
	AppendEvent(ctx context.Context, e models.EventLogEntry) error
}

// Fanout appends every entry to the primary sink and, when a publisher is
// configured, mirrors it onto the bus. Publish failures are logged and do
// not fail the append: the store is the source of truth.
type Fanout struct {
	primary Sink
	pub     Publisher
	log     *logrus.Logger
}

// NewFanout wraps a sink with optional bus mirroring.
func NewFanout(primary Sink, pub Publisher, log *logrus.Logger) *Fanout {
	return &Fanout{primary: primary, pub: pub, log: log}
}

func (f *Fanout) AppendEvent(ctx context.Context, e models.EventLogEntry) error {
	if err := f.primary.AppendEvent(ctx, e); err != nil {
		return err
	}
	if f.pub != nil {
		if err := f.pub.Publish(Topic, e); err != nil {
			f.log.WithError(err).Warn("failed to publish event to bus")
		}
	}
	return nil
}
