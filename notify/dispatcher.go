package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"library-circulation/library"
)

// DefaultMaxAttempts is how often an entry is retried before it is dropped.
const DefaultMaxAttempts = 5

// Deliverer hands a notification to the outside world.
type Deliverer interface {
	Deliver(ctx context.Context, n library.Notification) error
}

// ConsoleDeliverer prints one line per notification.
type ConsoleDeliverer struct {
	W io.Writer
}

func (c ConsoleDeliverer) Deliver(_ context.Context, n library.Notification) error {
	_, err := fmt.Fprintf(c.W, "%s [%s] patron %d: %s\n",
		n.Timestamp.Format(time.DateTime), n.Kind, n.PatronID, n.Message)
	return err
}

// Dispatcher drains an Outbox into a Deliverer.
type Dispatcher struct {
	box         *Outbox
	deliverer   Deliverer
	log         *slog.Logger
	batch       int
	maxAttempts int
}

func NewDispatcher(box *Outbox, d Deliverer, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{box: box, deliverer: d, log: log, batch: 100, maxAttempts: DefaultMaxAttempts}
}

// Drain delivers the oldest batch of pending entries once, in enqueue order.
// Delivered entries are acked; failures are counted and an entry that
// reaches the attempt limit is dropped with an error log. It returns the
// number of entries delivered.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	delivered := 0
	entries, err := d.box.Pending(d.batch)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := d.deliverer.Deliver(ctx, e.Notification); err != nil {
			updated, ferr := d.box.Fail(e.Key, err)
			if ferr != nil {
				return delivered, fmt.Errorf("record failed delivery: %w", ferr)
			}
			if updated.Attempts >= d.maxAttempts {
				d.log.Error("dropping undeliverable notification",
					"key", e.Key, "patron_id", e.Notification.PatronID, "attempts", updated.Attempts, "err", err)
				if err := d.box.Ack(e.Key); err != nil {
					return delivered, err
				}
				continue
			}
			d.log.Warn("notification delivery failed", "key", e.Key, "attempts", updated.Attempts, "err", err)
			continue
		}
		if err := d.box.Ack(e.Key); err != nil {
			return delivered, fmt.Errorf("ack %s: %w", e.Key, err)
		}
		delivered++
	}
	return delivered, nil
}

// Run drains the outbox every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := d.Drain(ctx)
		if err != nil && ctx.Err() == nil {
			d.log.Error("drain outbox", "err", err)
		} else if n > 0 {
			d.log.Info("notifications delivered", "count", n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
