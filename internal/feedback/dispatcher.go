package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"subalign/internal/logging"
)

const recordTimeout = 10 * time.Second

// Dispatcher hands entries to a Sink on a background goroutine so request
// handlers never wait on storage. A full buffer drops the entry.
type Dispatcher struct {
	sink   Sink
	logger *slog.Logger
	queue  chan Entry

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	accepted int
	dropped  int
	recorded int
	failed   int
	statsMu  sync.Mutex
}

// Stats counts dispatcher outcomes since start.
type Stats struct {
	// Accepted counts entries queued by Submit.
	Accepted int
	Recorded int
	Failed   int
	Dropped  int
}

// NewDispatcher starts the background writer. Call Close to drain it.
func NewDispatcher(sink Sink, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	d := &Dispatcher{
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "feedback"),
		queue:  make(chan Entry, buffer),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Submit enqueues entry without blocking. It reports false when the entry
// was dropped because the buffer is full or the dispatcher is closed.
func (d *Dispatcher) Submit(entry Entry) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(entry, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- entry:
		d.statsMu.Lock()
		d.accepted++
		d.statsMu.Unlock()
		return true
	default:
		d.drop(entry, "buffer full")
		return false
	}
}

func (d *Dispatcher) drop(entry Entry, reason string) {
	d.statsMu.Lock()
	d.dropped++
	d.statsMu.Unlock()
	logging.WarnWithContext(d.logger, "feedback dropped", "feedback_dropped",
		logging.String("feedback_id", entry.ID),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "reviewer feedback not persisted"),
	)
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for entry := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := d.sink.Record(ctx, entry)
		cancel()
		d.statsMu.Lock()
		if err != nil {
			d.failed++
		} else {
			d.recorded++
		}
		d.statsMu.Unlock()
		if err != nil {
			logging.ErrorWithContext(d.logger, "feedback write failed", "feedback_write_failed",
				logging.String("feedback_id", entry.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the feedback backend"),
			)
			continue
		}
		d.logger.Debug("feedback recorded", logging.String("feedback_id", entry.ID))
	}
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return Stats{Accepted: d.accepted, Recorded: d.recorded, Failed: d.failed, Dropped: d.dropped}
}

// Close stops accepting entries and waits for queued ones to be written or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
