package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/security"
)

const (
	archiveQueueSize = 1024
	archiveBatchSize = 100
)

// EventStore persists batches of security events.
type EventStore interface {
	InsertBatch(ctx context.Context, events []security.Event) error
}

// ArchiveWorker copies security events to durable storage. It is a
// security.Sink: HandleSecurityEvent only enqueues, and Start flushes the
// queue in batches every interval or whenever a batch fills up.
type ArchiveWorker struct {
	store    EventStore
	interval time.Duration
	queue    chan security.Event
}

var _ security.Sink = (*ArchiveWorker)(nil)

// NewArchiveWorker constructs an ArchiveWorker.
func NewArchiveWorker(store EventStore, interval time.Duration) *ArchiveWorker {
	return &ArchiveWorker{
		store:    store,
		interval: interval,
		queue:    make(chan security.Event, archiveQueueSize),
	}
}

// HandleSecurityEvent queues e without blocking. Events are dropped when the
// queue is full.
func (w *ArchiveWorker) HandleSecurityEvent(e security.Event) {
	select {
	case w.queue <- e:
	default:
		log.Warn().Str("event_id", e.ID).Str("type", string(e.Type)).Msg("Archive queue full, dropping security event")
	}
}

// Start begins the flush loop and listens for context cancellation. Queued
// events are flushed once more on shutdown.
func (w *ArchiveWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting security archive worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	batch := make([]security.Event, 0, archiveBatchSize)
	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= archiveBatchSize {
				batch = w.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = w.flush(ctx, batch)
		case <-ctx.Done():
			w.drain(batch)
			log.Info().Msg("Security archive worker stopped")
			return
		}
	}
}

// flush writes batch and returns it emptied. A failed batch is logged and
// discarded; the in-memory log still holds the events.
func (w *ArchiveWorker) flush(ctx context.Context, batch []security.Event) []security.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := w.store.InsertBatch(ctx, batch); err != nil {
		log.Error().Err(err).Int("events", len(batch)).Msg("Failed to archive security events")
	}
	return batch[:0]
}

func (w *ArchiveWorker) drain(batch []security.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= archiveBatchSize {
				batch = w.flush(ctx, batch)
			}
		default:
			w.flush(ctx, batch)
			return
		}
	}
}
