package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/metrics"
	"github.com/greensmil/site_api/internal/security"
)

// RetentionWorker purges security events older than the log's retention
// period on a cron schedule.
type RetentionWorker struct {
	events   *security.Log
	schedule string
	cron     *cron.Cron
}

// NewRetentionWorker validates schedule (standard five-field cron or a
// descriptor such as @daily) and constructs a RetentionWorker.
func NewRetentionWorker(events *security.Log, schedule string) (*RetentionWorker, error) {
	w := &RetentionWorker{events: events, schedule: schedule, cron: cron.New()}
	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// purge to finish.
func (w *RetentionWorker) Start(ctx context.Context) {
	log.Info().Str("schedule", w.schedule).Dur("retention", w.events.Retention()).Msg("Starting security retention worker")
	w.cron.Start()

	<-ctx.Done()
	<-w.cron.Stop().Done()
	log.Info().Msg("Security retention worker stopped")
}

func (w *RetentionWorker) run() {
	removed := w.events.ClearOld()
	metrics.SetSecurityEventsRetained(w.events.Len())
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Purged expired security events")
	}
}
