package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/tasks"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, values map[string]any) (string, error)
}

// Scheduler enqueues periodic maintenance tasks for the worker. It does not
// run them itself, so several API replicas only cost duplicate messages.
type Scheduler struct {
	cron          *cron.Cron
	queue         Enqueuer
	purgeSchedule string
	now           func() time.Time
	log           zerolog.Logger
}

// NewScheduler takes six-field cron expressions (with seconds).
func NewScheduler(queue Enqueuer, purgeSchedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		queue:         queue,
		purgeSchedule: purgeSchedule,
		now:           time.Now,
		log:           log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.purgeSchedule == "" {
		s.log.Info().Msg("contact purge schedule disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.purgeSchedule, s.enqueuePurge); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running enqueue to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) enqueuePurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.queue.Enqueue(ctx, tasks.ContactsPurge(s.now()).Values())
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue contact purge failed")
		return
	}
	s.log.Info().Str("message_id", id).Msg("contact purge enqueued")
}
