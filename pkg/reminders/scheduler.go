// Package reminders delivers the payment reminders created alongside each
// generated schedule entry.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/mcclellann/debtplan/pkg/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 30 * time.Second

// Scheduler polls for due reminders on a cron schedule.
type Scheduler struct {
	storage  store.Storage
	notifier Notifier
	log      logrus.FieldLogger
	timeout  time.Duration
	now      func() time.Time
	cron     *cron.Cron
}

type Option func(*Scheduler)

// WithTimeout bounds a single polling run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(storage store.Storage, notifier Notifier, log logrus.FieldLogger, opts ...Option) *Scheduler {
	s := &Scheduler{
		storage:  storage,
		notifier: notifier,
		log:      log,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{log}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Start registers the polling job under spec (standard cron or "@every 1m")
// and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.WithField("schedule", spec).Info("Reminder scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running job, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Reminder scheduler stop timed out")
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.ProcessDue(ctx); err != nil {
		s.log.WithError(err).Error("Reminder run failed")
	}
}

// ProcessDue sends every reminder whose fire time has passed and marks it
// sent. A failed send leaves the reminder scheduled for the next run.
func (s *Scheduler) ProcessDue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.storage.GetDueReminders(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range due {
		logger := s.log.WithFields(logrus.Fields{"reminder_id": r.ID, "schedule_id": r.ScheduleEntryID})
		if err := s.notifier.Notify(ctx, r); err != nil {
			logger.WithError(err).Warn("Reminder not delivered, will retry")
			continue
		}
		if err := s.storage.MarkReminderSent(ctx, r.ID, now); err != nil {
			logger.WithError(err).Error("Failed to mark reminder sent")
			continue
		}
		sent++
	}
	if len(due) > 0 {
		s.log.WithFields(logrus.Fields{"due": len(due), "sent": sent}).Info("Processed due reminders")
	}
	return sent, ctx.Err()
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
