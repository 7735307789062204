package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"healthwatch-server/config"
	"healthwatch-server/services"
)

const pushTimeout = 10 * time.Second

// JobState is the scheduler's observable state.
type JobState string

const (
	StateIdle    JobState = "IDLE"
	StateTicking JobState = "TICKING"
)

// ReminderSource finds due reminders and claims them.
type ReminderSource interface {
	FindDueReminders(ctx context.Context, keys services.TimeKeys) ([]services.ReminderDue, error)
	ClaimTrigger(ctx context.Context, scheduleID uint, now time.Time, window time.Duration) (bool, error)
}

// ReminderDeps are the collaborators one tick uses.
type ReminderDeps struct {
	Reminders     ReminderSource
	Notifications *services.NotificationStore
	Push          services.PushDispatcher
}

// TickReport counts what one tick did. Sent counts persisted notifications;
// Pushed and PushFailed count provider calls made for them.
type TickReport struct {
	Keys       services.TimeKeys
	Candidates int
	Sent       int
	Pushed     int
	Suppressed int
	Failed     int
	PushFailed int
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSuppressed
	outcomeFailed
)

// ReminderJob fires due reminders once a minute.
type ReminderJob struct {
	deps        ReminderDeps
	loc         *time.Location
	guardWindow time.Duration
	claimWindow time.Duration
	cron        *cron.Cron
	running     atomic.Int32
	logger      *zap.Logger
}

// NewReminderJob creates a job on cfg.CronSpec, evaluated in cfg.Timezone.
func NewReminderJob(deps ReminderDeps, cfg config.SchedulerConfig, logger *zap.Logger) (*ReminderJob, error) {
	loc, err := services.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	j := &ReminderJob{
		deps:        deps,
		loc:         loc,
		guardWindow: cfg.GuardWindow(),
		claimWindow: cfg.ClaimWindow(),
		cron:        cron.New(cron.WithLocation(loc)),
		logger:      logger,
	}
	if _, err := j.cron.AddFunc(cfg.CronSpec, j.tick); err != nil {
		return nil, fmt.Errorf("%w: invalid scheduler cron %q: %v", services.ErrConfiguration, cfg.CronSpec, err)
	}
	return j, nil
}

// Start begins the reminder job
func (j *ReminderJob) Start() {
	j.cron.Start()
	j.logger.Info("🚀 Reminder job started", zap.String("timezone", j.loc.String()))
}

// Stop stops the scheduler and waits for running ticks to return.
func (j *ReminderJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("🛑 Reminder job stopped")
}

// State reports TICKING while at least one tick is running.
func (j *ReminderJob) State() JobState {
	if j.running.Load() > 0 {
		return StateTicking
	}
	return StateIdle
}

func (j *ReminderJob) tick() {
	report := j.RunOnce(context.Background(), time.Now())
	if report.Candidates > 0 {
		j.logger.Info("⏰ Reminder tick finished",
			zap.Stringer("keys", report.Keys),
			zap.Int("candidates", report.Candidates),
			zap.Int("sent", report.Sent),
			zap.Int("pushed", report.Pushed),
			zap.Int("suppressed", report.Suppressed),
			zap.Int("failed", report.Failed),
			zap.Int("push_failed", report.PushFailed))
	}
}

// RunOnce runs one tick for instant now. Ticks may overlap; duplicate delivery
// is prevented by the claim on the reminder row and the notification guard.
func (j *ReminderJob) RunOnce(ctx context.Context, now time.Time) TickReport {
	j.running.Add(1)
	defer j.running.Add(-1)

	report := TickReport{Keys: services.ComputeTimeKeys(now, j.loc)}

	due, err := j.deps.Reminders.FindDueReminders(ctx, report.Keys)
	if err != nil {
		j.logger.Error("❌ Error loading due reminders", zap.Stringer("keys", report.Keys), zap.Error(err))
		return report
	}
	report.Candidates = len(due)

	notifications := j.deps.Notifications.WithClock(func() time.Time { return now })
	for _, reminder := range due {
		result, pushed, pushErr := j.fire(ctx, notifications, reminder, now)
		switch result {
		case outcomeSent:
			report.Sent++
		case outcomeSuppressed:
			report.Suppressed++
		case outcomeFailed:
			report.Failed++
		}
		if pushed {
			report.Pushed++
		}
		if pushErr {
			report.PushFailed++
		}
	}
	return report
}

// ReminderTitle and ReminderMessage build the notification text.
func ReminderTitle(title string) string {
	return "Time for: " + title
}

func ReminderMessage(activityType string) string {
	if activityType == "" {
		activityType = "scheduled"
	}
	return fmt.Sprintf("It's time for your %s activity.", activityType)
}

// fire runs claim, guard, persist and push for one reminder. A failure or
// panic here never affects the other reminders of the tick.
func (j *ReminderJob) fire(ctx context.Context, notifications *services.NotificationStore, reminder services.ReminderDue, now time.Time) (result outcome, pushed, pushFailed bool) {
	log := j.logger.With(zap.Uint("schedule_id", reminder.ScheduleID), zap.Uint("user_id", reminder.UserID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("❌ Panic while firing reminder", zap.Any("panic", r))
			result, pushed, pushFailed = outcomeFailed, false, false
		}
	}()

	claimed, err := j.deps.Reminders.ClaimTrigger(ctx, reminder.ScheduleID, now, j.claimWindow)
	if err != nil {
		log.Error("❌ Error claiming reminder", zap.Error(err))
		return outcomeFailed, false, false
	}
	if !claimed {
		log.Debug("Reminder already claimed this minute")
		return outcomeSuppressed, false, false
	}

	title := ReminderTitle(reminder.Title)
	message := ReminderMessage(reminder.Type)

	recent, err := notifications.WasRecentlyNotified(ctx, reminder.UserID, title, message, j.guardWindow, now)
	if err != nil {
		log.Error("❌ Error checking recent notifications", zap.Error(err))
		return outcomeFailed, false, false
	}
	if recent {
		log.Debug("Reminder suppressed by recent notification")
		return outcomeSuppressed, false, false
	}

	notification, err := notifications.Create(ctx, reminder.UserID, title, message)
	if err != nil {
		log.Error("❌ Error saving notification", zap.Error(err))
		return outcomeFailed, false, false
	}
	log.Info("🔔 Reminder notification created", zap.Uint("notification_id", notification.ID))

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	id, err := j.deps.Push.Send(pushCtx, reminder.PushToken, title, message)
	switch {
	case err == nil:
		log.Info("📲 Reminder pushed", zap.String("message_id", id))
		return outcomeSent, true, false
	case errors.Is(err, services.ErrNoPushToken):
		log.Debug("User has no push token, in-app notification only")
		return outcomeSent, false, false
	case errors.Is(err, services.ErrPushDisabled):
		return outcomeSent, false, false
	default:
		var delivery *services.PushDeliveryError
		if errors.As(err, &delivery) && delivery.Unregistered {
			log.Warn("⚠️ Push token is no longer registered", zap.Error(err))
		} else {
			log.Error("❌ Push failed", zap.Error(err))
		}
		return outcomeSent, false, true
	}
}
