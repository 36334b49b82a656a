package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/AngelAdrianVR/WashApp/internal/repository"
	"github.com/AngelAdrianVR/WashApp/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reminderPageSize = 100

// ReminderJob publishes booking.reminder for every confirmed booking that
// starts on the next business-local day.
type ReminderJob struct {
	bookings  repository.BookingRepository
	publisher service.EventPublisher
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
	cron      *cron.Cron
}

func NewReminderJob(bookings repository.BookingRepository, publisher service.EventPublisher, loc *time.Location, now func() time.Time, log *zap.Logger) *ReminderJob {
	if now == nil {
		now = time.Now
	}
	return &ReminderJob{bookings: bookings, publisher: publisher, loc: loc, now: now, log: log}
}

// Start schedules Run with a standard five-field cron spec evaluated in the
// business time zone.
func (j *ReminderJob) Start(spec string) error {
	c := cron.New(cron.WithLocation(j.loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := j.Run(context.Background()); err != nil {
			j.log.Error("reminder run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	j.cron = c
	c.Start()
	j.log.Info("reminder scheduler started", zap.String("spec", spec))
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (j *ReminderJob) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Run publishes one reminder per booking and returns how many were sent.
// A failed publish is logged and does not stop the run.
func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	y, m, d := j.now().In(j.loc).Date()
	from := time.Date(y, m, d+1, 0, 0, 0, 0, j.loc)
	to := time.Date(y, m, d+2, 0, 0, 0, 0, j.loc)
	status := models.StatusConfirmed

	sent := 0
	for page := 1; ; page++ {
		bookings, total, err := j.bookings.List(ctx, repository.BookingFilter{
			Status:   &status,
			From:     &from,
			To:       &to,
			Page:     page,
			PageSize: reminderPageSize,
		})
		if err != nil {
			return sent, fmt.Errorf("list bookings for %s: %w", from.Format(time.DateOnly), err)
		}

		for i := range bookings {
			if err := j.publisher.Publish(service.EventBookingReminder, &bookings[i]); err != nil {
				j.log.Warn("reminder not published", zap.Uint("booking_id", bookings[i].ID), zap.Error(err))
				continue
			}
			sent++
		}

		if len(bookings) == 0 || int64(page*reminderPageSize) >= total {
			break
		}
	}

	j.log.Info("reminders published", zap.String("day", from.Format(time.DateOnly)), zap.Int("count", sent))
	return sent, nil
}
