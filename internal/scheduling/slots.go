package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/models"
)

// BusinessHours are offsets from local midnight plus the slot grid step.
type BusinessHours struct {
	Start time.Duration
	End   time.Duration
	Step  time.Duration
}

func DefaultBusinessHours() BusinessHours {
	return BusinessHours{Start: 9 * time.Hour, End: 18 * time.Hour, Step: 30 * time.Minute}
}

func (h BusinessHours) Validate() error {
	if h.Step <= 0 {
		return fmt.Errorf("slot step must be positive, got %s", h.Step)
	}
	if h.Start < 0 || h.End > 24*time.Hour || h.End <= h.Start {
		return fmt.Errorf("invalid business day %s-%s", h.Start, h.End)
	}
	return nil
}

type SlotEnumerator struct {
	hours    BusinessHours
	loc      *time.Location
	resolver *Resolver
	now      func() time.Time
}

func NewSlotEnumerator(hours BusinessHours, loc *time.Location, resolver *Resolver, now func() time.Time) *SlotEnumerator {
	if loc == nil {
		loc = time.Local
	}
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &SlotEnumerator{hours: hours, loc: loc, resolver: resolver, now: now}
}

func (e *SlotEnumerator) Location() *time.Location { return e.loc }

func (e *SlotEnumerator) Now() time.Time { return e.now().In(e.loc) }

// Day returns local midnight of the given date and the business day bounds.
func (e *SlotEnumerator) Day(date time.Time) (midnight, open, close time.Time) {
	d := date.In(e.loc)
	midnight = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, e.loc)
	return midnight, e.wallClock(d, e.hours.Start), e.wallClock(d, e.hours.End)
}

// wallClock keeps business hours on the local clock across DST changes.
func (e *SlotEnumerator) wallClock(d time.Time, offset time.Duration) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, int(offset/time.Second), 0, e.loc)
}

// WithinBusinessHours reports whether w starts and ends inside the business day it starts on.
func (e *SlotEnumerator) WithinBusinessHours(w Window) bool {
	_, open, close := e.Day(w.Start)
	return !w.Start.Before(open) && !w.End.After(close)
}

// Enumerate lists the start times on date where at least one employee can
// take a job of durationMinutes. bookings must hold every non-terminal
// booking on that date; it is read once and never re-queried.
func (e *SlotEnumerator) Enumerate(ctx context.Context, date time.Time, durationMinutes int, employees []models.User, bookings []models.Booking) ([]time.Time, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	slots := []time.Time{}
	midnight, open, close := e.Day(date)
	now := e.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)

	if midnight.Before(today) || len(employees) == 0 {
		return slots, nil
	}

	cursor := open
	if midnight.Equal(today) && !now.Before(open) {
		cursor = e.nextGridPoint(now, open)
	}

	duration := time.Duration(durationMinutes) * time.Minute
	for !cursor.Add(duration).After(close) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := Window{Start: cursor, End: cursor.Add(duration)}
		_, err := e.resolver.Resolve(ctx, employees, SnapshotBusy(w, bookings, 0))
		switch {
		case err == nil:
			slots = append(slots, cursor)
		case !errors.Is(err, ErrNoAvailableEmployee):
			return nil, err
		}
		cursor = cursor.Add(e.hours.Step)
	}
	return slots, nil
}

// nextGridPoint returns the first grid point measured from open that is
// strictly after t, so every emitted slot still lies in the future.
func (e *SlotEnumerator) nextGridPoint(t, open time.Time) time.Time {
	steps := t.Sub(open)/e.hours.Step + 1
	return open.Add(steps * e.hours.Step)
}
