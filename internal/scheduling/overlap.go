package scheduling

import (
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/models"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func NewWindow(start time.Time, minutes int) Window {
	return Window{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// BookingWindow returns the interval a booking occupies. Duration comes from
// the snapshot taken when the booking was written.
func BookingWindow(b *models.Booking) Window {
	if len(b.Items) > 0 {
		minutes := 0
		for _, it := range b.Items {
			minutes += it.DurationMinutesAtBooking
		}
		return NewWindow(b.ScheduledAt, minutes)
	}
	if !b.EndsAt.IsZero() {
		return Window{Start: b.ScheduledAt, End: b.EndsAt}
	}
	return NewWindow(b.ScheduledAt, b.DurationMinutes)
}

// IsBusy reports whether the employee has a non-terminal booking overlapping
// the candidate window. The booking with ID excludeID is ignored; pass 0 to
// check against every booking.
func IsBusy(employeeID uint, candidate Window, bookings []models.Booking, excludeID uint) bool {
	for i := range bookings {
		b := &bookings[i]
		if b.EmployeeID != employeeID || b.Status.IsTerminal() {
			continue
		}
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if BookingWindow(b).Overlaps(candidate) {
			return true
		}
	}
	return false
}
