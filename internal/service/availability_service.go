package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/repository"
	"github.com/AngelAdrianVR/WashApp/internal/scheduling"
)

const SlotLayout = "15:04"

type AvailabilityService interface {
	AvailableTimes(ctx context.Context, date string, durationMinutes int) ([]string, error)
}

type availabilityService struct {
	userRepo    repository.UserRepository
	bookingRepo repository.BookingRepository
	slots       *scheduling.SlotEnumerator
}

func NewAvailabilityService(userRepo repository.UserRepository, bookingRepo repository.BookingRepository, slots *scheduling.SlotEnumerator) AvailabilityService {
	return &availabilityService{userRepo: userRepo, bookingRepo: bookingRepo, slots: slots}
}

// AvailableTimes lists bookable start times on date as HH:MM business-local strings.
func (s *availabilityService) AvailableTimes(ctx context.Context, date string, durationMinutes int) ([]string, error) {
	verr := &ValidationError{}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), s.slots.Location())
	if err != nil {
		verr.add("date", "date must use the format YYYY-MM-DD")
	}
	if durationMinutes < 1 {
		verr.add("duration", "duration must be at least 1 minute")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	employees, err := s.userRepo.ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	if len(employees) == 0 {
		return []string{}, nil
	}

	midnight, _, _ := s.slots.Day(day)
	bookings, err := s.bookingRepo.FindActiveBetween(ctx, midnight, midnight.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	starts, err := s.slots.Enumerate(ctx, day, durationMinutes, employees, bookings)
	if err != nil {
		if errors.Is(err, scheduling.ErrInvalidDuration) {
			return nil, fieldError("duration", "duration must be at least 1 minute")
		}
		return nil, fmt.Errorf("enumerate slots: %w", err)
	}

	out := make([]string, len(starts))
	for i, t := range starts {
		out[i] = t.In(s.slots.Location()).Format(SlotLayout)
	}
	return out, nil
}
