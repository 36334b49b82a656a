package lifecycle

import (
	"errors"
	"strings"

	"github.com/AngelAdrianVR/WashApp/internal/models"
)

var (
	ErrImmutableBooking  = errors.New("booking can no longer be modified")
	ErrUnauthorized      = errors.New("actor is not allowed to act on this booking")
	ErrInvalidTransition = errors.New("status transition is not allowed")
)

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	UserID uint
	Role   models.Role
}

var forward = map[models.BookingStatus]models.BookingStatus{
	models.StatusPending:    models.StatusConfirmed,
	models.StatusConfirmed:  models.StatusOnWay,
	models.StatusOnWay:      models.StatusInProgress,
	models.StatusInProgress: models.StatusCompleted,
}

// IsOwnerEditable reports whether the booking owner may still reschedule,
// edit notes on or cancel a booking in this status.
func IsOwnerEditable(s models.BookingStatus) bool {
	return s == models.StatusPending || s == models.StatusConfirmed
}

// NextStatus returns the single status a booking may advance to from s.
func NextStatus(s models.BookingStatus) (models.BookingStatus, bool) {
	next, ok := forward[s]
	return next, ok
}

// CheckAdvance allows exactly one step along the forward chain.
func CheckAdvance(from, to models.BookingStatus) error {
	if from.IsTerminal() {
		return ErrImmutableBooking
	}
	if next, ok := NextStatus(from); !ok || next != to {
		return ErrInvalidTransition
	}
	return nil
}

func CheckCancel(s models.BookingStatus) error {
	if !IsOwnerEditable(s) {
		return ErrImmutableBooking
	}
	return nil
}

func isOwner(a Actor, b *models.Booking) bool {
	return b.ClientID != nil && *b.ClientID == a.UserID
}

func AuthorizeCreate(a Actor) error {
	switch a.Role {
	case models.RoleClient, models.RoleAdmin:
		return nil
	case models.RoleEmployee:
	}
	return ErrUnauthorized
}

func AuthorizeView(a Actor, b *models.Booking) error {
	switch a.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleEmployee:
		if b.EmployeeID == a.UserID {
			return nil
		}
	case models.RoleClient:
		if isOwner(a, b) {
			return nil
		}
	}
	return ErrUnauthorized
}

// AuthorizeOwnerEdit covers reschedule and notes: only the client who owns the booking.
func AuthorizeOwnerEdit(a Actor, b *models.Booking) error {
	switch a.Role {
	case models.RoleClient:
		if isOwner(a, b) {
			return nil
		}
	case models.RoleAdmin, models.RoleEmployee:
	}
	return ErrUnauthorized
}

func AuthorizeCancel(a Actor, b *models.Booking) error {
	switch a.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleClient:
		if isOwner(a, b) {
			return nil
		}
	case models.RoleEmployee:
	}
	return ErrUnauthorized
}

// AuthorizeAdvance lets admins move any booking and employees only their own jobs.
func AuthorizeAdvance(a Actor, b *models.Booking) error {
	switch a.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleEmployee:
		if b.EmployeeID == a.UserID {
			return nil
		}
	case models.RoleClient:
	}
	return ErrUnauthorized
}

func AuthorizeAssign(a Actor) error {
	switch a.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleEmployee, models.RoleClient:
	}
	return ErrUnauthorized
}

// AppendCancellation keeps the existing notes and adds the reason on a new line.
func AppendCancellation(notes string, by models.Role, reason string) string {
	who := "client"
	switch by {
	case models.RoleAdmin:
		who = "admin"
	case models.RoleEmployee:
		who = "employee"
	case models.RoleClient:
	}
	line := "Cancelled by " + who + ": " + strings.TrimSpace(reason)
	if strings.TrimSpace(notes) == "" {
		return line
	}
	return notes + "\n" + line
}
