package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/shopspring/decimal"
)

const (
	ScheduleLayout = "2006-01-02 15:04"
	DateLayout     = "2006-01-02"

	maxNameLen    = 255
	maxPhoneLen   = 30
	maxAddressLen = 500
	maxNotesLen   = 1000
	maxReasonLen  = 255
)

// BookingInput is a create or reschedule request as submitted by the client.
// ScheduledAt is business-local wall time in ScheduleLayout.
type BookingInput struct {
	Name          string
	PhoneNumber   string
	ServiceIDs    []uint
	ScheduledAt   string
	Address       string
	Latitude      *float64
	Longitude     *float64
	PaymentMethod string
	Notes         string
	TotalPrice    *decimal.Decimal
}

type validBooking struct {
	name       string
	phone      string
	address    string
	notes      string
	serviceIDs []uint
	start      time.Time
	latitude   float64
	longitude  float64
	payment    models.PaymentMethod
	totalPrice decimal.Decimal
}

func validateBooking(in BookingInput, loc *time.Location, now time.Time) (*validBooking, error) {
	verr := &ValidationError{}
	v := &validBooking{
		name:    strings.TrimSpace(in.Name),
		phone:   strings.TrimSpace(in.PhoneNumber),
		address: strings.TrimSpace(in.Address),
		notes:   strings.TrimSpace(in.Notes),
		payment: models.PaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod))),
	}

	switch {
	case v.name == "":
		verr.add("name", "name is required")
	case utf8.RuneCountInString(v.name) > maxNameLen:
		verr.add("name", "name must not exceed 255 characters")
	}
	if utf8.RuneCountInString(v.phone) > maxPhoneLen {
		verr.add("phone_number", "phone_number must not exceed 30 characters")
	}
	switch {
	case v.address == "":
		verr.add("address", "address is required")
	case utf8.RuneCountInString(v.address) > maxAddressLen:
		verr.add("address", "address must not exceed 500 characters")
	}

	switch {
	case in.Latitude == nil:
		verr.add("latitude", "latitude is required")
	case *in.Latitude < -90 || *in.Latitude > 90:
		verr.add("latitude", "latitude must be between -90 and 90")
	default:
		v.latitude = *in.Latitude
	}
	switch {
	case in.Longitude == nil:
		verr.add("longitude", "longitude is required")
	case *in.Longitude < -180 || *in.Longitude > 180:
		verr.add("longitude", "longitude must be between -180 and 180")
	default:
		v.longitude = *in.Longitude
	}

	if len(in.ServiceIDs) == 0 {
		verr.add("services", "at least one service is required")
	}
	for _, id := range in.ServiceIDs {
		if id == 0 {
			verr.add("services", "service ids must be positive")
		}
	}
	v.serviceIDs = in.ServiceIDs

	if strings.TrimSpace(in.ScheduledAt) == "" {
		verr.add("scheduled_at", "scheduled_at is required")
	} else if start, err := time.ParseInLocation(ScheduleLayout, strings.TrimSpace(in.ScheduledAt), loc); err != nil {
		verr.add("scheduled_at", "scheduled_at must use the format YYYY-MM-DD HH:MM")
	} else if !start.After(now) {
		verr.add("scheduled_at", "scheduled_at must be in the future")
	} else {
		v.start = start
	}

	if !v.payment.Valid() {
		verr.add("payment_method", "payment_method must be one of cash, card, transfer")
	}
	if utf8.RuneCountInString(v.notes) > maxNotesLen {
		verr.add("notes", "notes must not exceed 1000 characters")
	}

	switch {
	case in.TotalPrice == nil:
		verr.add("total_price", "total_price is required")
	case in.TotalPrice.IsNegative():
		verr.add("total_price", "total_price must not be negative")
	default:
		v.totalPrice = *in.TotalPrice
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return v, nil
}

func validateReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	switch {
	case reason == "":
		return "", fieldError("reason", "reason is required")
	case utf8.RuneCountInString(reason) > maxReasonLen:
		return "", fieldError("reason", "reason must not exceed 255 characters")
	}
	return reason, nil
}

func validateNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return "", fieldError("notes", "notes must not exceed 1000 characters")
	}
	return notes, nil
}
