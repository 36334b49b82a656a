package dto

import (
	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/AngelAdrianVR/WashApp/internal/service"
	"github.com/shopspring/decimal"
)

// BookingRequest is the body of create and reschedule calls.
// ScheduledAt is business-local time as "YYYY-MM-DD HH:MM".
type BookingRequest struct {
	Name          string           `json:"name"`
	PhoneNumber   string           `json:"phone_number"`
	Services      []uint           `json:"services"`
	ScheduledAt   string           `json:"scheduled_at"`
	Address       string           `json:"address"`
	Latitude      *float64         `json:"latitude"`
	Longitude     *float64         `json:"longitude"`
	PaymentMethod string           `json:"payment_method"`
	Notes         string           `json:"notes"`
	TotalPrice    *decimal.Decimal `json:"total_price"`
}

func (r BookingRequest) ToInput() service.BookingInput {
	return service.BookingInput{
		Name:          r.Name,
		PhoneNumber:   r.PhoneNumber,
		ServiceIDs:    r.Services,
		ScheduledAt:   r.ScheduledAt,
		Address:       r.Address,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
		TotalPrice:    r.TotalPrice,
	}
}

type AvailableTimesRequest struct {
	Date     string `json:"date"`
	Duration int    `json:"duration"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

type UpdateStatusRequest struct {
	Status models.BookingStatus `json:"status"`
}

type AssignEmployeeRequest struct {
	EmployeeID uint `json:"employee_id"`
}
