package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusOnWay      BookingStatus = "on_way"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// IsTerminal reports whether a booking in this status no longer occupies an employee.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusOnWay, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

type Booking struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	ClientID           *uint           `gorm:"index" json:"client_id,omitempty"`
	GuestName          string          `gorm:"type:varchar(255);not null" json:"guest_name"`
	GuestPhone         string          `gorm:"type:varchar(30)" json:"guest_phone"`
	EmployeeID         uint            `gorm:"not null;index" json:"employee_id"`
	ScheduledAt        time.Time       `gorm:"not null;index" json:"scheduled_at"`
	EndsAt             time.Time       `gorm:"not null" json:"ends_at"`
	DurationMinutes    int             `gorm:"not null" json:"duration_minutes"`
	Status             BookingStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalPrice         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	PaymentMethod      PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Address            string          `gorm:"type:varchar(500);not null" json:"address"`
	Latitude           float64         `gorm:"type:numeric(10,7);not null" json:"latitude"`
	Longitude          float64         `gorm:"type:numeric(10,7);not null" json:"longitude"`
	Notes              string          `gorm:"type:text" json:"notes"`
	CancellationReason string          `gorm:"type:varchar(255)" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Items []BookingItem `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// BookingItem is a service attached to a booking with the price and
// duration it had when the booking was placed.
type BookingItem struct {
	ID                       uint            `gorm:"primaryKey" json:"id"`
	BookingID                uint            `gorm:"not null;uniqueIndex:idx_booking_service" json:"booking_id"`
	ServiceID                uint            `gorm:"not null;uniqueIndex:idx_booking_service" json:"service_id"`
	PriceAtBooking           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_at_booking"`
	DurationMinutesAtBooking int             `gorm:"not null" json:"duration_minutes_at_booking"`

	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (BookingItem) TableName() string {
	return "booking_services"
}
