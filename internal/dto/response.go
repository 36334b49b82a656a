package dto

import (
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/shopspring/decimal"
)

type BookingItemResponse struct {
	ServiceID       uint            `json:"service_id"`
	Name            string          `json:"name,omitempty"`
	PriceAtBooking  decimal.Decimal `json:"price_at_booking"`
	DurationMinutes int             `json:"duration_minutes"`
}

type BookingResponse struct {
	ID                 uint                  `json:"id"`
	ClientID           *uint                 `json:"client_id,omitempty"`
	EmployeeID         uint                  `json:"employee_id"`
	Name               string                `json:"name"`
	PhoneNumber        string                `json:"phone_number"`
	ScheduledAt        time.Time             `json:"scheduled_at"`
	EndsAt             time.Time             `json:"ends_at"`
	DurationMinutes    int                   `json:"duration_minutes"`
	Status             models.BookingStatus  `json:"status"`
	TotalPrice         decimal.Decimal       `json:"total_price"`
	PaymentMethod      models.PaymentMethod  `json:"payment_method"`
	Address            string                `json:"address"`
	Latitude           float64               `json:"latitude"`
	Longitude          float64               `json:"longitude"`
	Notes              string                `json:"notes"`
	CancellationReason string                `json:"cancellation_reason,omitempty"`
	Services           []BookingItemResponse `json:"services"`
	CreatedAt          time.Time             `json:"created_at"`
}

type BookingListResponse struct {
	Data     []BookingResponse `json:"data"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int64             `json:"total"`
}

type ServiceResponse struct {
	ID              uint               `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	Price           decimal.Decimal    `json:"price"`
	DurationMinutes int                `json:"duration_minutes"`
	Type            models.ServiceType `json:"type"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	items := make([]BookingItemResponse, len(b.Items))
	for i, it := range b.Items {
		items[i] = BookingItemResponse{
			ServiceID:       it.ServiceID,
			PriceAtBooking:  it.PriceAtBooking,
			DurationMinutes: it.DurationMinutesAtBooking,
		}
		if it.Service != nil {
			items[i].Name = it.Service.Name
		}
	}
	return BookingResponse{
		ID:                 b.ID,
		ClientID:           b.ClientID,
		EmployeeID:         b.EmployeeID,
		Name:               b.GuestName,
		PhoneNumber:        b.GuestPhone,
		ScheduledAt:        b.ScheduledAt,
		EndsAt:             b.EndsAt,
		DurationMinutes:    b.DurationMinutes,
		Status:             b.Status,
		TotalPrice:         b.TotalPrice,
		PaymentMethod:      b.PaymentMethod,
		Address:            b.Address,
		Latitude:           b.Latitude,
		Longitude:          b.Longitude,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		Services:           items,
		CreatedAt:          b.CreatedAt,
	}
}

func ToServiceResponse(s *models.Service) ServiceResponse {
	return ServiceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
		Type:            s.Type,
	}
}
