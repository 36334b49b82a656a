package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/dto"
	"github.com/AngelAdrianVR/WashApp/internal/lifecycle"
	"github.com/AngelAdrianVR/WashApp/internal/middleware"
	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/AngelAdrianVR/WashApp/internal/repository/memory"
	"github.com/AngelAdrianVR/WashApp/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createFn  func(ctx context.Context, actor lifecycle.Actor, in service.BookingInput) (*models.Booking, error)
	updateFn  func(ctx context.Context, actor lifecycle.Actor, id uint, in service.BookingInput) (*models.Booking, error)
	cancelFn  func(ctx context.Context, actor lifecycle.Actor, id uint, reason string) (*models.Booking, error)
	notesFn   func(ctx context.Context, actor lifecycle.Actor, id uint, notes string) (*models.Booking, error)
	advanceFn func(ctx context.Context, actor lifecycle.Actor, id uint, to models.BookingStatus) (*models.Booking, error)
	assignFn  func(ctx context.Context, actor lifecycle.Actor, id uint, employeeID uint) (*models.Booking, error)
	getFn     func(ctx context.Context, actor lifecycle.Actor, id uint) (*models.Booking, error)
	listFn    func(ctx context.Context, actor lifecycle.Actor, status *models.BookingStatus, page int) ([]models.Booking, int64, error)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, actor lifecycle.Actor, in service.BookingInput) (*models.Booking, error) {
	return m.createFn(ctx, actor, in)
}
func (m *mockBookingService) UpdateBooking(ctx context.Context, actor lifecycle.Actor, id uint, in service.BookingInput) (*models.Booking, error) {
	return m.updateFn(ctx, actor, id, in)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, actor lifecycle.Actor, id uint, reason string) (*models.Booking, error) {
	return m.cancelFn(ctx, actor, id, reason)
}
func (m *mockBookingService) UpdateNotes(ctx context.Context, actor lifecycle.Actor, id uint, notes string) (*models.Booking, error) {
	return m.notesFn(ctx, actor, id, notes)
}
func (m *mockBookingService) AdvanceStatus(ctx context.Context, actor lifecycle.Actor, id uint, to models.BookingStatus) (*models.Booking, error) {
	return m.advanceFn(ctx, actor, id, to)
}
func (m *mockBookingService) AssignEmployee(ctx context.Context, actor lifecycle.Actor, id uint, employeeID uint) (*models.Booking, error) {
	return m.assignFn(ctx, actor, id, employeeID)
}
func (m *mockBookingService) GetBooking(ctx context.Context, actor lifecycle.Actor, id uint) (*models.Booking, error) {
	return m.getFn(ctx, actor, id)
}
func (m *mockBookingService) ListBookings(ctx context.Context, actor lifecycle.Actor, status *models.BookingStatus, page int) ([]models.Booking, int64, error) {
	return m.listFn(ctx, actor, status, page)
}

// --- Mock AvailabilityService ---

type mockAvailability struct {
	fn func(ctx context.Context, date string, duration int) ([]string, error)
}

func (m *mockAvailability) AvailableTimes(ctx context.Context, date string, duration int) ([]string, error) {
	return m.fn(ctx, date, duration)
}

// --- helpers ---

var clientActor = lifecycle.Actor{UserID: 100, Role: models.RoleClient}

func newContext(method, target, body string, actor *lifecycle.Actor) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != nil {
		middleware.SetActor(c, *actor)
	}
	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected *echo.HTTPError, got %v", err)
	return he
}

func sampleBooking() *models.Booking {
	client := uint(100)
	start := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID:              7,
		ClientID:        &client,
		EmployeeID:      1,
		GuestName:       "Ana",
		ScheduledAt:     start,
		EndsAt:          start.Add(75 * time.Minute),
		DurationMinutes: 75,
		Status:          models.StatusPending,
		TotalPrice:      decimal.RequireFromString("400.00"),
		PaymentMethod:   models.PaymentCash,
		Items: []models.BookingItem{
			{ServiceID: 1, PriceAtBooking: decimal.RequireFromString("150.00"), DurationMinutesAtBooking: 30},
			{ServiceID: 2, PriceAtBooking: decimal.RequireFromString("250.00"), DurationMinutesAtBooking: 45},
		},
	}
}

// --- Tests ---

func TestCreateBooking_Handler_Success(t *testing.T) {
	var got service.BookingInput
	svc := &mockBookingService{
		createFn: func(ctx context.Context, actor lifecycle.Actor, in service.BookingInput) (*models.Booking, error) {
			assert.Equal(t, clientActor, actor)
			got = in
			return sampleBooking(), nil
		},
	}

	body := `{"name":"Ana","phone_number":"555","services":[1,2],"scheduled_at":"2026-03-10 11:00",
		"address":"Calle 1","latitude":20.6,"longitude":-103.3,"payment_method":"cash","total_price":"400.00"}`
	c, rec := newContext(http.MethodPost, "/api/v1/bookings", body, &clientActor)

	h := NewBookingHandler(svc, nil)
	err := h.CreateBooking(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []uint{1, 2}, got.ServiceIDs)
	assert.Equal(t, "2026-03-10 11:00", got.ScheduledAt)
	require.NotNil(t, got.TotalPrice)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("400")))

	var resp dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(7), resp.ID)
	assert.Equal(t, 75, resp.DurationMinutes)
	assert.Len(t, resp.Services, 2)
	assert.Equal(t, models.StatusPending, resp.Status)
}

func TestCreateBooking_Handler_RequiresActor(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/v1/bookings", `{}`, nil)

	err := NewBookingHandler(&mockBookingService{}, nil).CreateBooking(c)

	assert.Equal(t, http.StatusUnauthorized, httpError(t, err).Code)
}

func TestCreateBooking_Handler_InvalidBody(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/api/v1/bookings", `{"services":"x"`, &clientActor)

	err := NewBookingHandler(&mockBookingService{}, nil).CreateBooking(c)

	assert.Equal(t, http.StatusBadRequest, httpError(t, err).Code)
}

func TestCreateBooking_Handler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"name": "required"}}, http.StatusUnprocessableEntity},
		{"slot unavailable", service.ErrSlotUnavailable, http.StatusConflict},
		{"unauthorized", lifecycle.ErrUnauthorized, http.StatusForbidden},
		{"transaction failed", service.ErrTransactionFailed, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				createFn: func(ctx context.Context, actor lifecycle.Actor, in service.BookingInput) (*models.Booking, error) {
					return nil, tt.err
				},
			}
			c, _ := newContext(http.MethodPost, "/api/v1/bookings", `{}`, &clientActor)

			err := NewBookingHandler(svc, nil).CreateBooking(c)

			assert.Equal(t, tt.code, httpError(t, err).Code)
		})
	}
}

func TestCreateBooking_Handler_ValidationBody(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, actor lifecycle.Actor, in service.BookingInput) (*models.Booking, error) {
			return nil, &service.ValidationError{Fields: map[string]string{"address": "the address field is required"}}
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/bookings", `{}`, &clientActor)

	err := NewBookingHandler(svc, nil).CreateBooking(c)

	he := httpError(t, err)
	body, ok := he.Message.(dto.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "the address field is required", body.Errors["address"])
}

func TestCreateBooking_Handler_TransactionFailedHidesCause(t *testing.T) {
	cause := errors.New("pq: connection reset")
	svc := &mockBookingService{
		createFn: func(ctx context.Context, actor lifecycle.Actor, in service.BookingInput) (*models.Booking, error) {
			return nil, errors.Join(service.ErrTransactionFailed, cause)
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/bookings", `{}`, &clientActor)

	err := NewBookingHandler(svc, nil).CreateBooking(c)

	he := httpError(t, err)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.NotContains(t, he.Message, "pq:")
}

func TestUpdateBooking_Handler(t *testing.T) {
	svc := &mockBookingService{
		updateFn: func(ctx context.Context, actor lifecycle.Actor, id uint, in service.BookingInput) (*models.Booking, error) {
			assert.Equal(t, uint(7), id)
			return sampleBooking(), nil
		},
	}
	c, rec := newContext(http.MethodPut, "/api/v1/bookings/7", `{"name":"Ana"}`, &clientActor)

	err := NewBookingHandler(svc, nil).UpdateBooking(withID(c, "7"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateBooking_Handler_Immutable(t *testing.T) {
	svc := &mockBookingService{
		updateFn: func(ctx context.Context, actor lifecycle.Actor, id uint, in service.BookingInput) (*models.Booking, error) {
			return nil, lifecycle.ErrImmutableBooking
		},
	}
	c, _ := newContext(http.MethodPut, "/api/v1/bookings/7", `{}`, &clientActor)

	err := NewBookingHandler(svc, nil).UpdateBooking(withID(c, "7"))

	assert.Equal(t, http.StatusConflict, httpError(t, err).Code)
}

func TestCancelBooking_Handler(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, actor lifecycle.Actor, id uint, reason string) (*models.Booking, error) {
			assert.Equal(t, "plans changed", reason)
			b := sampleBooking()
			b.Status = models.StatusCancelled
			b.CancellationReason = reason
			return b, nil
		},
	}
	c, rec := newContext(http.MethodPatch, "/api/v1/bookings/7/cancel", `{"reason":"plans changed"}`, &clientActor)

	err := NewBookingHandler(svc, nil).CancelBooking(withID(c, "7"))

	require.NoError(t, err)
	var resp dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusCancelled, resp.Status)
	assert.Equal(t, "plans changed", resp.CancellationReason)
}

func TestCancelBooking_Handler_InvalidID(t *testing.T) {
	c, _ := newContext(http.MethodPatch, "/api/v1/bookings/abc/cancel", `{}`, &clientActor)

	err := NewBookingHandler(&mockBookingService{}, nil).CancelBooking(withID(c, "abc"))

	assert.Equal(t, http.StatusBadRequest, httpError(t, err).Code)
}

func TestCancelBooking_Handler_NotFound(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, actor lifecycle.Actor, id uint, reason string) (*models.Booking, error) {
			return nil, service.ErrBookingNotFound
		},
	}
	c, _ := newContext(http.MethodPatch, "/api/v1/bookings/99/cancel", `{"reason":"x"}`, &clientActor)

	err := NewBookingHandler(svc, nil).CancelBooking(withID(c, "99"))

	assert.Equal(t, http.StatusNotFound, httpError(t, err).Code)
}

func TestUpdateNotes_Handler(t *testing.T) {
	svc := &mockBookingService{
		notesFn: func(ctx context.Context, actor lifecycle.Actor, id uint, notes string) (*models.Booking, error) {
			b := sampleBooking()
			b.Notes = notes
			return b, nil
		},
	}
	c, rec := newContext(http.MethodPatch, "/api/v1/bookings/7/notes", `{"notes":"gate code 1234"}`, &clientActor)

	err := NewBookingHandler(svc, nil).UpdateNotes(withID(c, "7"))

	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "gate code 1234")
}

func TestAdvanceStatus_Handler(t *testing.T) {
	employee := lifecycle.Actor{UserID: 1, Role: models.RoleEmployee}
	svc := &mockBookingService{
		advanceFn: func(ctx context.Context, actor lifecycle.Actor, id uint, to models.BookingStatus) (*models.Booking, error) {
			assert.Equal(t, employee, actor)
			assert.Equal(t, models.StatusConfirmed, to)
			b := sampleBooking()
			b.Status = to
			return b, nil
		},
	}
	c, rec := newContext(http.MethodPatch, "/api/v1/bookings/7/status", `{"status":"confirmed"}`, &employee)

	err := NewBookingHandler(svc, nil).AdvanceStatus(withID(c, "7"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdvanceStatus_Handler_UnknownStatus(t *testing.T) {
	c, _ := newContext(http.MethodPatch, "/api/v1/bookings/7/status", `{"status":"teleported"}`, &clientActor)

	err := NewBookingHandler(&mockBookingService{}, nil).AdvanceStatus(withID(c, "7"))

	assert.Equal(t, http.StatusUnprocessableEntity, httpError(t, err).Code)
}

func TestAdvanceStatus_Handler_InvalidTransition(t *testing.T) {
	svc := &mockBookingService{
		advanceFn: func(ctx context.Context, actor lifecycle.Actor, id uint, to models.BookingStatus) (*models.Booking, error) {
			return nil, lifecycle.ErrInvalidTransition
		},
	}
	c, _ := newContext(http.MethodPatch, "/api/v1/bookings/7/status", `{"status":"completed"}`, &clientActor)

	err := NewBookingHandler(svc, nil).AdvanceStatus(withID(c, "7"))

	assert.Equal(t, http.StatusConflict, httpError(t, err).Code)
}

func TestAssignEmployee_Handler(t *testing.T) {
	admin := lifecycle.Actor{UserID: 50, Role: models.RoleAdmin}
	svc := &mockBookingService{
		assignFn: func(ctx context.Context, actor lifecycle.Actor, id uint, employeeID uint) (*models.Booking, error) {
			b := sampleBooking()
			b.EmployeeID = employeeID
			return b, nil
		},
	}
	c, rec := newContext(http.MethodPatch, "/api/v1/bookings/7/assign", `{"employee_id":2}`, &admin)

	err := NewBookingHandler(svc, nil).AssignEmployee(withID(c, "7"))

	require.NoError(t, err)
	var resp dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(2), resp.EmployeeID)
}

func TestAssignEmployee_Handler_MissingEmployee(t *testing.T) {
	admin := lifecycle.Actor{UserID: 50, Role: models.RoleAdmin}
	c, _ := newContext(http.MethodPatch, "/api/v1/bookings/7/assign", `{}`, &admin)

	err := NewBookingHandler(&mockBookingService{}, nil).AssignEmployee(withID(c, "7"))

	assert.Equal(t, http.StatusUnprocessableEntity, httpError(t, err).Code)
}

func TestGetBooking_Handler_Forbidden(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, actor lifecycle.Actor, id uint) (*models.Booking, error) {
			return nil, lifecycle.ErrUnauthorized
		},
	}
	c, _ := newContext(http.MethodGet, "/api/v1/bookings/7", "", &clientActor)

	err := NewBookingHandler(svc, nil).GetBooking(withID(c, "7"))

	assert.Equal(t, http.StatusForbidden, httpError(t, err).Code)
}

func TestListBookings_Handler(t *testing.T) {
	svc := &mockBookingService{
		listFn: func(ctx context.Context, actor lifecycle.Actor, status *models.BookingStatus, page int) ([]models.Booking, int64, error) {
			require.NotNil(t, status)
			assert.Equal(t, models.StatusPending, *status)
			assert.Equal(t, 2, page)
			return []models.Booking{*sampleBooking()}, 21, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/bookings?status=pending&page=2", "", &clientActor)

	err := NewBookingHandler(svc, nil).ListBookings(c)

	require.NoError(t, err)
	var resp dto.BookingListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(21), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Len(t, resp.Data, 1)
}

func TestListBookings_Handler_BadQuery(t *testing.T) {
	for _, target := range []string{"/api/v1/bookings?status=nope", "/api/v1/bookings?page=0"} {
		c, _ := newContext(http.MethodGet, target, "", &clientActor)

		err := NewBookingHandler(&mockBookingService{}, nil).ListBookings(c)

		assert.Equal(t, http.StatusBadRequest, httpError(t, err).Code, target)
	}
}

func TestAvailableTimes_Handler(t *testing.T) {
	avail := &mockAvailability{
		fn: func(ctx context.Context, date string, duration int) ([]string, error) {
			assert.Equal(t, "2026-03-10", date)
			assert.Equal(t, 75, duration)
			return []string{"11:00", "11:30"}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/bookings/available-times", `{"date":"2026-03-10","duration":75}`, &clientActor)

	err := NewBookingHandler(nil, avail).AvailableTimes(c)

	require.NoError(t, err)
	var slots []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	assert.Equal(t, []string{"11:00", "11:30"}, slots)
}

func TestAvailableTimes_Handler_EmptyIsArray(t *testing.T) {
	avail := &mockAvailability{
		fn: func(ctx context.Context, date string, duration int) ([]string, error) {
			return []string{}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/bookings/available-times", `{"date":"2026-03-10","duration":30}`, &clientActor)

	err := NewBookingHandler(nil, avail).AvailableTimes(c)

	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListServices_Handler(t *testing.T) {
	store := memory.New()
	store.AddService(models.Service{ID: 1, Name: "Wax", Price: decimal.NewFromInt(300), DurationMinutes: 40, Type: models.ServiceTypeDry, IsActive: true})
	store.AddService(models.Service{ID: 2, Name: "Exterior wash", Price: decimal.NewFromInt(150), DurationMinutes: 30, Type: models.ServiceTypeWater, IsActive: true})
	store.AddService(models.Service{ID: 3, Name: "Retired", Price: decimal.NewFromInt(10), DurationMinutes: 10, Type: models.ServiceTypeDry})

	c, rec := newContext(http.MethodGet, "/api/v1/services", "", &clientActor)

	err := NewCatalogHandler(store.Services()).ListServices(c)

	require.NoError(t, err)
	var resp []dto.ServiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "Exterior wash", resp[0].Name)
	assert.Equal(t, "Wax", resp[1].Name)
}
