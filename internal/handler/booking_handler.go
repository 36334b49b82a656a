package handler

import (
	"net/http"
	"strconv"

	"github.com/AngelAdrianVR/WashApp/internal/dto"
	"github.com/AngelAdrianVR/WashApp/internal/lifecycle"
	"github.com/AngelAdrianVR/WashApp/internal/middleware"
	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/AngelAdrianVR/WashApp/internal/repository"
	"github.com/AngelAdrianVR/WashApp/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc   service.BookingService
	avail service.AvailabilityService
}

func NewBookingHandler(svc service.BookingService, avail service.AvailabilityService) *BookingHandler {
	return &BookingHandler{svc: svc, avail: avail}
}

// RegisterRoutes mounts the booking routes on g, which must already carry JWTAuth.
func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	bookings := g.Group("/bookings")
	bookings.POST("/available-times", h.AvailableTimes)
	bookings.POST("", h.CreateBooking)
	bookings.GET("", h.ListBookings)
	bookings.GET("/:id", h.GetBooking)
	bookings.PUT("/:id", h.UpdateBooking)
	bookings.PATCH("/:id/cancel", h.CancelBooking)
	bookings.PATCH("/:id/notes", h.UpdateNotes)
	bookings.PATCH("/:id/status", h.AdvanceStatus)
	bookings.PATCH("/:id/assign", h.AssignEmployee)
}

func (h *BookingHandler) AvailableTimes(c echo.Context) error {
	var req dto.AvailableTimesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	slots, err := h.avail.AvailableTimes(c.Request().Context(), req.Date, req.Duration)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req dto.BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), actor, req.ToInput())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) UpdateBooking(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}

	var req dto.BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	booking, err := h.svc.UpdateBooking(c.Request().Context(), actor, id, req.ToInput())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}

	var req dto.CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	booking, err := h.svc.CancelBooking(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) UpdateNotes(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateNotesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	booking, err := h.svc.UpdateNotes(c.Request().Context(), actor, id, req.Notes)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) AdvanceStatus(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.Status.Valid() {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Message: "the given data was invalid",
			Errors:  map[string]string{"status": "the selected status is invalid"},
		})
	}

	booking, err := h.svc.AdvanceStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) AssignEmployee(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}

	var req dto.AssignEmployeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.EmployeeID == 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Message: "the given data was invalid",
			Errors:  map[string]string{"employee_id": "the employee id field is required"},
		})
	}

	booking, err := h.svc.AssignEmployee(c.Request().Context(), actor, id, req.EmployeeID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	actor, id, err := actorAndID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		if !bs.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		status = &bs
	}

	page := 1
	if p := c.QueryParam("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		page = n
	}

	bookings, total, err := h.svc.ListBookings(c.Request().Context(), actor, status, page)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.BookingListResponse{
		Data:     make([]dto.BookingResponse, len(bookings)),
		Page:     page,
		PageSize: repository.DefaultPageSize,
		Total:    total,
	}
	for i := range bookings {
		resp.Data[i] = dto.ToBookingResponse(&bookings[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func actorOf(c echo.Context) (lifecycle.Actor, error) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		return lifecycle.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return a, nil
}

func actorAndID(c echo.Context) (lifecycle.Actor, uint, error) {
	a, err := actorOf(c)
	if err != nil {
		return a, 0, err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return a, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	return a, uint(id), nil
}
