package handler

import (
	"errors"
	"net/http"

	"github.com/AngelAdrianVR/WashApp/internal/dto"
	"github.com/AngelAdrianVR/WashApp/internal/lifecycle"
	"github.com/AngelAdrianVR/WashApp/internal/scheduling"
	"github.com/AngelAdrianVR/WashApp/internal/service"
	"github.com/labstack/echo/v4"
)

func toHTTPError(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Message: "the given data was invalid",
			Errors:  verr.Fields,
		})
	case errors.Is(err, scheduling.ErrInvalidServiceSet):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Message: "the given data was invalid",
			Errors:  map[string]string{"services": err.Error()},
		})
	case errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, scheduling.ErrNoAvailableEmployee):
		return echo.NewHTTPError(http.StatusConflict, service.ErrSlotUnavailable.Error())
	case errors.Is(err, lifecycle.ErrImmutableBooking),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTransactionFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save booking, please try again").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
