package middleware

import (
	"errors"
	"net/http"

	"github.com/AngelAdrianVR/WashApp/internal/dto"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as dto.ErrorResponse. Errors that are not
// *echo.HTTPError become a generic 500 so internal detail never leaks.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := dto.ErrorResponse{Message: "internal server error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			body.Message = m
		case dto.ErrorResponse:
			body = m
		default:
			body.Message = http.StatusText(code)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
