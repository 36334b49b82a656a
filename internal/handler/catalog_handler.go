package handler

import (
	"net/http"

	"github.com/AngelAdrianVR/WashApp/internal/dto"
	"github.com/AngelAdrianVR/WashApp/internal/repository"
	"github.com/labstack/echo/v4"
)

type CatalogHandler struct {
	services repository.ServiceRepository
}

func NewCatalogHandler(services repository.ServiceRepository) *CatalogHandler {
	return &CatalogHandler{services: services}
}

func (h *CatalogHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/services", h.ListServices)
}

// ListServices returns the active catalog ordered by name.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	services, err := h.services.ListActive(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.ServiceResponse, len(services))
	for i := range services {
		resp[i] = dto.ToServiceResponse(&services[i])
	}
	return c.JSON(http.StatusOK, resp)
}
