package main

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/candraczapansky/LiveBooking-sub003/internal/middleware"
	"github.com/candraczapansky/LiveBooking-sub003/internal/repository"
)

// Read-only appointment surface. The scheduling side of the platform owns
// appointment CRUD; checkout only needs to show payment state.
func registerAppointmentRoutes(
	g *echo.Group,
	appointments *repository.AppointmentRepository,
	payments *repository.PaymentRepository,
) {
	a := g.Group("/appointments")
	a.Use(middleware.JWTMiddleware())

	a.GET("/:id", func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
		}

		appointment, err := appointments.GetByID(c.Request().Context(), id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		if appointment == nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "appointment not found"})
		}

		return c.JSON(http.StatusOK, appointment)
	})

	a.GET("/:id/payments", func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
		}

		list, err := payments.ListByAppointment(c.Request().Context(), id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}

		return c.JSON(http.StatusOK, echo.Map{"payments": list})
	})
}
