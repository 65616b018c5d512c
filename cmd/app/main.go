package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/candraczapansky/LiveBooking-sub003/external/helcim"
	"github.com/candraczapansky/LiveBooking-sub003/internal/db"
	"github.com/candraczapansky/LiveBooking-sub003/internal/repository"
	"github.com/candraczapansky/LiveBooking-sub003/internal/services"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	// ======================
	// INFRA
	// ======================
	pool, err := db.Connect()
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	cipher, err := services.NewCredentialCipher()
	if err != nil {
		log.Fatal(err)
	}

	// ======================
	// EXTERNALS
	// ======================
	gateway := helcim.NewClient(
		os.Getenv("HELCIM_API_URL"),
		os.Getenv("HELCIM_MERCHANT_TOKEN"),
	)

	// ======================
	// REPOSITORIES
	// ======================
	terminalRepo := repository.NewTerminalConfigRepository(pool, cipher)
	paymentRepo := repository.NewPaymentRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	serviceRepo := repository.NewSalonServiceRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	earningsRepo := repository.NewEarningsRepository(pool)

	if err := terminalRepo.EnsureSchema(context.Background()); err != nil {
		log.Fatal(err)
	}

	// ======================
	// SERVICES
	// ======================
	sessions := services.NewSessionTracker()
	terminalSvc := services.NewTerminalPaymentService(
		paymentRepo,
		appointmentRepo,
		serviceRepo,
		staffRepo,
		earningsRepo,
		terminalRepo,
		gateway,
		sessions,
	)
	poller := services.NewPaymentPoller(terminalSvc)

	// ======================
	// ECHO
	// ======================
	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/salon")

	// ======================
	// ROUTES (ONLY REGISTRATION)
	// ======================
	registerTerminalRoutes(api, terminalRepo, terminalSvc, poller)
	registerAppointmentRoutes(api, appointmentRepo, paymentRepo)

	// ======================
	// SERVER
	// ======================
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
