package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/candraczapansky/LiveBooking-sub003/external/helcim"
	"github.com/candraczapansky/LiveBooking-sub003/internal/middleware"
	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
	"github.com/candraczapansky/LiveBooking-sub003/internal/repository"
	"github.com/candraczapansky/LiveBooking-sub003/internal/services"
)

func registerTerminalRoutes(
	g *echo.Group,
	terminals *repository.TerminalConfigRepository,
	svc *services.TerminalPaymentService,
	poller *services.PaymentPoller,
) {
	t := g.Group("/terminal")
	t.Use(middleware.JWTMiddleware())

	// ============================
	// TERMINAL PAIRING
	// ============================
	// Pairing stores provider credentials, so it is restricted to managers.
	t.POST("/initialize", initializeTerminal(terminals), middleware.ManagerOnly)

	t.GET("/status/:locationId", func(c echo.Context) error {
		locationID, err := strconv.ParseInt(c.Param("locationId"), 10, 64)
		if err != nil || locationID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid location id"})
		}

		cfg, err := terminals.GetByLocation(c.Request().Context(), locationID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": err.Error()})
		}
		if cfg == nil {
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"message": "terminal not configured for this location",
			})
		}

		return c.JSON(http.StatusOK, echo.Map{
			"success":          true,
			"status":           "configured",
			"terminalId":       cfg.TerminalID,
			"deviceIdentifier": cfg.DeviceCode,
		})
	})

	// ============================
	// PAYMENT LIFECYCLE
	// ============================
	t.POST("/payment/start", func(c echo.Context) error {
		var req struct {
			LocationID    int64           `json:"locationId"`
			AppointmentID int64           `json:"appointmentId"`
			ClientID      int64           `json:"clientId"`
			Amount        decimal.Decimal `json:"amount"`
			TipAmount     decimal.Decimal `json:"tipAmount"`
			Reference     string          `json:"reference"`
			Description   string          `json:"description"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid payload"})
		}
		if req.LocationID <= 0 || !req.Amount.IsPositive() {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success": false,
				"message": "locationId and a positive amount are required",
			})
		}

		result, err := svc.StartPurchase(c.Request().Context(), services.StartPurchaseInput{
			LocationID:    req.LocationID,
			AppointmentID: req.AppointmentID,
			ClientID:      req.ClientID,
			Amount:        req.Amount,
			TipAmount:     req.TipAmount,
			Reference:     req.Reference,
			Description:   req.Description,
		})
		if err != nil {
			return terminalError(c, err)
		}

		// Drive the purchase to conclusion in the background; the UI follows
		// along via the status route.
		poller.Start(req.LocationID, result.PaymentID)

		return c.JSON(http.StatusOK, echo.Map{
			"success":       true,
			"paymentId":     result.PaymentID,
			"transactionId": result.TransactionID,
			"status":        result.Status,
		})
	})

	t.GET("/payment/:locationId/:paymentId", func(c echo.Context) error {
		locationID, paymentID, err := pathIDs(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
		}

		result, err := svc.CheckAndSettle(c.Request().Context(), locationID, paymentID)
		if err != nil {
			return terminalError(c, err)
		}

		resp := echo.Map{
			"success": true,
			"status":  result.Status,
		}
		if result.TransactionID != nil {
			resp["transactionId"] = *result.TransactionID
		}
		if result.CardLast4 != nil {
			resp["cardLast4"] = *result.CardLast4
		}
		if result.TerminalID != "" {
			resp["terminalId"] = result.TerminalID
		}
		return c.JSON(http.StatusOK, resp)
	})

	t.POST("/payment/:locationId/:paymentId/cancel", func(c echo.Context) error {
		locationID, paymentID, err := pathIDs(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
		}

		poller.Cancel(paymentID)

		if err := svc.CancelPurchase(c.Request().Context(), locationID, paymentID); err != nil {
			return terminalError(c, err)
		}

		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "cancel requested on terminal",
		})
	})

	// Manual completion fallback: used when the operator confirms an outcome
	// the poller could not. Settlement stays idempotent.
	t.POST("/complete-payment", func(c echo.Context) error {
		var req struct {
			TransactionID string `json:"transactionId"`
			AppointmentID int64  `json:"appointmentId"`
			PaymentID     int64  `json:"paymentId"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid payload"})
		}
		if req.PaymentID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "paymentId is required"})
		}

		result, err := svc.CompletePayment(c.Request().Context(), req.PaymentID, req.TransactionID)
		if err != nil {
			return terminalError(c, err)
		}

		resp := echo.Map{
			"success":       true,
			"status":        model.PaymentStatusCompleted,
			"transactionId": req.TransactionID,
			"paymentId":     req.PaymentID,
			"appointmentId": req.AppointmentID,
		}
		if !result.EarningsSynced {
			resp["warning"] = "earnings sync may be incomplete, review staff payouts"
		}
		return c.JSON(http.StatusOK, resp)
	})
}

func initializeTerminal(terminals *repository.TerminalConfigRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			LocationID int64  `json:"locationId"`
			TerminalID string `json:"terminalId"`
			DeviceCode string `json:"deviceIdentifier"`
			Credential string `json:"credential"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid payload"})
		}
		if req.LocationID <= 0 || req.DeviceCode == "" || req.Credential == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success": false,
				"message": "locationId, deviceIdentifier and credential are required",
			})
		}
		if req.TerminalID == "" {
			req.TerminalID = req.DeviceCode
		}

		cfg := &model.TerminalConfig{
			LocationID: req.LocationID,
			TerminalID: req.TerminalID,
			DeviceCode: req.DeviceCode,
			APIToken:   req.Credential,
		}
		if err := terminals.Save(c.Request().Context(), cfg); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": err.Error()})
		}

		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "terminal configured",
		})
	}
}

func pathIDs(c echo.Context) (locationID, paymentID int64, err error) {
	locationID, err = strconv.ParseInt(c.Param("locationId"), 10, 64)
	if err != nil || locationID <= 0 {
		return 0, 0, errors.New("invalid location id")
	}
	paymentID, err = strconv.ParseInt(c.Param("paymentId"), 10, 64)
	if err != nil || paymentID <= 0 {
		return 0, 0, errors.New("invalid payment id")
	}
	return locationID, paymentID, nil
}

// terminalError translates service and gateway failures into the response
// taxonomy: missing pairing is a 404 the operator can fix, provider errors
// carry the provider's message, and a confirmed charge that failed to sync
// is always flagged for support rather than reported as a payment failure.
func terminalError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrTerminalNotConfigured):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": err.Error()})

	case errors.Is(err, services.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": err.Error()})

	case errors.Is(err, services.ErrSettlementSyncFailed):
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "payment succeeded on the terminal but failed to sync, contact support",
		})
	}

	var gw *helcim.GatewayError
	if errors.As(err, &gw) {
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "message": gw.Message})
	}

	return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": err.Error()})
}
