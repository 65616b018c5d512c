package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/candraczapansky/LiveBooking-sub003/external/helcim"
	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

var (
	// ErrTerminalNotConfigured means no active terminal is paired with the
	// location. Recoverable, user-facing: re-pair the device.
	ErrTerminalNotConfigured = errors.New("terminal not configured for this location")

	ErrPaymentNotFound = errors.New("payment not found")

	// ErrSettlementSyncFailed means the terminal confirmed the charge but
	// neither the structured settlement nor the fallback write could record
	// it. Never presented as an ordinary payment failure.
	ErrSettlementSyncFailed = errors.New("payment succeeded on the terminal but failed to sync")
)

// Correlation conventions. Convention, not protocol: kept configurable for
// compatibility with existing provider-side records.
var (
	// amountTolerance is the maximum difference between a session's requested
	// total and a candidate transaction's amount for the two to correlate.
	amountTolerance = decimal.RequireFromString("0.01")

	invoicePrefix = "INV"
)

// PaymentStore is the payment side of the ledger collaborator.
type PaymentStore interface {
	CreatePending(ctx context.Context, p *model.Payment) (int64, error)
	GetByID(ctx context.Context, paymentID int64) (*model.Payment, error)
	// MarkCompleted applies the settle-once conditional update and reports
	// whether this call was the one that settled the row.
	MarkCompleted(ctx context.Context, paymentID int64, transactionID, cardLast4 *string) (bool, error)
	MarkFailed(ctx context.Context, paymentID int64) error
}

type AppointmentStore interface {
	GetByID(ctx context.Context, appointmentID int64) (*model.Appointment, error)
	SetPaymentStatus(ctx context.Context, appointmentID int64, status string) error
}

type ServiceStore interface {
	GetByID(ctx context.Context, serviceID int64) (*model.SalonService, error)
}

type StaffStore interface {
	GetByID(ctx context.Context, staffID int64) (*model.Staff, error)
}

type EarningsStore interface {
	ExistsForPayment(ctx context.Context, paymentID int64) (bool, error)
	Create(ctx context.Context, e *model.StaffEarnings) error
}

// TerminalConfigStore reports a missing pairing as (nil, nil); the service
// translates that into ErrTerminalNotConfigured.
type TerminalConfigStore interface {
	GetByLocation(ctx context.Context, locationID int64) (*model.TerminalConfig, error)
}

// TerminalGateway is the provider boundary, implemented by *helcim.Client.
type TerminalGateway interface {
	StartPurchase(ctx context.Context, apiToken, deviceCode string, req helcim.PurchaseRequest) (*helcim.StartResult, error)
	GetTransaction(ctx context.Context, apiToken, transactionID string) (*helcim.CardTransaction, error)
	SearchDeviceTransactions(ctx context.Context, apiToken, deviceCode, invoiceNumber string) ([]helcim.CardTransaction, error)
	SearchMerchantTransactions(ctx context.Context, invoiceNumber string) ([]helcim.CardTransaction, error)
	CancelPurchase(ctx context.Context, apiToken, deviceCode string) error
	HasMerchantToken() bool
}

type TerminalPaymentService struct {
	Payments     PaymentStore
	Appointments AppointmentStore
	Services     ServiceStore
	Staff        StaffStore
	Earnings     EarningsStore
	Terminals    TerminalConfigStore
	Gateway      TerminalGateway
	Sessions     *SessionTracker
}

func NewTerminalPaymentService(
	payments PaymentStore,
	appointments AppointmentStore,
	services ServiceStore,
	staff StaffStore,
	earnings EarningsStore,
	terminals TerminalConfigStore,
	gateway TerminalGateway,
	sessions *SessionTracker,
) *TerminalPaymentService {
	return &TerminalPaymentService{
		Payments:     payments,
		Appointments: appointments,
		Services:     services,
		Staff:        staff,
		Earnings:     earnings,
		Terminals:    terminals,
		Gateway:      gateway,
		Sessions:     sessions,
	}
}

type StartPurchaseInput struct {
	LocationID    int64
	AppointmentID int64
	ClientID      int64
	Amount        decimal.Decimal
	TipAmount     decimal.Decimal
	Reference     string
	Description   string
}

type StartPurchaseResult struct {
	PaymentID        int64
	TransactionID    string
	InvoiceReference string
	Status           string
}

// newInvoiceReference builds the client-generated correlation key: monotonic
// timestamp prefix plus entropy so references stay unique per purchase.
func newInvoiceReference() string {
	return fmt.Sprintf("%s%d-%s", invoicePrefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (s *TerminalPaymentService) terminalConfig(ctx context.Context, locationID int64) (*model.TerminalConfig, error) {
	cfg, err := s.Terminals.GetByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrTerminalNotConfigured
	}
	return cfg, nil
}

// StartPurchase initiates a card-present charge. The pending Payment row is
// created the moment the provider acknowledges, before the terminal
// confirms, so a charge in flight is always auditable. A provider failure
// aborts without creating any row.
func (s *TerminalPaymentService) StartPurchase(ctx context.Context, in StartPurchaseInput) (*StartPurchaseResult, error) {
	cfg, err := s.terminalConfig(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}

	invoiceRef := in.Reference
	if invoiceRef == "" {
		invoiceRef = newInvoiceReference()
	}

	total := in.Amount.Add(in.TipAmount).Round(2)

	start, err := s.Gateway.StartPurchase(ctx, cfg.APIToken, cfg.DeviceCode, helcim.PurchaseRequest{
		Amount:        in.Amount.Round(2),
		TipAmount:     in.TipAmount.Round(2),
		InvoiceNumber: invoiceRef,
		Description:   in.Description,
	})
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		AppointmentID:    in.AppointmentID,
		ClientID:         in.ClientID,
		LocationID:       in.LocationID,
		Amount:           in.Amount.Round(2),
		TipAmount:        in.TipAmount.Round(2),
		TotalAmount:      total,
		Method:           model.PaymentMethodCard,
		Status:           model.PaymentStatusPending,
		InvoiceReference: &invoiceRef,
	}
	if start.Outcome == helcim.OutcomeTransactionID {
		payment.TransactionID = &start.TransactionID
	}

	paymentID, err := s.Payments.CreatePending(ctx, payment)
	if err != nil {
		return nil, err
	}

	if start.Outcome == helcim.OutcomeInvoiceOnly {
		s.Sessions.Record(invoiceRef, in.LocationID, cfg.DeviceCode, total, in.Description)
	}

	if in.AppointmentID != 0 {
		if err := s.Appointments.SetPaymentStatus(ctx, in.AppointmentID, model.AppointmentPending); err != nil {
			log.Printf("terminal: failed to mark appointment %d pending: %v", in.AppointmentID, err)
		}
	}

	purchasesStarted.Inc()

	return &StartPurchaseResult{
		PaymentID:        paymentID,
		TransactionID:    start.TransactionID,
		InvoiceReference: invoiceRef,
		Status:           model.PaymentStatusPending,
	}, nil
}

// StatusResult is one poll step's view of a payment.
type StatusResult struct {
	Status        string
	TransactionID *string
	CardLast4     *string
	TerminalID    string
	Settlement    *SettleResult
}

// CheckAndSettle performs one status check for the payment and, on a
// definitive outcome, reconciles it into the ledger. Safe to call from both
// the poller and the status endpoint: settlement is idempotent.
func (s *TerminalPaymentService) CheckAndSettle(ctx context.Context, locationID, paymentID int64) (*StatusResult, error) {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	// Already terminal: report as-is, nothing left to resolve.
	if payment.Status == model.PaymentStatusCompleted || payment.Status == model.PaymentStatusFailed {
		return &StatusResult{
			Status:        payment.Status,
			TransactionID: payment.TransactionID,
			CardLast4:     payment.CardLast4,
		}, nil
	}

	cfg, err := s.terminalConfig(ctx, locationID)
	if err != nil {
		return nil, err
	}

	txn, err := s.resolve(ctx, cfg, payment)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		pollPending.Inc()
		return &StatusResult{Status: model.PaymentStatusPending, TerminalID: cfg.TerminalID}, nil
	}

	status := canonicalStatus(txn.Status)
	result := &StatusResult{Status: status, TerminalID: cfg.TerminalID}
	if txn.TransactionID != "" {
		result.TransactionID = &txn.TransactionID
	}
	if txn.CardLast4 != "" {
		result.CardLast4 = &txn.CardLast4
	}

	switch status {
	case model.PaymentStatusCompleted:
		settle, err := s.Settle(ctx, paymentID, result.TransactionID, result.CardLast4)
		if err != nil {
			return nil, err
		}
		result.Settlement = settle
		s.dropSession(payment)

	case model.PaymentStatusFailed:
		if err := s.Payments.MarkFailed(ctx, paymentID); err != nil {
			return nil, err
		}
		settlements.WithLabelValues("failed").Inc()
		// The appointment's payment status is deliberately left untouched.
		s.dropSession(payment)

	default:
		pollPending.Inc()
	}

	return result, nil
}

func (s *TerminalPaymentService) dropSession(payment *model.Payment) {
	if payment.InvoiceReference != nil {
		s.Sessions.Drop(*payment.InvoiceReference)
	}
}

// resolve turns the provider's view of the payment into a candidate
// transaction, or nil when nothing definitive is discoverable yet.
//
// With a known transaction id this is a direct lookup. Without one the
// search strategies run in order, stopping at the first confident match:
// server-side invoice filter on the device, unfiltered device scan requiring
// invoice AND amount to agree, then the merchant-wide list when a merchant
// credential exists. Non-discovery proves nothing, so it never yields a
// failure.
func (s *TerminalPaymentService) resolve(ctx context.Context, cfg *model.TerminalConfig, payment *model.Payment) (*helcim.CardTransaction, error) {
	if payment.TransactionID != nil && *payment.TransactionID != "" {
		txn, err := s.Gateway.GetTransaction(ctx, cfg.APIToken, *payment.TransactionID)
		if err != nil {
			if errors.Is(err, helcim.ErrTransactionNotFound) {
				// Not visible on the provider side yet.
				return nil, nil
			}
			return nil, err
		}
		return txn, nil
	}

	if payment.InvoiceReference == nil || *payment.InvoiceReference == "" {
		return nil, nil
	}
	invoiceRef := *payment.InvoiceReference

	requestedTotal := payment.TotalAmount
	if session, ok := s.Sessions.Get(invoiceRef); ok {
		requestedTotal = session.RequestedTotal
	}

	// Strategy 1: server-side invoice filter on the device.
	txns, err := s.Gateway.SearchDeviceTransactions(ctx, cfg.APIToken, cfg.DeviceCode, invoiceRef)
	if err != nil {
		return nil, err
	}
	if match := matchTransaction(txns, invoiceRef, requestedTotal); match != nil {
		return match, nil
	}

	// Strategy 2: unfiltered device scan.
	txns, err = s.Gateway.SearchDeviceTransactions(ctx, cfg.APIToken, cfg.DeviceCode, "")
	if err != nil {
		return nil, err
	}
	if match := matchTransaction(txns, invoiceRef, requestedTotal); match != nil {
		return match, nil
	}

	// Strategy 3: merchant-wide list, only when a merchant credential exists.
	if s.Gateway.HasMerchantToken() {
		txns, err = s.Gateway.SearchMerchantTransactions(ctx, invoiceRef)
		if err != nil {
			return nil, err
		}
		if match := matchTransaction(txns, invoiceRef, requestedTotal); match != nil {
			return match, nil
		}
	}

	return nil, nil
}

// matchTransaction requires both the invoice reference and the amount to
// agree. Invoice-only matching is insufficient: references may be
// provider-truncated or reused.
func matchTransaction(txns []helcim.CardTransaction, invoiceRef string, requestedTotal decimal.Decimal) *helcim.CardTransaction {
	for i := range txns {
		txn := &txns[i]
		if txn.InvoiceNumber != invoiceRef {
			continue
		}
		if txn.Amount.Sub(requestedTotal).Abs().GreaterThan(amountTolerance) {
			continue
		}
		return txn
	}
	return nil
}

// canonicalStatus maps raw provider statuses onto the three canonical
// outcomes. Anything unrecognized is pending: only an explicit
// declined/failed/canceled proves the charge did not happen.
func canonicalStatus(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "approved", "captured", "completed", "success", "succeeded":
		return model.PaymentStatusCompleted
	case "declined", "failed", "canceled", "cancelled":
		return model.PaymentStatusFailed
	default:
		return model.PaymentStatusPending
	}
}

// SettleResult reports what one settlement call actually did.
type SettleResult struct {
	AlreadySettled bool
	EarningsSynced bool
	UsedFallback   bool
}

// Settle reconciles a confirmed completion into the ledger exactly once.
//
// The payment update is a conditional write; losing the race means another
// path already settled and this call is a no-op. Earnings creation is
// best-effort and independently fallible: missing service or staff data must
// not keep the appointment from being marked paid. If the structured
// sequence fails partway, a simpler fallback records the payment and
// appointment state without earnings, and the caller is told the earnings
// sync may be incomplete. A known card charge is never left unreflected.
func (s *TerminalPaymentService) Settle(ctx context.Context, paymentID int64, transactionID, cardLast4 *string) (*SettleResult, error) {
	settled, err := s.Payments.MarkCompleted(ctx, paymentID, transactionID, cardLast4)
	if err != nil {
		return s.settleFallback(ctx, paymentID, transactionID, cardLast4)
	}
	if !settled {
		return &SettleResult{AlreadySettled: true, EarningsSynced: true}, nil
	}

	payment, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil || payment == nil {
		return s.settleFallback(ctx, paymentID, transactionID, cardLast4)
	}

	earningsSynced := s.recordEarnings(ctx, payment)

	if payment.AppointmentID != 0 {
		if err := s.Appointments.SetPaymentStatus(ctx, payment.AppointmentID, model.AppointmentPaid); err != nil {
			return s.settleFallback(ctx, paymentID, transactionID, cardLast4)
		}
	}

	settlements.WithLabelValues("completed").Inc()
	return &SettleResult{EarningsSynced: earningsSynced}, nil
}

// recordEarnings computes and inserts the staff payout for the payment.
// Returns false when the earnings side could not be synced; settlement
// continues regardless.
func (s *TerminalPaymentService) recordEarnings(ctx context.Context, payment *model.Payment) bool {
	if payment.AppointmentID == 0 {
		return true
	}

	exists, err := s.Earnings.ExistsForPayment(ctx, payment.PaymentID)
	if err != nil {
		log.Printf("terminal: earnings lookup for payment %d failed: %v", payment.PaymentID, err)
		return false
	}
	if exists {
		// Idempotency guard: at most one earnings row per payment.
		return true
	}

	appointment, err := s.Appointments.GetByID(ctx, payment.AppointmentID)
	if err != nil || appointment == nil {
		log.Printf("terminal: appointment %d not resolvable for earnings: %v", payment.AppointmentID, err)
		return false
	}
	service, err := s.Services.GetByID(ctx, appointment.ServiceID)
	if err != nil || service == nil {
		log.Printf("terminal: service %d not resolvable for earnings: %v", appointment.ServiceID, err)
		return false
	}
	staff, err := s.Staff.GetByID(ctx, appointment.StaffID)
	if err != nil || staff == nil {
		log.Printf("terminal: staff %d not resolvable for earnings: %v", appointment.StaffID, err)
		return false
	}

	result := ComputeEarnings(service.Price, service.DurationMinutes, RateConfig{
		RateType:       staff.RateType,
		CommissionRate: staff.CommissionRate,
		HourlyRate:     staff.HourlyRate,
		FixedRate:      staff.FixedRate,
	})

	// No zero-value rows.
	if !result.Amount.IsPositive() {
		return true
	}

	details, err := json.Marshal(result.Details)
	if err != nil {
		details = []byte("{}")
	}

	err = s.Earnings.Create(ctx, &model.StaffEarnings{
		StaffID:            staff.StaffID,
		AppointmentID:      appointment.AppointmentID,
		ServiceID:          service.ServiceID,
		PaymentID:          payment.PaymentID,
		EarningsAmount:     result.Amount,
		RateType:           result.RateType,
		RateUsed:           result.RateUsed,
		CalculationDetails: details,
		EarningsDate:       time.Now(),
	})
	if err != nil {
		log.Printf("terminal: earnings insert for payment %d failed: %v", payment.PaymentID, err)
		return false
	}
	return true
}

// settleFallback is the degrade-not-fail recovery: record only the payment
// and appointment state, skip earnings, and make the incompleteness visible
// to the caller so an operator can be alerted.
func (s *TerminalPaymentService) settleFallback(ctx context.Context, paymentID int64, transactionID, cardLast4 *string) (*SettleResult, error) {
	if _, err := s.Payments.MarkCompleted(ctx, paymentID, transactionID, cardLast4); err != nil {
		settlements.WithLabelValues("sync_failed").Inc()
		return nil, ErrSettlementSyncFailed
	}

	payment, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil || payment == nil {
		settlements.WithLabelValues("sync_failed").Inc()
		return nil, ErrSettlementSyncFailed
	}
	if payment.AppointmentID != 0 {
		if err := s.Appointments.SetPaymentStatus(ctx, payment.AppointmentID, model.AppointmentPaid); err != nil {
			settlements.WithLabelValues("sync_failed").Inc()
			return nil, ErrSettlementSyncFailed
		}
	}

	settlements.WithLabelValues("fallback").Inc()
	return &SettleResult{EarningsSynced: false, UsedFallback: true}, nil
}

// CompletePayment is the manual completion path. It flows through the same
// settlement so double completion stays a no-op.
func (s *TerminalPaymentService) CompletePayment(ctx context.Context, paymentID int64, transactionID string) (*SettleResult, error) {
	var txnID *string
	if transactionID != "" {
		txnID = &transactionID
	}

	result, err := s.Settle(ctx, paymentID, txnID, nil)
	if err != nil {
		return nil, err
	}

	if payment, err := s.Payments.GetByID(ctx, paymentID); err == nil && payment != nil {
		s.dropSession(payment)
	}
	return result, nil
}

// CancelPurchase forwards a cancel to the device and is best-effort by
// contract: it does not un-settle a payment the provider completed before
// the cancel was observed.
func (s *TerminalPaymentService) CancelPurchase(ctx context.Context, locationID, paymentID int64) error {
	cfg, err := s.terminalConfig(ctx, locationID)
	if err != nil {
		return err
	}
	if err := s.Gateway.CancelPurchase(ctx, cfg.APIToken, cfg.DeviceCode); err != nil {
		return err
	}

	if payment, err := s.Payments.GetByID(ctx, paymentID); err == nil && payment != nil {
		s.dropSession(payment)
	}
	return nil
}
