package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment methods
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodGiftCard = "gift_card"
)

// Appointment payment statuses
const (
	AppointmentUnpaid  = "unpaid"
	AppointmentPending = "pending"
	AppointmentPartial = "partial"
	AppointmentPaid    = "paid"
)

type Payment struct {
	PaymentID        int64           `db:"paymentid" json:"payment_id"`
	AppointmentID    int64           `db:"appointmentid" json:"appointment_id"`
	ClientID         int64           `db:"clientid" json:"client_id"`
	LocationID       int64           `db:"locationid" json:"location_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	TipAmount        decimal.Decimal `db:"tipamount" json:"tip_amount"`
	TotalAmount      decimal.Decimal `db:"totalamount" json:"total_amount"`
	Method           string          `db:"method" json:"method"`
	Status           string          `db:"status" json:"status"`
	TransactionID    *string         `db:"transactionid" json:"transaction_id"`
	CardLast4        *string         `db:"cardlast4" json:"card_last4"`
	InvoiceReference *string         `db:"invoicereference" json:"invoice_reference"`
	CreatedAt        time.Time       `db:"createdat" json:"created_at"`
	ProcessedAt      *time.Time      `db:"processedat" json:"processed_at"`
}

// Appointment carries only the fields the payment flow touches. The
// scheduling side of the platform owns the rest of the record.
type Appointment struct {
	AppointmentID int64           `db:"appointmentid" json:"appointment_id"`
	ClientID      int64           `db:"clientid" json:"client_id"`
	ServiceID     int64           `db:"serviceid" json:"service_id"`
	StaffID       int64           `db:"staffid" json:"staff_id"`
	LocationID    int64           `db:"locationid" json:"location_id"`
	PaymentStatus string          `db:"paymentstatus" json:"payment_status"`
	TotalAmount   decimal.Decimal `db:"totalamount" json:"total_amount"`
}

type SalonService struct {
	ServiceID       int64           `db:"serviceid" json:"service_id"`
	Name            string          `db:"name" json:"name"`
	Price           decimal.Decimal `db:"price" json:"price"`
	DurationMinutes int             `db:"durationminutes" json:"duration_minutes"`
}

// Staff rate types
const (
	RateTypeCommission           = "commission"
	RateTypeHourly               = "hourly"
	RateTypeFixed                = "fixed"
	RateTypeHourlyPlusCommission = "hourly_plus_commission"
)

type Staff struct {
	StaffID        int64           `db:"staffid" json:"staff_id"`
	Name           string          `db:"name" json:"name"`
	RateType       string          `db:"ratetype" json:"rate_type"`
	CommissionRate decimal.Decimal `db:"commissionrate" json:"commission_rate"`
	HourlyRate     decimal.Decimal `db:"hourlyrate" json:"hourly_rate"`
	FixedRate      decimal.Decimal `db:"fixedrate" json:"fixed_rate"`
}

type StaffEarnings struct {
	EarningsID         int64           `db:"earningsid" json:"earnings_id"`
	StaffID            int64           `db:"staffid" json:"staff_id"`
	AppointmentID      int64           `db:"appointmentid" json:"appointment_id"`
	ServiceID          int64           `db:"serviceid" json:"service_id"`
	PaymentID          int64           `db:"paymentid" json:"payment_id"`
	EarningsAmount     decimal.Decimal `db:"earningsamount" json:"earnings_amount"`
	RateType           string          `db:"ratetype" json:"rate_type"`
	RateUsed           decimal.Decimal `db:"rateused" json:"rate_used"`
	CalculationDetails []byte          `db:"calculationdetails" json:"calculation_details"`
	EarningsDate       time.Time       `db:"earningsdate" json:"earnings_date"`
}
