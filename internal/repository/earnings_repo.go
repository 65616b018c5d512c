package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

type EarningsRepository struct {
	DB *pgxpool.Pool
}

func NewEarningsRepository(db *pgxpool.Pool) *EarningsRepository {
	return &EarningsRepository{DB: db}
}

// ExistsForPayment backs the settlement coordinator's check-before-insert
// guard: at most one earnings row per payment.
func (r *EarningsRepository) ExistsForPayment(ctx context.Context, paymentID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM staff_earnings WHERE paymentid=$1)
	`, paymentID).Scan(&exists)
	return exists, err
}

func (r *EarningsRepository) Create(ctx context.Context, e *model.StaffEarnings) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO staff_earnings
			(staffid, appointmentid, serviceid, paymentid,
			 earningsamount, ratetype, rateused, calculationdetails, earningsdate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING earningsid
	`,
		e.StaffID, e.AppointmentID, e.ServiceID, e.PaymentID,
		e.EarningsAmount, e.RateType, e.RateUsed, e.CalculationDetails, e.EarningsDate,
	).Scan(&e.EarningsID)
}
