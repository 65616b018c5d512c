package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

// CreatePending inserts the ledger row for a charge that is in flight on
// the terminal.
func (r *PaymentRepository) CreatePending(ctx context.Context, p *model.Payment) (int64, error) {
	var paymentID int64
	q := `
		INSERT INTO payments
			(appointmentid, clientid, locationid, amount, tipamount, totalamount,
			 method, status, transactionid, invoicereference, createdat)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, NOW())
		RETURNING paymentid
	`
	err := r.DB.QueryRow(ctx, q,
		p.AppointmentID, p.ClientID, p.LocationID,
		p.Amount, p.TipAmount, p.TotalAmount,
		p.Method, p.TransactionID, p.InvoiceReference,
	).Scan(&paymentID)

	p.PaymentID = paymentID
	return paymentID, err
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID int64) (*model.Payment, error) {
	var p model.Payment

	q := `
		SELECT paymentid, appointmentid, clientid, locationid,
		       amount, tipamount, totalamount, method, status,
		       transactionid, cardlast4, invoicereference, createdat, processedat
		FROM payments
		WHERE paymentid=$1
	`

	err := r.DB.QueryRow(ctx, q, paymentID).Scan(
		&p.PaymentID,
		&p.AppointmentID,
		&p.ClientID,
		&p.LocationID,
		&p.Amount,
		&p.TipAmount,
		&p.TotalAmount,
		&p.Method,
		&p.Status,
		&p.TransactionID,
		&p.CardLast4,
		&p.InvoiceReference,
		&p.CreatedAt,
		&p.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

// MarkCompleted is the single idempotency point for settlement: a
// conditional update that only fires while the row is not yet completed.
// Zero rows affected means another path already settled the payment.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, paymentID int64, transactionID, cardLast4 *string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE payments
		SET status='completed',
		    transactionid=COALESCE($2, transactionid),
		    cardlast4=COALESCE($3, cardlast4),
		    processedat=NOW()
		WHERE paymentid=$1 AND status <> 'completed'
	`, paymentID, transactionID, cardLast4)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed records an explicit provider decline. Only pending rows move;
// a settled payment never regresses.
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE payments
		SET status='failed', processedat=NOW()
		WHERE paymentid=$1 AND status='pending'
	`, paymentID)
	return err
}

func (r *PaymentRepository) ListByAppointment(ctx context.Context, appointmentID int64) ([]model.Payment, error) {
	q := `
		SELECT paymentid, appointmentid, clientid, locationid,
		       amount, tipamount, totalamount, method, status,
		       transactionid, cardlast4, invoicereference, createdat, processedat
		FROM payments
		WHERE appointmentid=$1
		ORDER BY createdat DESC
	`

	rows, err := r.DB.Query(ctx, q, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.PaymentID,
			&p.AppointmentID,
			&p.ClientID,
			&p.LocationID,
			&p.Amount,
			&p.TipAmount,
			&p.TotalAmount,
			&p.Method,
			&p.Status,
			&p.TransactionID,
			&p.CardLast4,
			&p.InvoiceReference,
			&p.CreatedAt,
			&p.ProcessedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}
