package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

type AppointmentRepository struct {
	DB *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

func (r *AppointmentRepository) GetByID(ctx context.Context, appointmentID int64) (*model.Appointment, error) {
	var a model.Appointment

	q := `
		SELECT appointmentid, clientid, serviceid, staffid, locationid,
		       paymentstatus, totalamount
		FROM appointments
		WHERE appointmentid=$1
	`

	err := r.DB.QueryRow(ctx, q, appointmentID).Scan(
		&a.AppointmentID,
		&a.ClientID,
		&a.ServiceID,
		&a.StaffID,
		&a.LocationID,
		&a.PaymentStatus,
		&a.TotalAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &a, nil
}

func (r *AppointmentRepository) SetPaymentStatus(ctx context.Context, appointmentID int64, status string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE appointments
		SET paymentstatus=$2
		WHERE appointmentid=$1
	`, appointmentID, status)
	return err
}
