package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

type StaffRepository struct {
	DB *pgxpool.Pool
}

func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{DB: db}
}

func (r *StaffRepository) GetByID(ctx context.Context, staffID int64) (*model.Staff, error) {
	var s model.Staff

	err := r.DB.QueryRow(ctx, `
		SELECT staffid, name, ratetype,
		       COALESCE(commissionrate, 0),
		       COALESCE(hourlyrate, 0),
		       COALESCE(fixedrate, 0)
		FROM staff
		WHERE staffid=$1
	`, staffID).Scan(
		&s.StaffID,
		&s.Name,
		&s.RateType,
		&s.CommissionRate,
		&s.HourlyRate,
		&s.FixedRate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &s, nil
}
