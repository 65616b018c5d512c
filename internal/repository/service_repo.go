package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

type SalonServiceRepository struct {
	DB *pgxpool.Pool
}

func NewSalonServiceRepository(db *pgxpool.Pool) *SalonServiceRepository {
	return &SalonServiceRepository{DB: db}
}

func (r *SalonServiceRepository) GetByID(ctx context.Context, serviceID int64) (*model.SalonService, error) {
	var s model.SalonService

	err := r.DB.QueryRow(ctx, `
		SELECT serviceid, name, price, durationminutes
		FROM salon_services
		WHERE serviceid=$1
	`, serviceID).Scan(&s.ServiceID, &s.Name, &s.Price, &s.DurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &s, nil
}
