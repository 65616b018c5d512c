package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

// Cipher is the injected encrypt/decrypt capability for terminal
// credentials. Credentials are encrypted before every write and decrypted on
// every read.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type TerminalConfigRepository struct {
	DB     *pgxpool.Pool
	cipher Cipher
}

func NewTerminalConfigRepository(db *pgxpool.Pool, cipher Cipher) *TerminalConfigRepository {
	return &TerminalConfigRepository{DB: db, cipher: cipher}
}

// EnsureSchema creates the terminal_configs table on first use. Self-healing
// bootstrap is accepted operational behavior for this table.
func (r *TerminalConfigRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS terminal_configs (
			configid   BIGSERIAL PRIMARY KEY,
			locationid BIGINT NOT NULL,
			terminalid TEXT NOT NULL,
			devicecode TEXT NOT NULL,
			apitoken   TEXT NOT NULL,
			isactive   BOOLEAN NOT NULL DEFAULT TRUE,
			createdat  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updatedat  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (locationid, terminalid)
		)
	`)
	return err
}

// Save pairs a terminal with a location. Any previously active config for
// the location is deactivated first, keeping at most one active row per
// location while preserving history for payments that reference old devices.
func (r *TerminalConfigRepository) Save(ctx context.Context, cfg *model.TerminalConfig) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}

	encrypted, err := r.cipher.Encrypt(cfg.APIToken)
	if err != nil {
		return err
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE terminal_configs
		SET isactive=FALSE, updatedat=NOW()
		WHERE locationid=$1 AND isactive=TRUE
	`, cfg.LocationID)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO terminal_configs (locationid, terminalid, devicecode, apitoken, isactive)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (locationid, terminalid)
		DO UPDATE SET devicecode=EXCLUDED.devicecode,
		              apitoken=EXCLUDED.apitoken,
		              isactive=TRUE,
		              updatedat=NOW()
		RETURNING configid
	`, cfg.LocationID, cfg.TerminalID, cfg.DeviceCode, encrypted).Scan(&cfg.ConfigID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByLocation returns the most recent active config for a location, or
// (nil, nil) when the location has no paired terminal.
func (r *TerminalConfigRepository) GetByLocation(ctx context.Context, locationID int64) (*model.TerminalConfig, error) {
	return r.getOne(ctx, `
		SELECT configid, locationid, terminalid, devicecode, apitoken, isactive, createdat, updatedat
		FROM terminal_configs
		WHERE locationid=$1 AND isactive=TRUE
		ORDER BY updatedat DESC
		LIMIT 1
	`, locationID)
}

// GetByDevice returns the most recent active config for a device code, or
// (nil, nil).
func (r *TerminalConfigRepository) GetByDevice(ctx context.Context, deviceCode string) (*model.TerminalConfig, error) {
	return r.getOne(ctx, `
		SELECT configid, locationid, terminalid, devicecode, apitoken, isactive, createdat, updatedat
		FROM terminal_configs
		WHERE devicecode=$1 AND isactive=TRUE
		ORDER BY updatedat DESC
		LIMIT 1
	`, deviceCode)
}

func (r *TerminalConfigRepository) getOne(ctx context.Context, q string, arg interface{}) (*model.TerminalConfig, error) {
	var cfg model.TerminalConfig
	var encrypted string

	err := r.DB.QueryRow(ctx, q, arg).Scan(
		&cfg.ConfigID,
		&cfg.LocationID,
		&cfg.TerminalID,
		&cfg.DeviceCode,
		&encrypted,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	cfg.APIToken, err = r.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Update re-points the active config for a location at a new device and/or
// credential.
func (r *TerminalConfigRepository) Update(ctx context.Context, locationID int64, deviceCode, apiToken string) error {
	encrypted, err := r.cipher.Encrypt(apiToken)
	if err != nil {
		return err
	}

	_, err = r.DB.Exec(ctx, `
		UPDATE terminal_configs
		SET devicecode=$2, apitoken=$3, updatedat=NOW()
		WHERE locationid=$1 AND isactive=TRUE
	`, locationID, deviceCode, encrypted)
	return err
}

// Deactivate soft-deletes the location's pairing. Historical payments keep
// referencing the device, so rows are never hard-deleted.
func (r *TerminalConfigRepository) Deactivate(ctx context.Context, locationID int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE terminal_configs
		SET isactive=FALSE, updatedat=NOW()
		WHERE locationid=$1 AND isactive=TRUE
	`, locationID)
	return err
}
