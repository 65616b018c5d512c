package model

import "time"

// TerminalConfig pairs one physical payment terminal with a location.
// Historical payments reference the device, so configs are deactivated on
// re-pairing rather than deleted.
type TerminalConfig struct {
	ConfigID   int64     `db:"configid" json:"config_id"`
	LocationID int64     `db:"locationid" json:"location_id"`
	TerminalID string    `db:"terminalid" json:"terminal_id"`
	DeviceCode string    `db:"devicecode" json:"device_code"`
	// APIToken holds the decrypted provider credential after a read and the
	// plaintext before a write. It is never stored unencrypted.
	APIToken  string    `db:"-" json:"-"`
	IsActive  bool      `db:"isactive" json:"is_active"`
	CreatedAt time.Time `db:"createdat" json:"created_at"`
	UpdatedAt time.Time `db:"updatedat" json:"updated_at"`
}
