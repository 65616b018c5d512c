package services

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSession is the process-local record of a purchase that was started
// without a synchronous transaction id. It exists only so the status
// resolver can disambiguate same-amount transactions during invoice search.
// Never persisted: a single process instance owns all in-flight terminal
// sessions.
type PaymentSession struct {
	InvoiceReference string
	LocationID       int64
	DeviceCode       string
	RequestedTotal   decimal.Decimal
	Description      string
	StartedAt        time.Time
}

// SessionTracker maps invoice references to in-flight purchase sessions.
// Keys are unique per purchase, so per-key locking is unnecessary.
type SessionTracker struct {
	mu       sync.RWMutex
	sessions map[string]*PaymentSession
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{sessions: make(map[string]*PaymentSession)}
}

func (t *SessionTracker) Record(invoiceReference string, locationID int64, deviceCode string, requestedTotal decimal.Decimal, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[invoiceReference] = &PaymentSession{
		InvoiceReference: invoiceReference,
		LocationID:       locationID,
		DeviceCode:       deviceCode,
		RequestedTotal:   requestedTotal,
		Description:      description,
		StartedAt:        time.Now(),
	}
}

func (t *SessionTracker) Get(invoiceReference string) (*PaymentSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[invoiceReference]
	return s, ok
}

// Drop removes a session once its payment reaches a terminal state or the
// poller gives up on it.
func (t *SessionTracker) Drop(invoiceReference string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, invoiceReference)
}

func (t *SessionTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
