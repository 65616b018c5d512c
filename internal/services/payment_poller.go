package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

// Poll loop defaults: 60 attempts at 5s spacing, a 5-minute ceiling.
const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 60
)

// PollState is the explicit lifecycle of one payment's polling loop.
type PollState string

const (
	PollStateStarted   PollState = "started"
	PollStatePolling   PollState = "polling"
	PollStateSettling  PollState = "settling"
	PollStateDone      PollState = "done"
	PollStateAbandoned PollState = "abandoned"
	PollStateCancelled PollState = "cancelled"
)

// PollOutcome is the terminal result of one polling loop. An abandoned loop
// asserts neither success nor failure.
type PollOutcome struct {
	State    PollState
	Status   string
	Attempts int
	Message  string
}

// statusChecker is the slice of TerminalPaymentService the poller drives.
type statusChecker interface {
	CheckAndSettle(ctx context.Context, locationID, paymentID int64) (*StatusResult, error)
}

// PaymentPoller drives in-flight terminal payments to conclusion. Each
// payment gets its own bounded, cancellable loop; loops share no state
// beyond the session tracker inside the service.
type PaymentPoller struct {
	Service  statusChecker
	Interval time.Duration
	Attempts int

	mu     sync.Mutex
	cancel map[int64]context.CancelFunc
}

func NewPaymentPoller(service statusChecker) *PaymentPoller {
	return &PaymentPoller{
		Service:  service,
		Interval: defaultPollInterval,
		Attempts: defaultMaxAttempts,
		cancel:   make(map[int64]context.CancelFunc),
	}
}

// Start launches the polling loop for one payment in the background. The
// loop owns a single cancellation token, released through Cancel or when the
// loop reaches a terminal state.
func (p *PaymentPoller) Start(locationID, paymentID int64) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if old, ok := p.cancel[paymentID]; ok {
		old()
	}
	p.cancel[paymentID] = cancel
	p.mu.Unlock()

	go func() {
		defer p.release(paymentID)
		outcome := p.Run(ctx, locationID, paymentID)
		log.Printf("terminal: payment %d poll finished state=%s status=%s attempts=%d",
			paymentID, outcome.State, outcome.Status, outcome.Attempts)
	}()
}

// Cancel stops the loop for a payment if one is running.
func (p *PaymentPoller) Cancel(paymentID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.cancel[paymentID]; ok {
		cancel()
		delete(p.cancel, paymentID)
	}
}

func (p *PaymentPoller) release(paymentID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.cancel[paymentID]; ok {
		cancel()
		delete(p.cancel, paymentID)
	}
}

// Run polls one payment until it settles, fails, is cancelled, or the
// attempt budget runs out. Status checks for a payment are strictly
// sequential; suspension happens only at the fixed interval.
func (p *PaymentPoller) Run(ctx context.Context, locationID, paymentID int64) PollOutcome {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			pollOutcomes.WithLabelValues(string(PollStateCancelled)).Inc()
			return PollOutcome{
				State:    PollStateCancelled,
				Attempts: attempt - 1,
				Message:  "payment cancelled by operator",
			}
		case <-timer.C:
		}
		timer.Reset(interval)

		result, err := p.Service.CheckAndSettle(ctx, locationID, paymentID)
		if err != nil {
			// Gateway and configuration errors are recovered here: stop the
			// loop and surface the message. Settlement sync failures are
			// operator-visible by contract.
			pollOutcomes.WithLabelValues(string(PollStateAbandoned)).Inc()
			return PollOutcome{
				State:    PollStateAbandoned,
				Attempts: attempt,
				Message:  err.Error(),
			}
		}

		switch result.Status {
		case model.PaymentStatusCompleted:
			pollOutcomes.WithLabelValues(string(PollStateDone)).Inc()
			msg := "payment completed"
			if result.Settlement != nil && !result.Settlement.EarningsSynced {
				msg = "payment completed; earnings sync may be incomplete"
			}
			return PollOutcome{
				State:    PollStateDone,
				Status:   model.PaymentStatusCompleted,
				Attempts: attempt,
				Message:  msg,
			}

		case model.PaymentStatusFailed:
			pollOutcomes.WithLabelValues(string(PollStateDone)).Inc()
			return PollOutcome{
				State:    PollStateDone,
				Status:   model.PaymentStatusFailed,
				Attempts: attempt,
				Message:  "payment declined or canceled on the terminal",
			}
		}
		// pending: keep looping
	}

	pollOutcomes.WithLabelValues(string(PollStateAbandoned)).Inc()
	return PollOutcome{
		State:    PollStateAbandoned,
		Attempts: attempts,
		Message:  "status check failed, verify the transaction manually",
	}
}
