package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

type checkStep struct {
	result *StatusResult
	err    error
}

// scriptedChecker plays back one response per CheckAndSettle call; the last
// step repeats once the script runs out.
type scriptedChecker struct {
	mu     sync.Mutex
	calls  int
	script []checkStep
}

func (c *scriptedChecker) CheckAndSettle(_ context.Context, _, _ int64) (*StatusResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	step := c.script[len(c.script)-1]
	if c.calls < len(c.script) {
		step = c.script[c.calls]
	}
	c.calls++
	return step.result, step.err
}

func (c *scriptedChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestPoller(checker statusChecker, attempts int) *PaymentPoller {
	p := NewPaymentPoller(checker)
	p.Interval = time.Millisecond
	p.Attempts = attempts
	return p
}

func pending() checkStep {
	return checkStep{result: &StatusResult{Status: model.PaymentStatusPending}}
}

func TestPollerDefaults(t *testing.T) {
	p := NewPaymentPoller(&scriptedChecker{})
	if p.Interval != 5*time.Second {
		t.Errorf("expected 5s default interval, got %s", p.Interval)
	}
	if p.Attempts != 60 {
		t.Errorf("expected 60 default attempts, got %d", p.Attempts)
	}
}

func TestPollerCompletes(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{
		pending(),
		pending(),
		{result: &StatusResult{
			Status:     model.PaymentStatusCompleted,
			Settlement: &SettleResult{EarningsSynced: true},
		}},
	}}
	p := newTestPoller(checker, 10)

	outcome := p.Run(context.Background(), 1, 42)
	if outcome.State != PollStateDone {
		t.Fatalf("expected done, got %s", outcome.State)
	}
	if outcome.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed status, got %s", outcome.Status)
	}
	if outcome.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", outcome.Attempts)
	}
	if checker.callCount() != 3 {
		t.Errorf("loop must stop after the definitive check, got %d calls", checker.callCount())
	}
}

func TestPollerReportsIncompleteEarningsSync(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{
		{result: &StatusResult{
			Status:     model.PaymentStatusCompleted,
			Settlement: &SettleResult{EarningsSynced: false, UsedFallback: true},
		}},
	}}
	p := newTestPoller(checker, 10)

	outcome := p.Run(context.Background(), 1, 42)
	if outcome.State != PollStateDone {
		t.Fatalf("expected done, got %s", outcome.State)
	}
	if outcome.Message != "payment completed; earnings sync may be incomplete" {
		t.Errorf("unexpected message %q", outcome.Message)
	}
}

func TestPollerFailedPayment(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{
		pending(),
		{result: &StatusResult{Status: model.PaymentStatusFailed}},
	}}
	p := newTestPoller(checker, 10)

	outcome := p.Run(context.Background(), 1, 42)
	if outcome.State != PollStateDone {
		t.Fatalf("expected done, got %s", outcome.State)
	}
	if outcome.Status != model.PaymentStatusFailed {
		t.Errorf("expected failed status, got %s", outcome.Status)
	}
}

func TestPollerExhaustsAttempts(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{pending()}}
	p := newTestPoller(checker, 5)

	outcome := p.Run(context.Background(), 1, 42)
	if outcome.State != PollStateAbandoned {
		t.Fatalf("expected abandoned, got %s", outcome.State)
	}
	if outcome.Attempts != 5 {
		t.Errorf("expected exactly 5 attempts, got %d", outcome.Attempts)
	}
	if checker.callCount() != 5 {
		t.Errorf("expected exactly 5 checks, got %d", checker.callCount())
	}
	// Abandonment asserts neither success nor failure.
	if outcome.Status != "" {
		t.Errorf("abandoned outcome must not carry a payment status, got %q", outcome.Status)
	}
	if outcome.Message != "status check failed, verify the transaction manually" {
		t.Errorf("unexpected message %q", outcome.Message)
	}
}

func TestPollerAbandonsOnError(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{
		pending(),
		{err: errors.New("gateway unreachable")},
	}}
	p := newTestPoller(checker, 10)

	outcome := p.Run(context.Background(), 1, 42)
	if outcome.State != PollStateAbandoned {
		t.Fatalf("expected abandoned, got %s", outcome.State)
	}
	if outcome.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", outcome.Attempts)
	}
	if outcome.Message != "gateway unreachable" {
		t.Errorf("expected the error surfaced in the message, got %q", outcome.Message)
	}
}

func TestPollerCancelledContext(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{pending()}}
	p := newTestPoller(checker, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := p.Run(ctx, 1, 42)
	if outcome.State != PollStateCancelled {
		t.Fatalf("expected cancelled, got %s", outcome.State)
	}
	if checker.callCount() != 0 {
		t.Errorf("a cancelled loop must not keep checking, got %d calls", checker.callCount())
	}
}

func TestPollerStartAndCancel(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{pending()}}
	p := newTestPoller(checker, 100000)

	p.Start(1, 42)

	deadline := time.Now().Add(time.Second)
	for checker.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("poll loop never ran")
		}
		time.Sleep(time.Millisecond)
	}

	p.Cancel(42)

	// The loop releases its cancellation token on exit.
	for {
		p.mu.Lock()
		_, running := p.cancel[42]
		p.mu.Unlock()
		if !running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poll loop did not stop after cancel")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPollerStartReplacesExistingLoop(t *testing.T) {
	checker := &scriptedChecker{script: []checkStep{pending()}}
	p := newTestPoller(checker, 100000)

	p.Start(1, 42)
	p.Start(1, 42)

	p.mu.Lock()
	tokens := len(p.cancel)
	p.mu.Unlock()
	if tokens != 1 {
		t.Errorf("expected a single cancellation token per payment, got %d", tokens)
	}

	p.Cancel(42)
}
