package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSessionTrackerRecordAndGet(t *testing.T) {
	tracker := NewSessionTracker()

	tracker.Record("INV1700000000000-abcd1234", 7, "DEVICE1", decimal.RequireFromString("50.00"), "haircut")

	session, ok := tracker.Get("INV1700000000000-abcd1234")
	if !ok {
		t.Fatal("expected session to be found")
	}
	if session.LocationID != 7 || session.DeviceCode != "DEVICE1" {
		t.Errorf("unexpected session contents: %+v", session)
	}
	if !session.RequestedTotal.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("expected requested total 50.00, got %s", session.RequestedTotal)
	}

	if _, ok := tracker.Get("INV-unknown"); ok {
		t.Error("expected miss for unknown invoice reference")
	}
}

func TestSessionTrackerDrop(t *testing.T) {
	tracker := NewSessionTracker()
	tracker.Record("INV1", 1, "DEV", decimal.New(10, 0), "")

	tracker.Drop("INV1")
	if _, ok := tracker.Get("INV1"); ok {
		t.Error("expected session to be gone after drop")
	}

	// Dropping twice is harmless.
	tracker.Drop("INV1")
}

func TestSessionTrackerConcurrentAccess(t *testing.T) {
	tracker := NewSessionTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ref := fmt.Sprintf("INV-%d", n)
			tracker.Record(ref, int64(n), "DEV", decimal.New(int64(n), 0), "")
			if _, ok := tracker.Get(ref); !ok {
				t.Errorf("session %s missing", ref)
			}
			tracker.Drop(ref)
		}(i)
	}
	wg.Wait()

	if tracker.Len() != 0 {
		t.Errorf("expected empty tracker, %d sessions remain", tracker.Len())
	}
}
