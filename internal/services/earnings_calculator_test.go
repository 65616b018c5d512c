package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeEarningsCommission(t *testing.T) {
	result := ComputeEarnings(d("100"), 60, RateConfig{
		RateType:       model.RateTypeCommission,
		CommissionRate: d("0.4"),
	})

	if !result.Amount.Equal(d("40")) {
		t.Errorf("expected 40, got %s", result.Amount)
	}
	if result.RateType != model.RateTypeCommission {
		t.Errorf("expected commission rate type, got %s", result.RateType)
	}
	if !result.RateUsed.Equal(d("0.4")) {
		t.Errorf("expected rate used 0.4, got %s", result.RateUsed)
	}
}

func TestComputeEarningsHourly(t *testing.T) {
	result := ComputeEarnings(d("100"), 90, RateConfig{
		RateType:   model.RateTypeHourly,
		HourlyRate: d("20"),
	})

	if !result.Amount.Equal(d("30")) {
		t.Errorf("expected 30 for 90 minutes at 20/h, got %s", result.Amount)
	}
}

func TestComputeEarningsFixed(t *testing.T) {
	// Duration and price are irrelevant for fixed rates.
	result := ComputeEarnings(d("999"), 5, RateConfig{
		RateType:  model.RateTypeFixed,
		FixedRate: d("75"),
	})

	if !result.Amount.Equal(d("75")) {
		t.Errorf("expected 75, got %s", result.Amount)
	}
}

func TestComputeEarningsHourlyPlusCommission(t *testing.T) {
	result := ComputeEarnings(d("100"), 60, RateConfig{
		RateType:       model.RateTypeHourlyPlusCommission,
		HourlyRate:     d("20"),
		CommissionRate: d("0.1"),
	})

	if !result.Amount.Equal(d("30")) {
		t.Errorf("expected 20*1 + 100*0.1 = 30, got %s", result.Amount)
	}

	if result.Details["hourlyPart"] != "20" {
		t.Errorf("expected hourly part 20 in details, got %v", result.Details["hourlyPart"])
	}
	if result.Details["commissionPart"] != "10" {
		t.Errorf("expected commission part 10 in details, got %v", result.Details["commissionPart"])
	}
}

func TestComputeEarningsUnknownRateType(t *testing.T) {
	result := ComputeEarnings(d("100"), 60, RateConfig{
		RateType: "quarterly_bonus",
	})

	if !result.Amount.IsZero() {
		t.Errorf("unknown rate type must yield zero, got %s", result.Amount)
	}
	if result.Details["type"] != "unknown" {
		t.Errorf("expected details to flag unknown type, got %v", result.Details["type"])
	}
}

func TestComputeEarningsRounding(t *testing.T) {
	// 33.33 * 0.333 = 11.098..., rounded to 2 places.
	result := ComputeEarnings(d("33.33"), 60, RateConfig{
		RateType:       model.RateTypeCommission,
		CommissionRate: d("0.333"),
	})

	if !result.Amount.Equal(d("11.10")) {
		t.Errorf("expected 11.10, got %s", result.Amount)
	}
}
