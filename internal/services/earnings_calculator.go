package services

import (
	"github.com/shopspring/decimal"

	"github.com/candraczapansky/LiveBooking-sub003/internal/model"
)

// RateConfig is a staff member's compensation model. The four rate types are
// mutually exclusive; CommissionRate is a 0-1 fraction.
type RateConfig struct {
	RateType       string
	CommissionRate decimal.Decimal
	HourlyRate     decimal.Decimal
	FixedRate      decimal.Decimal
}

// EarningsResult is the audited outcome of one payout computation.
type EarningsResult struct {
	Amount   decimal.Decimal
	RateType string
	RateUsed decimal.Decimal
	Details  map[string]interface{}
}

var minutesPerHour = decimal.NewFromInt(60)

// ComputeEarnings calculates a staff member's payout for one serviced
// appointment. An unrecognized rate type yields a zero amount with the
// details flagging it, never an error: a missing compensation model must not
// block payment settlement.
func ComputeEarnings(servicePrice decimal.Decimal, durationMinutes int, rate RateConfig) EarningsResult {
	hours := decimal.NewFromInt(int64(durationMinutes)).Div(minutesPerHour)

	switch rate.RateType {
	case model.RateTypeCommission:
		amount := servicePrice.Mul(rate.CommissionRate)
		return EarningsResult{
			Amount:   amount.Round(2),
			RateType: model.RateTypeCommission,
			RateUsed: rate.CommissionRate,
			Details: map[string]interface{}{
				"type":           model.RateTypeCommission,
				"servicePrice":   servicePrice.String(),
				"commissionRate": rate.CommissionRate.String(),
			},
		}

	case model.RateTypeHourly:
		amount := rate.HourlyRate.Mul(hours)
		return EarningsResult{
			Amount:   amount.Round(2),
			RateType: model.RateTypeHourly,
			RateUsed: rate.HourlyRate,
			Details: map[string]interface{}{
				"type":            model.RateTypeHourly,
				"hourlyRate":      rate.HourlyRate.String(),
				"durationMinutes": durationMinutes,
				"hours":           hours.String(),
			},
		}

	case model.RateTypeFixed:
		return EarningsResult{
			Amount:   rate.FixedRate.Round(2),
			RateType: model.RateTypeFixed,
			RateUsed: rate.FixedRate,
			Details: map[string]interface{}{
				"type":      model.RateTypeFixed,
				"fixedRate": rate.FixedRate.String(),
			},
		}

	case model.RateTypeHourlyPlusCommission:
		hourlyPart := rate.HourlyRate.Mul(hours)
		commissionPart := servicePrice.Mul(rate.CommissionRate)
		return EarningsResult{
			Amount:   hourlyPart.Add(commissionPart).Round(2),
			RateType: model.RateTypeHourlyPlusCommission,
			RateUsed: rate.CommissionRate,
			Details: map[string]interface{}{
				"type":            model.RateTypeHourlyPlusCommission,
				"hourlyRate":      rate.HourlyRate.String(),
				"durationMinutes": durationMinutes,
				"hourlyPart":      hourlyPart.Round(2).String(),
				"commissionRate":  rate.CommissionRate.String(),
				"commissionPart":  commissionPart.Round(2).String(),
			},
		}
	}

	return EarningsResult{
		Amount:   decimal.Zero,
		RateType: rate.RateType,
		RateUsed: decimal.Zero,
		Details: map[string]interface{}{
			"type":     "unknown",
			"rateType": rate.RateType,
		},
	}
}
