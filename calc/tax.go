package calc

import (
	"time"

	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/shopspring/decimal"
)

const (
	StandardTaxRate = 1.24
	ReducedTaxRate  = 1.10
	// Negative prices are never marked up with VAT.
	NoTaxRate = 1.0
)

type taxPeriod struct {
	fromY, fromM, fromD    int
	untilY, untilM, untilD int
	rate                   float64
}

// Exceptional VAT periods, half-open [from, until) in the display zone.
// Instants outside every period use StandardTaxRate.
var taxPeriods = []taxPeriod{
	{2022, 12, 1, 2023, 5, 1, ReducedTaxRate},
}

func (p taxPeriod) contains(t time.Time) bool {
	loc := t.Location()
	from := time.Date(p.fromY, time.Month(p.fromM), p.fromD, 0, 0, 0, 0, loc)
	until := time.Date(p.untilY, time.Month(p.untilM), p.untilD, 0, 0, 0, 0, loc)
	return !t.Before(from) && t.Before(until)
}

// TaxRate returns the VAT multiplier for a price at the given instant.
func TaxRate(instant time.Time, priceAmount decimal.Decimal) float64 {
	if priceAmount.IsNegative() {
		return NoTaxRate
	}
	local := hours.InDisplay(instant)
	for _, p := range taxPeriods {
		if p.contains(local) {
			return p.rate
		}
	}
	return StandardTaxRate
}

var ten = decimal.NewFromInt(10)

// PriceFromAmount converts EUR/MWh to c/kWh.
func PriceFromAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(ten)
}

func TaxedPrice(price decimal.Decimal, rate float64) decimal.Decimal {
	return price.Mul(decimal.NewFromFloat(rate))
}
