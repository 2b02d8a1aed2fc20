package booking

import (
	"math"
	"strconv"
)

// Pricing computes the display amount for a reservation. Nothing is charged.
type Pricing struct {
	PerUnit     float64
	UnitMinutes float64
	Currency    string
}

// Quote is the amount for minutes, rounded to two decimals.
func (p Pricing) Quote(minutes float64) string {
	if p.UnitMinutes <= 0 {
		return "0"
	}
	v := minutes / p.UnitMinutes * p.PerUnit
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
