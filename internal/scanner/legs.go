package scanner

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/orats"
)

var two = decimal.NewFromInt(2)

// atmStrike picks the front-expiry strike whose call delta is nearest 0.5,
// breaking ties by distance to spot.
func atmStrike(rows []orats.StrikeRow, spot float64) (float64, bool) {
	best := -1
	bestDelta, bestDist := math.MaxFloat64, math.MaxFloat64
	for i, r := range rows {
		d := math.Abs(math.Abs(r.Delta) - 0.5)
		dist := math.Abs(r.Strike - spot)
		if d < bestDelta || (d == bestDelta && dist < bestDist) {
			best, bestDelta, bestDist = i, d, dist
		}
	}
	if best < 0 {
		return 0, false
	}
	return rows[best].Strike, true
}

// byExpiry groups strike rows by expiration.
func byExpiry(rows []orats.StrikeRow) map[string][]orats.StrikeRow {
	groups := make(map[string][]orats.StrikeRow)
	for _, r := range rows {
		groups[r.ExpirDate] = append(groups[r.ExpirDate], r)
	}
	return groups
}

func findStrike(rows []orats.StrikeRow, strike float64) (orats.StrikeRow, bool) {
	for _, r := range rows {
		if r.Strike == strike {
			return r, true
		}
	}
	return orats.StrikeRow{}, false
}

// mid is the bid/ask midpoint, unavailable when the quote is one-sided or crossed.
func mid(bid, ask float64) (decimal.Decimal, bool) {
	if bid < 0 || ask <= 0 || bid > ask {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(bid).Add(decimal.NewFromFloat(ask)).Div(two), true
}

// debit is the cost of buying the back call and selling the front call at mid.
func debit(c calendar.Candidate) calendar.Value {
	back, okBack := mid(c.Back.CallBid, c.Back.CallAsk)
	front, okFront := mid(c.Front.CallBid, c.Front.CallAsk)
	if !okBack || !okFront {
		return calendar.Unavailable()
	}
	return calendar.ValueOf(back.Sub(front).InexactFloat64())
}

// yearsBetween is the calendar-day year fraction between two expirations.
func yearsBetween(front, back string) (float64, error) {
	f, err := time.Parse(calendar.ExpiryLayout, front)
	if err != nil {
		return 0, fmt.Errorf("parse front expiry %q: %w", front, err)
	}
	b, err := time.Parse(calendar.ExpiryLayout, back)
	if err != nil {
		return 0, fmt.Errorf("parse back expiry %q: %w", back, err)
	}
	return b.Sub(f).Hours() / 24 / 365, nil
}
