package orats

import "github.com/calscan/calscan/internal/calendar"

// StrikeRow is one row of the /strikes endpoint: a strike on one expiration,
// with call/put quotes and the smoothed greeks.
type StrikeRow struct {
	Ticker       string  `json:"ticker"`
	TradeDate    string  `json:"tradeDate"`
	ExpirDate    string  `json:"expirDate"`
	Dte          int     `json:"dte"`
	Strike       float64 `json:"strike"`
	StockPrice   float64 `json:"stockPrice"`
	SpotPrice    float64 `json:"spotPrice"`
	CallBidPrice float64 `json:"callBidPrice"`
	CallAskPrice float64 `json:"callAskPrice"`
	CallValue    float64 `json:"callValue"`
	PutBidPrice  float64 `json:"putBidPrice"`
	PutAskPrice  float64 `json:"putAskPrice"`
	PutValue     float64 `json:"putValue"`
	SmvVol       float64 `json:"smvVol"`
	Delta        float64 `json:"delta"`
	Gamma        float64 `json:"gamma"`
	Theta        float64 `json:"theta"`
	Vega         float64 `json:"vega"`
}

// Leg converts the row into the calendar package's leg snapshot.
func (r StrikeRow) Leg() calendar.OptionLeg {
	return calendar.OptionLeg{
		Ticker:     r.Ticker,
		Expiration: r.ExpirDate,
		Strike:     r.Strike,
		Delta:      r.Delta,
		SmvVol:     r.SmvVol,
		Vega:       r.Vega,
		Theta:      r.Theta,
		CallBid:    r.CallBidPrice,
		CallAsk:    r.CallAskPrice,
		CallValue:  r.CallValue,
	}
}

// Core is the ticker-level volatility summary from /cores.
type Core struct {
	Ticker    string  `json:"ticker"`
	TradeDate string  `json:"tradeDate"`
	IV20d     float64 `json:"iv20d"`
	ClsHv20d  float64 `json:"clsHv20d"`
	AtmIvM1   float64 `json:"atmIvM1"`
	AtmIvM2   float64 `json:"atmIvM2"`
	AtmIvM3   float64 `json:"atmIvM3"`
	AtmIvM4   float64 `json:"atmIvM4"`
}

// TermStructure returns the ATM IV for the first four monthly expirations.
func (c Core) TermStructure() []float64 {
	return []float64{c.AtmIvM1, c.AtmIvM2, c.AtmIvM3, c.AtmIvM4}
}

// Summary is the ticker snapshot from /summaries.
type Summary struct {
	Ticker      string  `json:"ticker"`
	TradeDate   string  `json:"tradeDate"`
	StockPrice  float64 `json:"stockPrice"`
	ImpliedMove float64 `json:"impliedMove"`
}
