package narrative

import (
	"fmt"
	"strings"

	"github.com/calscan/calscan/internal/calendar"
)

const systemPrompt = "You are an options analyst reviewing long call calendar spreads. " +
	"Interpret the scored scan you are given: explain what the volatility term structure, " +
	"theta and vega profile, debit and breakeven range say about each candidate, and which " +
	"expiration looks best and why. Be concise and concrete. Do not invent data that is not in the table."

// maxPromptRows bounds the table sent to the model.
const maxPromptRows = 12

// BuildPrompt renders the scan as plain text for the model.
func BuildPrompt(req Request) string {
	res := req.Result
	var sb strings.Builder

	sb.WriteString("=== CALENDAR SCAN ===\n\n")
	sb.WriteString(fmt.Sprintf("Ticker: %s\n", req.Ticker))
	sb.WriteString(fmt.Sprintf("Front expiry: %s\n", req.FrontExpiry))
	sb.WriteString(fmt.Sprintf("Strike: %.2f\n", req.Strike))
	if res.Spot > 0 {
		sb.WriteString(fmt.Sprintf("Spot: %.2f\n", res.Spot))
	}
	sb.WriteString(fmt.Sprintf("Implied move: %s\n", format(res.ImpliedMoveAbs, 2)))
	sb.WriteString(fmt.Sprintf("Hover (IV20d - HV20d): %s\n", format(res.Hover, 4)))

	if len(res.TermStructure) > 0 {
		sb.WriteString("\n=== ATM IV TERM STRUCTURE ===\n\n")
		for _, p := range res.TermStructure {
			sb.WriteString(fmt.Sprintf("M%d: %.4f\n", p.Month, p.ATMIV))
		}
	}

	sb.WriteString(fmt.Sprintf("\n=== RANKED CANDIDATES (max score %d) ===\n\n", res.MaxScore))
	sb.WriteString("rank | back expiry | debit | iv slope | iv ratio | theta adv | vega/theta | breakevens | payoff ratio | be/move | score\n")
	for i, r := range res.Rows {
		if i >= maxPromptRows {
			sb.WriteString(fmt.Sprintf("... [%d more candidates]\n", len(res.Rows)-maxPromptRows))
			break
		}
		sb.WriteString(fmt.Sprintf("%d | %s | %s | %s | %s | %s | %s | %s | %s | %s | %d\n",
			i+1,
			r.BackExpiry,
			format(r.Debit, 3),
			format(r.IVSlope, 4),
			format(r.IVRatio, 3),
			format(r.ThetaAdvantage, 4),
			format(r.VegaTheta, 3),
			breakevens(r.Breakeven),
			format(r.PayoffRatio, 2),
			format(r.BEMove, 2),
			r.Score,
		))
	}

	if len(res.Skipped) > 0 {
		sb.WriteString("\nSkipped expiries:\n")
		for _, s := range res.Skipped {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", s.Expiry, s.Reason))
		}
	}

	sb.WriteString("\nValues shown as n/a are unavailable for that candidate.\n")
	return sb.String()
}

func format(v calendar.Value, prec int) string {
	f, ok := v.Get()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, f)
}

func breakevens(p calendar.BreakevenPair) string {
	if !p.Found() {
		return "n/a"
	}
	return fmt.Sprintf("%s-%s", format(p.Lower, 2), format(p.Upper, 2))
}
