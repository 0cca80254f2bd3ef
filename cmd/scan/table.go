package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/calscan/calscan/internal/scanner"
)

const tableHeader = "#\tBACK\tSTRIKE\tDEBIT\tIV SLOPE\tIV RATIO\tTHETA ADV\tVEGA/THETA\tLOWER BE\tUPPER BE\tPAYOFF\tBE/MOVE\tSCORE"

func writeTable(w io.Writer, res scanner.Result) error {
	fmt.Fprintf(w, "%s %s @ %.2f  spot %.2f  as of %s\n", res.Ticker, res.FrontExpiry, res.Strike, res.Spot, res.AsOf)
	if hover, ok := res.Hover.Get(); ok {
		fmt.Fprintf(w, "hover %.3f  ", hover)
	}
	if move, ok := res.ImpliedMoveAbs.Get(); ok {
		fmt.Fprintf(w, "implied move ±%.2f  ", move)
	}
	fmt.Fprintf(w, "max score %d\n\n", res.MaxScore)

	if len(res.Rows) == 0 {
		fmt.Fprintln(w, "no candidates")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, tableHeader)
		for _, row := range res.Table() {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				row.Rank, row.BackExpiry, strconv.FormatFloat(row.Strike, 'f', -1, 64),
				cell(row.Debit), cell(row.IVSlope), cell(row.IVRatio), cell(row.Theta),
				cell(row.VegaTheta), cell(row.LowerBE), cell(row.UpperBE),
				cell(row.PayoffRatio), cell(row.BEMove), row.Score)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, s := range res.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Expiry, s.Reason)
	}
	return nil
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
