// Package report renders tax summaries for people and spreadsheets.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/rsnash92/taxfolio/internal/cgt"
)

// AssetLine totals the disposals of one asset.
type AssetLine struct {
	Asset      string          `json:"asset"`
	Disposals  int             `json:"disposals"`
	Quantity   decimal.Decimal `json:"quantity"`
	Proceeds   decimal.Decimal `json:"proceeds"`
	Cost       decimal.Decimal `json:"cost"`
	Fees       decimal.Decimal `json:"fees"`
	GainOrLoss decimal.Decimal `json:"gain_or_loss"`
}

// Breakdown groups events by asset, sorted by symbol.
func Breakdown(events []cgt.DisposalEvent) []AssetLine {
	byAsset := make(map[string]*AssetLine)
	for _, e := range events {
		l, ok := byAsset[e.Asset]
		if !ok {
			l = &AssetLine{Asset: e.Asset}
			byAsset[e.Asset] = l
		}
		l.Disposals++
		l.Quantity = l.Quantity.Add(e.Quantity)
		l.Proceeds = l.Proceeds.Add(e.Proceeds)
		l.Cost = l.Cost.Add(e.MatchedCostBasis)
		l.Fees = l.Fees.Add(e.Fee)
		l.GainOrLoss = l.GainOrLoss.Add(e.GainOrLoss)
	}

	lines := make([]AssetLine, 0, len(byAsset))
	for _, l := range byAsset {
		lines = append(lines, *l)
	}
	slices.SortFunc(lines, func(a, b AssetLine) int { return strings.Compare(a.Asset, b.Asset) })
	return lines
}

// Money formats amount in currency's minor units, e.g. "£1,234.50".
// Unknown currency codes fall back to two decimals.
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// WriteText writes a human-readable summary.
func WriteText(w io.Writer, s cgt.TaxSummary, currency string) error {
	m := func(d decimal.Decimal) string { return Money(d, currency) }

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total gains:\t%s\n", m(s.TotalGains))
	fmt.Fprintf(tw, "Total losses:\t%s\n", m(s.TotalLosses))
	fmt.Fprintf(tw, "Net position:\t%s\n", m(s.NetPosition))
	fmt.Fprintf(tw, "Exemption used:\t%s\n", m(s.ExemptionUsed))
	fmt.Fprintf(tw, "Exemption remaining:\t%s\n", m(s.ExemptionRemaining))
	fmt.Fprintf(tw, "Taxable amount:\t%s\n", m(s.TaxableAmount))
	fmt.Fprintf(tw, "Estimated tax:\t%s\n", m(s.EstimatedTax))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Events) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "DATE\tID\tASSET\tQUANTITY\tPROCEEDS\tCOST\tGAIN/LOSS\t")
		for _, e := range s.Events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				e.DisposedAt.Format("2006-01-02"), e.TransactionID, e.Asset, e.Quantity,
				m(e.Proceeds), m(e.MatchedCostBasis), m(e.GainOrLoss))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped %d transaction(s):\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			fmt.Fprintf(w, "  %s %s %s: %s\n", sk.Transaction.ID, sk.Transaction.Kind, sk.Transaction.Asset, sk.Reason)
		}
	}
	return nil
}

// WriteCSV writes one row per asset line, amounts at full precision.
func WriteCSV(w io.Writer, lines []AssetLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"asset", "disposals", "quantity", "proceeds", "cost", "fees", "gain_or_loss"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, l := range lines {
		row := []string{
			l.Asset,
			strconv.Itoa(l.Disposals),
			l.Quantity.String(),
			l.Proceeds.String(),
			l.Cost.String(),
			l.Fees.String(),
			l.GainOrLoss.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", l.Asset, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the summary with the per-asset breakdown attached.
func WriteJSON(w io.Writer, s cgt.TaxSummary) error {
	out := struct {
		cgt.TaxSummary
		Assets []AssetLine `json:"assets"`
	}{s, Breakdown(s.Events)}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteHoldings lists open positions with their remaining cost.
func WriteHoldings(w io.Writer, holdings []cgt.Holding, currency string) error {
	if len(holdings) == 0 {
		_, err := fmt.Fprintln(w, "No open holdings.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ASSET\tQUANTITY\tCOST\tLOTS\t")
	for _, h := range holdings {
		lots := "pool"
		if len(h.Lots) > 0 {
			lots = strconv.Itoa(len(h.Lots))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", h.Asset, h.Quantity, Money(h.Cost, currency), lots)
	}
	return tw.Flush()
}
