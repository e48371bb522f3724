package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsnash92/taxfolio/internal/cgt"
	"github.com/rsnash92/taxfolio/internal/report"
	"github.com/rsnash92/taxfolio/internal/runlog"
)

type computeOptions struct {
	repoDir   string
	taxYear   string
	matching  string
	unmatched string
	format    string
	user      string
	allUsers  bool
	holdings  bool
}

func newComputeCommand() *cobra.Command {
	var opts computeOptions

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute realized gains and estimated tax",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVar(&opts.taxYear, "tax-year", "", "tax year label (default from config)")
	cmd.Flags().StringVar(&opts.matching, "matching", "", "matching strategy: fifo or hmrc")
	cmd.Flags().StringVar(&opts.unmatched, "unmatched", "", "unmatched disposals: ignore, reject or zero-cost")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text, csv or json")
	cmd.Flags().StringVar(&opts.user, "user", "", "ledger owner (default from config)")
	cmd.Flags().BoolVar(&opts.allUsers, "all", false, "compute every user in the store (sqlite only)")
	cmd.Flags().BoolVar(&opts.holdings, "holdings", false, "also list open holdings (text only)")

	return cmd
}

func runCompute(ctx context.Context, out, logOut io.Writer, opts computeOptions) error {
	switch opts.format {
	case "text", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.holdings && opts.format != "text" {
		return fmt.Errorf("--holdings is only available with --format text")
	}

	ws, err := openWorkspace(opts.repoDir, logOut)
	if err != nil {
		return err
	}

	year, err := ws.cfg.TaxYear(opts.taxYear)
	if err != nil {
		return err
	}
	params, err := ws.cfg.Params(year.Label, opts.matching, opts.unmatched)
	if err != nil {
		return err
	}

	st, err := ws.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	users := []string{ws.user(opts.user)}
	if opts.allUsers {
		lister, ok := st.(userLister)
		if !ok {
			return fmt.Errorf("--all needs the sqlite storage driver")
		}
		if users, err = lister.Users(ctx); err != nil {
			return err
		}
	}

	svc := ws.taxService(st)
	results, err := svc.ComputeMany(ctx, users, params)
	if err != nil {
		return err
	}
	ws.saveCache(svc)

	now := time.Now().UTC()
	entries := make([]runlog.Entry, 0, len(results))
	for _, r := range results {
		if len(results) > 1 && opts.format == "text" {
			fmt.Fprintf(out, "== %s ==\n", r.UserID)
		}
		if err := render(out, r.Summary, opts.format, ws.cfg.Currency); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		if opts.holdings {
			holdings, err := svc.Holdings(ctx, r.UserID, params)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			if err := report.WriteHoldings(out, holdings, ws.cfg.Currency); err != nil {
				return fmt.Errorf("writing holdings: %w", err)
			}
		}

		entries = append(entries, runlog.Entry{
			Timestamp:    now,
			User:         r.UserID,
			TaxYear:      year.Label,
			Strategy:     params.Matching.String(),
			Transactions: r.Transactions,
			Events:       len(r.Summary.Events),
			NetPosition:  r.Summary.NetPosition,
			EstimatedTax: r.Summary.EstimatedTax,
		})
	}

	if err := runlog.Append(ws.root, entries); err != nil {
		ws.logger.Warn("failed to write run log", "error", err)
	}
	return nil
}

func render(w io.Writer, s cgt.TaxSummary, format, currency string) error {
	switch format {
	case "csv":
		return report.WriteCSV(w, report.Breakdown(s.Events))
	case "json":
		return report.WriteJSON(w, s)
	default:
		return report.WriteText(w, s, currency)
	}
}
