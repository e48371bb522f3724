package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rsnash92/taxfolio/internal/report"
)

func newYearsCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "years",
		Short: "List configured tax years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYears(cmd.OutOrStdout(), cmd.ErrOrStderr(), repoDir)
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "repository directory")

	return cmd
}

func runYears(out, logOut io.Writer, repoDir string) error {
	ws, err := openWorkspace(repoDir, logOut)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAX YEAR\tEXEMPTION\tRATE\tDEFAULT")
	for _, y := range ws.cfg.TaxYears {
		mark := ""
		if y.Label == ws.cfg.DefaultTaxYear {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t%s\n",
			y.Label, report.Money(y.AnnualExemption, ws.cfg.Currency), y.Rate.Mul(decimal.NewFromInt(100)), mark)
	}
	return tw.Flush()
}
