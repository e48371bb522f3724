package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rsnash92/taxfolio/internal/importer"
)

func newImportCommand() *cobra.Command {
	var repoDir, format, user string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a CSV export, or every CSV in import/",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) > 0 {
				file = args[0]
			}
			return runImport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), repoDir, file, format, user)
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVar(&format, "format", "coinbase", "file format")
	cmd.Flags().StringVar(&user, "user", "", "ledger owner (default from config)")

	return cmd
}

func runImport(ctx context.Context, out, logOut io.Writer, repoDir, file, format, user string) error {
	ws, err := openWorkspace(repoDir, logOut)
	if err != nil {
		return err
	}

	registry := importer.DefaultRegistry()
	parser := registry.Get(format)
	if parser == nil {
		formats := registry.Formats()
		slices.Sort(formats)
		return fmt.Errorf("unknown format %q (available: %s)", format, strings.Join(formats, ", "))
	}

	st, err := ws.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	userID := ws.user(user)
	svc := ws.taxService(st)
	defer ws.saveCache(svc)

	if file != "" {
		txs, err := importer.ParseFile(parser, file)
		if err != nil {
			return err
		}
		n, err := st.Add(ctx, userID, txs...)
		if err != nil {
			return fmt.Errorf("storing %s: %w", filepath.Base(file), err)
		}
		svc.Invalidate(userID)
		ws.logger.Info("imported file", "file", file, "format", parser.Format(), "user", userID, "transactions", n)
		fmt.Fprintf(out, "Imported %d transaction(s) from %s\n", n, filepath.Base(file))
		ws.commit(fmt.Sprintf("import: %d transaction(s) from %s", n, filepath.Base(file)))
		return nil
	}

	files, err := importer.Scan(ws.root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No files to import.")
		return nil
	}

	total := 0
	for _, f := range files {
		txs, err := importer.ParseFile(parser, f.Path)
		if err != nil {
			return err
		}
		n, err := st.Add(ctx, userID, txs...)
		if err != nil {
			return fmt.Errorf("storing %s: %w", f.Name, err)
		}
		svc.Invalidate(userID)
		if err := importer.MarkProcessed(ws.root, f.Name); err != nil {
			return err
		}
		ws.logger.Info("imported file", "file", f.Name, "format", parser.Format(), "user", userID, "transactions", n)
		total += n
	}

	fmt.Fprintf(out, "Imported %d transaction(s) from %d file(s)\n", total, len(files))
	ws.commit(fmt.Sprintf("import: %d transaction(s) from %d file(s)", total, len(files)))
	return nil
}
