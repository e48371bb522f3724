package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rsnash92/taxfolio/internal/config"
	"github.com/rsnash92/taxfolio/internal/gitops"
	"github.com/rsnash92/taxfolio/internal/ledger"
	"github.com/rsnash92/taxfolio/internal/store"
)

func newInitCommand() *cobra.Command {
	var user string
	var driver string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new taxfolio repo",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), absDir, user, driver, useGit)
		},
	}

	cmd.Flags().StringVar(&user, "user", defaultUser, "ledger owner")
	cmd.Flags().StringVar(&driver, "storage", config.DriverCSV, "storage driver (csv or sqlite)")
	cmd.Flags().BoolVar(&useGit, "git", true, "track the repo in git")

	return cmd
}

func runInit(ctx context.Context, out, errOut io.Writer, dir, user, driver string, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default(user)
	if driver == config.DriverSQLite {
		cfg.Storage = config.StorageConfig{Driver: config.DriverSQLite, Path: "ledger/taxfolio.db"}
	} else {
		cfg.Storage.Driver = driver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if useGit && !gitops.Available() {
		fmt.Fprintln(errOut, "warning: git not found, repo will not be tracked")
		useGit = false
	}
	cfg.Git.AutoCommit = useGit

	// Create directory structure.
	dirs := []string{
		"ledger",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Create the empty ledger.
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := store.Open(ctx, cfg.StoragePath(dir))
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
		if err := db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	default:
		if err := ledger.NewFileRepository(cfg.StoragePath(dir)).Init(); err != nil {
			return fmt.Errorf("writing ledger: %w", err)
		}
	}

	gitignore := ".env\n.taxfolio/\nledger/*.db\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !useGit {
		fmt.Fprintf(out, "Initialized taxfolio repo at %s (%s storage)\n", dir, cfg.Storage.Driver)
		return nil
	}

	// Initialize git and create initial commit.
	if err := gitops.Init(dir); err != nil {
		return err
	}
	hash, err := gitops.CommitAll(dir, "init: taxfolio repo for "+user, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized taxfolio repo at %s (%s storage, %s)\n", dir, cfg.Storage.Driver, hash)
	return nil
}
