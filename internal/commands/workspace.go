package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rsnash92/taxfolio/internal/config"
	"github.com/rsnash92/taxfolio/internal/gitops"
	"github.com/rsnash92/taxfolio/internal/ledger"
	"github.com/rsnash92/taxfolio/internal/logging"
	"github.com/rsnash92/taxfolio/internal/model"
	"github.com/rsnash92/taxfolio/internal/service"
	"github.com/rsnash92/taxfolio/internal/store"
)

const (
	defaultUser = "default"
	cacheFile   = ".taxfolio/cache.gob"
)

// transactionStore is satisfied by both the CSV ledger and the SQLite store.
type transactionStore interface {
	service.Repository
	Add(ctx context.Context, userID string, txs ...model.Transaction) (int, error)
	Close() error
}

type userLister interface {
	Users(ctx context.Context) ([]string, error)
}

// workspace is an initialized taxfolio repo with its config loaded.
type workspace struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

func openWorkspace(repoDir string, logOut io.Writer) (*workspace, error) {
	root, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("not a taxfolio repo (run taxfolio init): %w", err)
	}
	if err := cfg.ApplyEnv(filepath.Join(root, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}

	logger := logging.New(cfg.LogLevel, logOut, cfg.LogFormat == config.LogFormatJSON)
	logger.Debug("loaded config", "root", root, "driver", cfg.Storage.Driver, "user", cfg.User)
	return &workspace{root: root, cfg: cfg, logger: logger}, nil
}

// user returns override, else the configured user, else "default".
func (w *workspace) user(override string) string {
	switch {
	case override != "":
		return override
	case w.cfg.User != "":
		return w.cfg.User
	default:
		return defaultUser
	}
}

// commit records the repo state in git when auto-commit is on. Failures are
// logged, not returned; the ledger change has already happened.
func (w *workspace) commit(message string) {
	if !w.cfg.Git.AutoCommit || !gitops.IsRepo(w.root) {
		return
	}
	hash, err := gitops.CommitAll(w.root, message, w.cfg.Git.AuthorName, w.cfg.Git.AuthorEmail)
	if err != nil {
		w.logger.Warn("git commit failed", "error", err)
		return
	}
	w.logger.Info("committed", "hash", hash, "message", message)
}

func (w *workspace) cachePath() string {
	return filepath.Join(w.root, cacheFile)
}

// taxService returns a service whose cache is seeded from the last run.
func (w *workspace) taxService(st transactionStore) *service.TaxService {
	c, err := service.OpenCache(w.cachePath())
	if err != nil {
		w.logger.Warn("discarding unreadable cache", "error", err)
	}
	return service.NewTaxService(st, c, w.logger)
}

// saveCache persists svc's cache for the next run. A failure only costs a
// recomputation later.
func (w *workspace) saveCache(svc *service.TaxService) {
	if err := svc.SaveCache(w.cachePath()); err != nil {
		w.logger.Warn("failed to save cache", "error", err)
	}
}

func (w *workspace) openStore(ctx context.Context) (transactionStore, error) {
	path := w.cfg.StoragePath(w.root)
	if w.cfg.Storage.Driver != config.DriverSQLite {
		return ledger.NewFileRepository(path), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}
	db, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
