// Package service runs tax computations over stored ledgers.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/rsnash92/taxfolio/internal/cgt"
	"github.com/rsnash92/taxfolio/internal/ledger"
	"github.com/rsnash92/taxfolio/internal/model"
)

const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	ckSummary = "summary:%q:%s"
)

func init() {
	// Cached values are stored as interface{} when the cache is saved.
	gob.Register(cgt.TaxSummary{})
}

// Repository supplies a user's transactions.
type Repository interface {
	Transactions(ctx context.Context, userID string) ([]model.Transaction, error)
}

// Result is one user's computation.
type Result struct {
	UserID       string
	Summary      cgt.TaxSummary
	Transactions int
	Cached       bool
}

// TaxService computes summaries and caches them by ledger content.
type TaxService struct {
	repo   Repository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewTaxService creates a TaxService. A nil cache gets the default
// expiry; a nil logger discards output.
func NewTaxService(repo Repository, c *cache.Cache, logger *slog.Logger) *TaxService {
	if c == nil {
		c = cache.New(DefaultCacheExpiration, CacheCleanupInterval)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TaxService{repo: repo, cache: c, logger: logger}
}

// OpenCache returns a cache seeded from the file at path. A missing file
// gives an empty cache. An unreadable file is reported along with an empty,
// usable cache.
func OpenCache(path string) (*cache.Cache, error) {
	c := cache.New(DefaultCacheExpiration, CacheCleanupInterval)
	if err := c.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cache.New(DefaultCacheExpiration, CacheCleanupInterval), fmt.Errorf("loading cache %s: %w", path, err)
	}
	c.DeleteExpired()
	return c, nil
}

// SaveCache writes the unexpired cached summaries to path.
func (s *TaxService) SaveCache(path string) error {
	s.cache.DeleteExpired()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := s.cache.SaveFile(path); err != nil {
		return fmt.Errorf("saving cache %s: %w", path, err)
	}
	return nil
}

// Compute loads userID's ledger and returns its tax summary under p.
// An unchanged ledger with unchanged params is served from the cache.
func (s *TaxService) Compute(ctx context.Context, userID string, p cgt.Params) (Result, error) {
	start := time.Now()

	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("loading transactions for %q: %w", userID, err)
	}

	key := fmt.Sprintf(ckSummary, userID, Fingerprint(txs, p))
	if cached, found := s.cache.Get(key); found {
		if summary, ok := cached.(cgt.TaxSummary); ok {
			s.logger.Info("serving cached summary", "user", userID, "transactions", len(txs))
			return Result{UserID: userID, Summary: cloneSummary(summary), Transactions: len(txs), Cached: true}, nil
		}
		s.cache.Delete(key)
	}

	summary, err := cgt.Compute(txs, p)
	if err != nil {
		return Result{}, fmt.Errorf("computing summary for %q: %w", userID, err)
	}

	for _, sk := range summary.Skipped {
		s.logger.Warn("transaction skipped",
			"user", userID,
			"id", sk.Transaction.ID,
			"asset", sk.Transaction.Asset,
			"reason", string(sk.Reason))
	}

	s.cache.Set(key, cloneSummary(summary), cache.DefaultExpiration)
	s.logger.Info("computed tax summary",
		"user", userID,
		"transactions", len(txs),
		"events", len(summary.Events),
		"matching", p.Matching.String(),
		"duration", time.Since(start))

	return Result{UserID: userID, Summary: summary, Transactions: len(txs)}, nil
}

// ComputeMany computes each user concurrently. Results are in userIDs order;
// the first error cancels the rest.
func (s *TaxService) ComputeMany(ctx context.Context, userIDs []string, p cgt.Params) ([]Result, error) {
	results := make([]Result, len(userIDs))
	g, ctx := errgroup.WithContext(ctx)
	for i, userID := range userIDs {
		g.Go(func() error {
			r, err := s.Compute(ctx, userID, p)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Holdings returns userID's open positions after matching under p. It is
// not cached.
func (s *TaxService) Holdings(ctx context.Context, userID string, p cgt.Params) ([]cgt.Holding, error) {
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for %q: %w", userID, err)
	}
	holdings, err := cgt.Holdings(txs, p)
	if err != nil {
		return nil, fmt.Errorf("computing holdings for %q: %w", userID, err)
	}
	return holdings, nil
}

// Invalidate drops every cached summary for userID.
func (s *TaxService) Invalidate(userID string) {
	prefix := fmt.Sprintf(ckSummary, userID, "")
	n := 0
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
			n++
		}
	}
	s.logger.Info("invalidated cached summaries", "user", userID, "entries", n)
}

// cloneSummary copies the slices of s so a cached summary never shares
// backing arrays with one handed to a caller.
func cloneSummary(s cgt.TaxSummary) cgt.TaxSummary {
	events := make([]cgt.DisposalEvent, len(s.Events))
	for i, e := range s.Events {
		e.Matches = slices.Clone(e.Matches)
		events[i] = e
	}
	s.Events = events
	s.Skipped = slices.Clone(s.Skipped)
	return s
}

// Fingerprint identifies a ledger and parameter set. Row order matters, so a
// reordered ledger is recomputed even though the result would not change.
func Fingerprint(txs []model.Transaction, p cgt.Params) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s\n", p.AnnualExemption, p.FlatRate, p.Matching, p.Unmatched)
	for _, tx := range txs {
		io.WriteString(h, strings.Join(ledger.MarshalTransaction(tx), "\x1f"))
		io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}
