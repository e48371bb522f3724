package cgt

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidExemption is returned when the annual exemption is negative.
	ErrInvalidExemption = errors.New("annual exemption must not be negative")
	// ErrInvalidTaxRate is returned when the flat rate is outside [0, 1].
	ErrInvalidTaxRate = errors.New("flat tax rate must be between 0 and 1")
	// ErrInvalidPolicy is returned for an unknown matching strategy or unmatched policy.
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrUnmatchedDisposal is wrapped by UnmatchedDisposalError.
	ErrUnmatchedDisposal = errors.New("disposal exceeds open holdings")
)

// MatchingStrategy selects how disposals are matched against acquisitions.
type MatchingStrategy int

const (
	// PureFIFO matches each disposal against the oldest open lots first.
	PureFIFO MatchingStrategy = iota
	// UKHMRC applies the same-day rule, then the 30-day bed-and-breakfast rule,
	// then the Section 104 pooled average cost.
	UKHMRC
)

func (s MatchingStrategy) String() string {
	switch s {
	case PureFIFO:
		return "fifo"
	case UKHMRC:
		return "hmrc"
	default:
		return "unknown"
	}
}

// ParseMatchingStrategy parses "fifo" or "hmrc". The empty string means PureFIFO.
func ParseMatchingStrategy(s string) (MatchingStrategy, error) {
	switch s {
	case "", "fifo":
		return PureFIFO, nil
	case "hmrc":
		return UKHMRC, nil
	default:
		return 0, fmt.Errorf("%w: unknown matching strategy %q", ErrInvalidPolicy, s)
	}
}

// UnmatchedPolicy decides what a disposal without enough open holdings means.
type UnmatchedPolicy int

const (
	// Ignore drops the disposal: no event, no effect on open lots.
	Ignore UnmatchedPolicy = iota
	// Reject aborts the computation with an UnmatchedDisposalError.
	Reject
	// TreatAsZeroCostBasis matches what is available and gives the shortfall a zero cost.
	TreatAsZeroCostBasis
)

func (p UnmatchedPolicy) String() string {
	switch p {
	case Ignore:
		return "ignore"
	case Reject:
		return "reject"
	case TreatAsZeroCostBasis:
		return "zero-cost"
	default:
		return "unknown"
	}
}

// ParseUnmatchedPolicy parses "ignore", "reject" or "zero-cost". The empty string means Ignore.
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, error) {
	switch s {
	case "", "ignore":
		return Ignore, nil
	case "reject":
		return Reject, nil
	case "zero-cost":
		return TreatAsZeroCostBasis, nil
	default:
		return 0, fmt.Errorf("%w: unknown unmatched policy %q", ErrInvalidPolicy, s)
	}
}

// Params are the caller-supplied settings for one computation.
type Params struct {
	AnnualExemption decimal.Decimal
	FlatRate        decimal.Decimal
	Matching        MatchingStrategy
	Unmatched       UnmatchedPolicy
}

// Validate fails fast on configuration errors.
func (p Params) Validate() error {
	if p.AnnualExemption.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidExemption, p.AnnualExemption)
	}
	if p.FlatRate.IsNegative() || p.FlatRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", ErrInvalidTaxRate, p.FlatRate)
	}
	if p.Matching.String() == "unknown" {
		return fmt.Errorf("%w: matching strategy %d", ErrInvalidPolicy, int(p.Matching))
	}
	if p.Unmatched.String() == "unknown" {
		return fmt.Errorf("%w: unmatched policy %d", ErrInvalidPolicy, int(p.Unmatched))
	}
	return nil
}

// UnmatchedDisposalError reports a disposal that could not be fully matched
// under the Reject policy.
type UnmatchedDisposalError struct {
	TransactionID string
	Asset         string
	DisposedAt    time.Time
	Shortfall     decimal.Decimal
}

func (e *UnmatchedDisposalError) Error() string {
	return fmt.Sprintf("disposal %s of %s on %s: short by %s", e.TransactionID, e.Asset, e.DisposedAt.Format("2006-01-02"), e.Shortfall)
}

func (e *UnmatchedDisposalError) Unwrap() error { return ErrUnmatchedDisposal }
