package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	prefix     = "TX"
	dateLayout = "20060102"
)

// FormatTxID returns a transaction ID like "TX-20250103-001".
func FormatTxID(date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, date.UTC().Format(dateLayout), seq)
}

// ParseTxID parses "TX-20250103-001" into its date and sequence.
func ParseTxID(id string) (date time.Time, seq int, err error) {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) != 3 || parts[0] != prefix {
		return time.Time{}, 0, fmt.Errorf("invalid transaction ID format: %q", id)
	}

	date, err = time.Parse(dateLayout, parts[1])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid date in transaction ID %q: %w", id, err)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid sequence in transaction ID %q: %w", id, err)
	}

	return date, seq, nil
}

// NextSeq returns the next free sequence number for date among ids.
// IDs that do not parse are ignored.
func NextSeq(ids []string, date time.Time) int {
	day := date.UTC().Format(dateLayout)
	maxSeq := 0
	for _, existing := range ids {
		d, seq, err := ParseTxID(existing)
		if err != nil || d.Format(dateLayout) != day {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

// Allocator hands out sequential IDs, continuing from a set of existing ones.
type Allocator struct {
	next map[string]int
	ids  []string
}

// NewAllocator seeds an Allocator with IDs already in use.
func NewAllocator(existing []string) *Allocator {
	return &Allocator{next: make(map[string]int), ids: existing}
}

// Next returns a fresh ID for date.
func (a *Allocator) Next(date time.Time) string {
	day := date.UTC().Format(dateLayout)
	seq, ok := a.next[day]
	if !ok {
		seq = NextSeq(a.ids, date)
	}
	a.next[day] = seq + 1
	return FormatTxID(date, seq)
}
