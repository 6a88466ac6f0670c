// Package sequence generates gapless, human-readable document numbers such as
// ORD000001 and CH-000001.
//
// Numbers are derived from the last persisted number, so generation must run
// inside the transaction that inserts the new row, behind a Locker that holds an
// exclusive lock until that transaction ends.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Format describes a numbering scheme.
type Format struct {
	// Prefix precedes the counter (e.g. "ORD", "CH-").
	Prefix string
	// Width is the minimum zero-padded counter width.
	Width int
}

var (
	// OrderNumber numbers requisitions.
	OrderNumber = Format{Prefix: "ORD", Width: 6}
	// ChallanNumber numbers delivery challans.
	ChallanNumber = Format{Prefix: "CH-", Width: 6}
)

// ErrMalformed is returned when the last persisted number does not match the format.
var ErrMalformed = errors.New("sequence: malformed identifier")

// Render formats counter n.
func (f Format) Render(n int64) string {
	return fmt.Sprintf("%s%0*d", f.Prefix, f.Width, n)
}

// Parse extracts the counter from id.
func (f Format) Parse(id string) (int64, error) {
	suffix, ok := strings.CutPrefix(id, f.Prefix)
	if !ok || suffix == "" {
		return 0, fmt.Errorf("%w: %q lacks prefix %q", ErrMalformed, id, f.Prefix)
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	return n, nil
}

// After returns the identifier following last. An empty last starts at 1.
func (f Format) After(last string) (string, error) {
	if last == "" {
		return f.Render(1), nil
	}
	n, err := f.Parse(last)
	if err != nil {
		return "", err
	}
	return f.Render(n + 1), nil
}

// Locker reads the most recent identifier for a format while holding an exclusive
// lock that serializes every other caller using the same format. It returns "" when
// no identifier exists yet. The lock must be released only when the caller's
// transaction ends.
type Locker interface {
	LockLast(ctx context.Context, f Format) (string, error)
}

// Next locks the sequence and returns the identifier to insert.
func Next(ctx context.Context, l Locker, f Format) (string, error) {
	if l == nil {
		return "", errors.New("sequence: locker required")
	}
	last, err := l.LockLast(ctx, f)
	if err != nil {
		return "", fmt.Errorf("sequence: lock %s: %w", f.Prefix, err)
	}
	return f.After(last)
}
