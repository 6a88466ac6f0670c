// Package memstore is an in-memory implementation of the workflow and report
// repositories. One mutex serializes every transaction; a failed transaction
// restores the state it started from.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/reports"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
	"github.com/brickflow/brickflow/internal/workflow"
)

var (
	_ workflow.Repository   = (*Store)(nil)
	_ workflow.TxRepository = (*tx)(nil)
	_ reports.Repository    = (*Store)(nil)
)

const (
	tableBrickTypes   = "brick_types"
	tableRequisitions = "requisitions"
	tableChallans     = "delivery_challans"
	tablePayments     = "payments"
)

type state struct {
	brickTypes   map[int64]requisition.BrickType
	requisitions map[int64]requisition.Requisition
	challans     map[int64]challan.Challan
	payments     map[int64]payment.Payment
	audit        []shared.AuditLog
	// next holds the last issued id per table.
	next map[string]int64
}

func (s *state) clone() *state {
	return &state{
		brickTypes:   maps.Clone(s.brickTypes),
		requisitions: maps.Clone(s.requisitions),
		challans:     maps.Clone(s.challans),
		payments:     maps.Clone(s.payments),
		audit:        slices.Clone(s.audit),
		next:         maps.Clone(s.next),
	}
}

func (s *state) id(table string) int64 {
	s.next[table]++
	return s.next[table]
}

// Store keeps all records in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		state: &state{
			brickTypes:   map[int64]requisition.BrickType{},
			requisitions: map[int64]requisition.Requisition{},
			challans:     map[int64]challan.Challan{},
			payments:     map[int64]payment.Payment{},
			next:         map[string]int64{},
		},
		now: time.Now,
	}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// PutBrickType inserts or replaces a brick type. A zero ID is assigned.
func (s *Store) PutBrickType(b requisition.BrickType) requisition.BrickType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.state.id(tableBrickTypes)
	} else if b.ID > s.state.next[tableBrickTypes] {
		s.state.next[tableBrickTypes] = b.ID
	}
	s.state.brickTypes[b.ID] = b
	return b
}

// SeedBrickType inserts b, or updates the price and availability of the brick
// type with the same name.
func (s *Store) SeedBrickType(_ context.Context, b requisition.BrickType) (requisition.BrickType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.state.brickTypes {
		if existing.Name == b.Name {
			b.ID = id
			s.state.brickTypes[id] = b
			return b, nil
		}
	}
	b.ID = s.state.id(tableBrickTypes)
	s.state.brickTypes[b.ID] = b
	return b, nil
}

// WithTx runs fn while holding the store lock, restoring the previous state when
// fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, workflow.TxRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &tx{st: s.state, now: s.now}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) read() (*state, func()) {
	s.mu.Lock()
	return s.state, s.mu.Unlock
}

// paginate returns the page of items selected by page and perPage.
func paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 {
		return items
	}
	start := shared.Offset(page, perPage)
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// withinDays reports whether t falls on a calendar day in [from, to].
func withinDays(t, from, to time.Time) bool {
	d := dayOf(t)
	return !d.Before(dayOf(from)) && !d.After(dayOf(to))
}
