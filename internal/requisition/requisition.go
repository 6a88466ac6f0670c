// Package requisition models customer orders and their status chain.
package requisition

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// STATUS
// ============================================================================

// Status represents the lifecycle of a requisition.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusAssigned  Status = "assigned"
	StatusDelivered Status = "delivered"
	StatusPaid      Status = "paid"
	StatusComplete  Status = "complete"
)

// chain lists the statuses in lifecycle order; each may only advance to the next.
var chain = []Status{StatusSubmitted, StatusAssigned, StatusDelivered, StatusPaid, StatusComplete}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(chain))
	copy(out, chain)
	return out
}

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	return s.position() >= 0
}

func (s Status) position() int {
	for i, c := range chain {
		if c == s {
			return i
		}
	}
	return -1
}

// Next returns the single successor of s, or false when s is terminal or unknown.
func (s Status) Next() (Status, bool) {
	i := s.position()
	if i < 0 || i == len(chain)-1 {
		return "", false
	}
	return chain[i+1], true
}

// CanTransitionTo reports whether target is the immediate successor of s.
func (s Status) CanTransitionTo(target Status) bool {
	next, ok := s.Next()
	return ok && next == target
}

// ============================================================================
// ENTITIES
// ============================================================================

// BrickType is the reference data a requisition prices against.
type BrickType struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	CurrentPrice decimal.Decimal `json:"current_price" db:"current_price"`
	Active       bool            `json:"active" db:"active"`
}

// Requisition represents one customer order.
type Requisition struct {
	ID               int64           `json:"id" db:"id"`
	OrderNumber      string          `json:"order_number" db:"order_number"`
	Date             time.Time       `json:"date" db:"date"`
	UserID           int64           `json:"user_id" db:"user_id"`
	UserName         string          `json:"user_name" db:"user_name"`
	BrickTypeID      int64           `json:"brick_type_id" db:"brick_type_id"`
	BrickTypeName    string          `json:"brick_type_name" db:"brick_type_name"`
	Quantity         decimal.Decimal `json:"quantity" db:"quantity"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	EnteredPrice     decimal.Decimal `json:"entered_price" db:"entered_price"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"`
	CustomerName     string          `json:"customer_name" db:"customer_name"`
	CustomerPhone    string          `json:"customer_phone" db:"customer_phone"`
	CustomerAddress  string          `json:"customer_address" db:"customer_address"`
	CustomerLocation string          `json:"customer_location" db:"customer_location"`
	Status           Status          `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// UnitPriceForTotal returns the price used for the total: the entered price when
// set, else the snapshot price per unit.
func (r *Requisition) UnitPriceForTotal() decimal.Decimal {
	if r.EnteredPrice.IsPositive() {
		return r.EnteredPrice
	}
	return r.PricePerUnit
}

// RecalculateTotal sets TotalAmount from quantity and unit price. Callers run it
// before persisting whenever quantity or a price changed.
func (r *Requisition) RecalculateTotal() {
	r.TotalAmount = r.Quantity.Mul(r.UnitPriceForTotal()).Round(2)
}

// CanTransitionTo reports whether the requisition may move to target.
func (r *Requisition) CanTransitionTo(target Status) bool {
	return r.Status.CanTransitionTo(target)
}

// UpdateStatus applies the transition guard and mutates on success.
func (r *Requisition) UpdateStatus(target Status) bool {
	if !r.CanTransitionTo(target) {
		return false
	}
	r.Status = target
	return true
}

// ============================================================================
// QUERIES
// ============================================================================

// ListFilter narrows requisition listings.
type ListFilter struct {
	UserID  int64
	Status  Status
	Date    *time.Time
	Page    int
	PerPage int
}
