// Package challan models delivery challans and their delivery status table.
package challan

import (
	"time"
)

// ============================================================================
// DELIVERY STATUS
// ============================================================================

// Status represents the delivery lifecycle of a challan.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusAssigned, StatusFailed},
	StatusAssigned:  {StatusInTransit, StatusFailed},
	StatusInTransit: {StatusDelivered, StatusFailed},
	StatusDelivered: {},
	StatusFailed:    {StatusAssigned},
}

// Statuses returns every delivery status.
func Statuses() []Status {
	return []Status{StatusPending, StatusAssigned, StatusInTransit, StatusDelivered, StatusFailed}
}

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// AllowedTransitions returns the statuses reachable from s in one step.
func (s Status) AllowedTransitions() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether target is a legal edge from s.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CanEdit reports whether vehicle/driver/location fields may still change.
func (s Status) CanEdit() bool {
	return s != StatusDelivered
}

// ============================================================================
// ENTITY
// ============================================================================

// Challan is one delivery job derived from exactly one requisition.
type Challan struct {
	ID            int64      `json:"id" db:"id"`
	ChallanNumber string     `json:"challan_number" db:"challan_number"`
	RequisitionID int64      `json:"requisition_id" db:"requisition_id"`
	OrderNumber   string     `json:"order_number" db:"order_number"`
	Date          time.Time  `json:"date" db:"date"`
	VehicleNumber string     `json:"vehicle_number" db:"vehicle_number"`
	DriverName    *string    `json:"driver_name,omitempty" db:"driver_name"`
	VehicleType   *string    `json:"vehicle_type,omitempty" db:"vehicle_type"`
	Location      string     `json:"location" db:"location"`
	Remarks       *string    `json:"remarks,omitempty" db:"remarks"`
	Status        Status     `json:"delivery_status" db:"delivery_status"`
	DeliveryDate  *time.Time `json:"delivery_date,omitempty" db:"delivery_date"`
	PrintCount    int        `json:"print_count" db:"print_count"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// UpdateDeliveryStatus validates target against the status set and the transition
// table, then applies it. Becoming delivered stamps DeliveryDate with today unless a
// date is already recorded. It returns false and leaves the challan untouched when
// the change is not allowed.
func (c *Challan) UpdateDeliveryStatus(target Status, today time.Time) bool {
	if !target.IsValid() || !c.Status.CanTransitionTo(target) {
		return false
	}
	c.Status = target
	if target == StatusDelivered {
		c.stampDelivered(today)
	}
	return true
}

// MarkDeliveredOnPayment flips a pending challan straight to delivered when its
// payment is recorded. The transition table does not apply to this path.
func (c *Challan) MarkDeliveredOnPayment(today time.Time) bool {
	if c.Status != StatusPending {
		return false
	}
	c.Status = StatusDelivered
	c.stampDelivered(today)
	return true
}

func (c *Challan) stampDelivered(today time.Time) {
	if c.DeliveryDate != nil {
		return
	}
	d := truncateDay(today)
	c.DeliveryDate = &d
}

// IncrementPrintCount records one more generated printable document.
func (c *Challan) IncrementPrintCount() {
	c.PrintCount++
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ============================================================================
// QUERIES
// ============================================================================

// ListFilter narrows challan listings.
type ListFilter struct {
	Status  Status
	Date    *time.Time
	Page    int
	PerPage int
}
