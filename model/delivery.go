package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	DeliveryStatusRequested = "requested"
	DeliveryStatusAccepted  = "accepted"
	DeliveryStatusPickedUp  = "picked_up"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusCancelled = "cancelled"

	DeliveryPaymentPending   = "pending"
	DeliveryPaymentInTransit = "in_transit"
	DeliveryPaymentCompleted = "completed"
	DeliveryPaymentCancelled = "cancelled"
)

// ErrSameStatus marks a transition where old and new status are equal.
// Re-entrant triggers hit this constantly; it is a recognized no-op, not a
// failure.
var ErrSameStatus = errors.New("delivery already in the requested status")

// deliveryRank orders the forward chain requested → accepted → picked_up →
// delivered. Cancellation sits outside the chain and is reachable from any
// non-terminal state.
var deliveryRank = map[string]int{
	DeliveryStatusRequested: 0,
	DeliveryStatusAccepted:  1,
	DeliveryStatusPickedUp:  2,
	DeliveryStatusDelivered: 3,
}

// Delivery tracks one job through its lifecycle. PaymentStatus is always
// derived from Status, never set independently. LedgerPosted guards the
// ledger engine: it flips false→true exactly once per delivery.
type Delivery struct {
	ID            int64     `json:"-"`
	DeliveryID    string    `json:"delivery_id"`
	BusinessID    string    `json:"business_id"`
	RiderID       string    `json:"rider_id,omitempty"`
	Fee           int64     `json:"delivery_fee"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	LedgerPosted  bool      `json:"ledger_posted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsTerminalDeliveryStatus reports whether a status admits no further
// transitions.
func IsTerminalDeliveryStatus(status string) bool {
	return status == DeliveryStatusDelivered || status == DeliveryStatusCancelled
}

// IsValidDeliveryStatus reports whether the given string is a known lifecycle
// status.
func IsValidDeliveryStatus(status string) bool {
	if status == DeliveryStatusCancelled {
		return true
	}
	_, ok := deliveryRank[status]
	return ok
}

// CanTransition validates a lifecycle move. The forward chain advances one
// step at a time; cancellation is allowed from any non-terminal state;
// terminal states admit nothing. Equal old and new status returns
// ErrSameStatus so callers can treat the trigger as a no-op.
func CanTransition(from, to string) error {
	if !IsValidDeliveryStatus(from) {
		return fmt.Errorf("unknown delivery status %q", from)
	}
	if !IsValidDeliveryStatus(to) {
		return fmt.Errorf("unknown delivery status %q", to)
	}
	if from == to {
		return ErrSameStatus
	}
	if IsTerminalDeliveryStatus(from) {
		return fmt.Errorf("delivery is already %s, no further transitions allowed", from)
	}
	if to == DeliveryStatusCancelled {
		return nil
	}
	if deliveryRank[to] != deliveryRank[from]+1 {
		return fmt.Errorf("cannot move delivery from %s to %s", from, to)
	}
	return nil
}

// PaymentStatusFor derives the payment phase from a delivery status. It is a
// pure function; the delivery's PaymentStatus column is never written from
// anywhere else.
func PaymentStatusFor(status string) string {
	switch status {
	case DeliveryStatusAccepted:
		return DeliveryPaymentPending
	case DeliveryStatusPickedUp:
		return DeliveryPaymentInTransit
	case DeliveryStatusDelivered:
		return DeliveryPaymentCompleted
	case DeliveryStatusCancelled:
		return DeliveryPaymentCancelled
	default:
		return DeliveryPaymentPending
	}
}

func (d *Delivery) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}
