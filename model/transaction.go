package model

import (
	"encoding/json"
	"time"
)

const (
	TransactionTypePendingPayment   = "pending_payment"
	TransactionTypeDeliveryPayment  = "delivery_payment"
	TransactionTypeCancelledPayment = "cancelled_payment"
	TransactionTypeCharge           = "charge"
	TransactionTypeCredit           = "credit"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusRefunded  = "refunded"
)

// Transaction is one ledger line. A delivery produces a pending_payment line
// for the business at acceptance, which the ledger engine later retypes to
// delivery_payment (completed) or cancelled_payment (refunded). Collection
// callbacks produce credit lines for the paying customer.
type Transaction struct {
	ID            int64     `json:"-"`
	TransactionID string    `json:"transaction_id"`
	OwnerID       string    `json:"owner_id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	DeliveryID    string    `json:"delivery_id,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (t *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}
