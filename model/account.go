package model

import (
	"encoding/json"
	"time"
)

// Account holds the two balances the ledger engine moves money between.
// PendingBalance is the amount reserved against accepted deliveries;
// WalletBalance is settled funds. Amounts are whole shillings.
type Account struct {
	ID             int64     `json:"-"`
	AccountID      string    `json:"account_id"`
	OwnerID        string    `json:"owner_id"`
	PendingBalance int64     `json:"pending_balance"`
	WalletBalance  int64     `json:"wallet_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (a *Account) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}
