package model

import (
	"encoding/json"
	"time"
)

const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusFailed    = "failed"
)

// PayoutIntent is the durable record of one B2C transfer, the outbound mirror
// of PaymentIntent. It is keyed by the gateway's ConversationID.
type PayoutIntent struct {
	ID                       int64     `json:"-"`
	ConversationID           string    `json:"conversation_id"`
	OriginatorConversationID string    `json:"originator_conversation_id"`
	PhoneNumber              string    `json:"phone_number"`
	Amount                   int64     `json:"amount"`
	Remarks                  string    `json:"remarks"`
	Status                   string    `json:"status"`
	TransactionReceipt       string    `json:"transaction_receipt,omitempty"`
	ReceiverName             string    `json:"receiver_name,omitempty"`
	ResultCode               int       `json:"result_code"`
	ResultDesc               string    `json:"result_desc,omitempty"`
	CompletedAt              time.Time `json:"completed_at,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

func (p *PayoutIntent) IsTerminal() bool {
	return p.Status == PayoutStatusCompleted || p.Status == PayoutStatusFailed
}

func (p *PayoutIntent) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// PayoutResolution carries the outcome a result webhook reported for one
// payout. When Status is completed, the receipt fields must be present.
type PayoutResolution struct {
	ConversationID     string
	Status             string
	ResultCode         int
	ResultDesc         string
	TransactionReceipt string
	ReceiverName       string
	CompletedAt        time.Time
}
