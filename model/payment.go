package model

import (
	"encoding/json"
	"time"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// PaymentIntent is the durable record of one STK push request. It is keyed by
// the gateway's CheckoutRequestID and mutated exactly once, when the
// asynchronous callback resolves it to paid or failed.
type PaymentIntent struct {
	ID                int64                  `json:"-"`
	CheckoutRequestID string                 `json:"checkout_request_id"`
	MerchantRequestID string                 `json:"merchant_request_id"`
	Reference         string                 `json:"reference"`
	PhoneNumber       string                 `json:"phone_number"`
	Amount            int64                  `json:"amount"`
	Status            string                 `json:"status"`
	MpesaReceipt      string                 `json:"mpesa_receipt,omitempty"`
	ResultCode        int                    `json:"result_code"`
	ResultDesc        string                 `json:"result_desc,omitempty"`
	RawCallback       map[string]interface{} `json:"raw_callback,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// IsTerminal reports whether the intent has already been resolved. Terminal
// intents never transition again; duplicate callbacks are acked without
// mutation.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusFailed
}

func (p *PaymentIntent) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// PaymentResolution carries the outcome a callback reported for one intent.
// When Status is paid, the receipt fields must be present; a failed outcome
// carries only the result code and description.
type PaymentResolution struct {
	CheckoutRequestID string
	Status            string
	ResultCode        int
	ResultDesc        string
	Amount            int64
	MpesaReceipt      string
	PhoneNumber       string
	RawCallback       map[string]interface{}
}
