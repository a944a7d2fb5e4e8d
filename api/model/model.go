/*
Copyright 2024 Sureboda Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sureboda/sureboda/model"
)

// InitiatePayment is the request body for starting an STK push collection.
type InitiatePayment struct {
	PhoneNumber string `json:"phone_number"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

func (p *InitiatePayment) ValidateInitiatePayment() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PhoneNumber, validation.Required),
		validation.Field(&p.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.Reference, validation.Required),
	)
}

// InitiatePayout is the request body for starting a B2C transfer. Amount
// bounds are enforced in the payout service, not here.
type InitiatePayout struct {
	PhoneNumber string `json:"phone_number"`
	Amount      int64  `json:"amount"`
	Remarks     string `json:"remarks"`
	Occasion    string `json:"occasion"`
}

func (p *InitiatePayout) ValidateInitiatePayout() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PhoneNumber, validation.Required),
		validation.Field(&p.Amount, validation.Required, validation.Min(int64(1))),
	)
}

// CreateDelivery is the request body for registering a delivery with its
// quoted fee.
type CreateDelivery struct {
	BusinessID string `json:"business_id"`
	RiderID    string `json:"rider_id"`
	Fee        int64  `json:"delivery_fee"`
}

func (d *CreateDelivery) ValidateCreateDelivery() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.BusinessID, validation.Required),
		validation.Field(&d.Fee, validation.Required, validation.Min(int64(1))),
	)
}

// UpdateDeliveryStatus is the request body for moving a delivery through its
// lifecycle. RiderID is only consumed on the transition to accepted.
type UpdateDeliveryStatus struct {
	Status  string `json:"status"`
	RiderID string `json:"rider_id"`
}

func (d *UpdateDeliveryStatus) ValidateUpdateDeliveryStatus() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Status, validation.Required, validation.In(
			model.DeliveryStatusRequested,
			model.DeliveryStatusAccepted,
			model.DeliveryStatusPickedUp,
			model.DeliveryStatusDelivered,
			model.DeliveryStatusCancelled,
		)),
	)
}
