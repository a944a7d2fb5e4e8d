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

package database

import (
	"context"
	"time"

	"github.com/sureboda/sureboda/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	payment  // Interface for payment intent operations
	payout   // Interface for payout intent operations
	delivery // Interface for delivery lifecycle operations
	account  // Interface for account and transaction operations
	ledger   // Interface for atomic ledger postings
}

// payment defines methods for handling inbound payment intents.
type payment interface {
	RecordPaymentIntent(ctx context.Context, intent *model.PaymentIntent) error                             // Records a new payment intent after a push is accepted
	GetPaymentIntent(ctx context.Context, checkoutRequestID string) (*model.PaymentIntent, error)           // Retrieves a payment intent by checkout request id
	ResolvePaymentCallback(ctx context.Context, resolution *model.PaymentResolution) error                  // Resolves a pending intent from a callback, exactly once
	GetPaymentIntentsByStatus(ctx context.Context, status string, limit int) ([]*model.PaymentIntent, error) // Retrieves intents in a given status
}

// payout defines methods for handling outbound payout intents.
type payout interface {
	RecordPayoutIntent(ctx context.Context, intent *model.PayoutIntent) error                   // Records a new payout intent after a transfer is accepted
	GetPayoutIntent(ctx context.Context, conversationID string) (*model.PayoutIntent, error)    // Retrieves a payout intent by conversation id
	ResolvePayoutResult(ctx context.Context, resolution *model.PayoutResolution) error          // Resolves a pending payout from a result webhook, exactly once
	SumCompletedPayouts(ctx context.Context, phoneNumber string, since time.Time) (int64, error) // Sums completed payouts to a number since a point in time
}

// delivery defines methods for handling the delivery lifecycle.
type delivery interface {
	CreateDelivery(ctx context.Context, d *model.Delivery) error                                        // Creates a new delivery in requested status
	GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error)                        // Retrieves a delivery by id
	AssignDeliveryRider(ctx context.Context, deliveryID, riderID string) error                          // Assigns a rider to an unassigned delivery
	TransitionDelivery(ctx context.Context, deliveryID, fromStatus, toStatus, paymentStatus string) error // Applies a status transition, deduplicated by event
}

// account defines methods for handling accounts and their transaction history.
type account interface {
	GetOrCreateAccount(ctx context.Context, ownerID string) (*model.Account, error)               // Retrieves an owner's account, creating it when absent
	GetAccount(ctx context.Context, ownerID string) (*model.Account, error)                       // Retrieves an owner's account
	RecordTransaction(ctx context.Context, txn *model.Transaction) error                          // Records a standalone transaction
	GetDeliveryTransactions(ctx context.Context, deliveryID string) ([]*model.Transaction, error) // Retrieves all transactions tied to a delivery
}

// ledger defines the atomic postings tied to delivery lifecycle events. Each
// posting commits all of its writes or none of them, and applies at most once
// per delivery.
type ledger interface {
	ApplyDeliveryReservation(ctx context.Context, d *model.Delivery) error  // Reserves the fee against the business on acceptance
	ApplyDeliveryCompletion(ctx context.Context, d *model.Delivery) error   // Settles the fee to the rider on delivery
	ApplyDeliveryCancellation(ctx context.Context, d *model.Delivery) error // Releases the reservation on cancellation
}
