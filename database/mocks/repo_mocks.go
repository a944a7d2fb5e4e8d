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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sureboda/sureboda/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Payment methods

func (m *MockDataSource) RecordPaymentIntent(ctx context.Context, intent *model.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockDataSource) GetPaymentIntent(ctx context.Context, checkoutRequestID string) (*model.PaymentIntent, error) {
	args := m.Called(ctx, checkoutRequestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentIntent), args.Error(1)
}

func (m *MockDataSource) ResolvePaymentCallback(ctx context.Context, resolution *model.PaymentResolution) error {
	args := m.Called(ctx, resolution)
	return args.Error(0)
}

func (m *MockDataSource) GetPaymentIntentsByStatus(ctx context.Context, status string, limit int) ([]*model.PaymentIntent, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PaymentIntent), args.Error(1)
}

// Payout methods

func (m *MockDataSource) RecordPayoutIntent(ctx context.Context, intent *model.PayoutIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockDataSource) GetPayoutIntent(ctx context.Context, conversationID string) (*model.PayoutIntent, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PayoutIntent), args.Error(1)
}

func (m *MockDataSource) ResolvePayoutResult(ctx context.Context, resolution *model.PayoutResolution) error {
	args := m.Called(ctx, resolution)
	return args.Error(0)
}

func (m *MockDataSource) SumCompletedPayouts(ctx context.Context, phoneNumber string, since time.Time) (int64, error) {
	args := m.Called(ctx, phoneNumber, since)
	return args.Get(0).(int64), args.Error(1)
}

// Delivery methods

func (m *MockDataSource) CreateDelivery(ctx context.Context, d *model.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDataSource) GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error) {
	args := m.Called(ctx, deliveryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Delivery), args.Error(1)
}

func (m *MockDataSource) AssignDeliveryRider(ctx context.Context, deliveryID, riderID string) error {
	args := m.Called(ctx, deliveryID, riderID)
	return args.Error(0)
}

func (m *MockDataSource) TransitionDelivery(ctx context.Context, deliveryID, fromStatus, toStatus, paymentStatus string) error {
	args := m.Called(ctx, deliveryID, fromStatus, toStatus, paymentStatus)
	return args.Error(0)
}

// Account methods

func (m *MockDataSource) GetOrCreateAccount(ctx context.Context, ownerID string) (*model.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccount(ctx context.Context, ownerID string) (*model.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) RecordTransaction(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockDataSource) GetDeliveryTransactions(ctx context.Context, deliveryID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, deliveryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

// Ledger methods

func (m *MockDataSource) ApplyDeliveryReservation(ctx context.Context, d *model.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDataSource) ApplyDeliveryCompletion(ctx context.Context, d *model.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDataSource) ApplyDeliveryCancellation(ctx context.Context, d *model.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
