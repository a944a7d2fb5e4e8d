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

package sureboda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sureboda/sureboda/internal/apierror"
	redlock "github.com/sureboda/sureboda/internal/lock"
	"github.com/sureboda/sureboda/internal/notification"
	"github.com/sureboda/sureboda/model"
)

const (
	deliveryLockTimeout     = 30 * time.Second
	deliveryLockWaitTimeout = 5 * time.Second
)

// CreateDelivery registers a new delivery in requested status with its fee
// quoted up front. The business account is created on first sight so later
// postings always have a row to move balances on.
func (s *Sureboda) CreateDelivery(ctx context.Context, businessID, riderID string, fee int64) (*model.Delivery, error) {
	ctx, span := tracer.Start(ctx, "CreateDelivery")
	defer span.End()

	if businessID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Business ID is required", nil)
	}
	if fee < 1 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Delivery fee must be at least 1", nil)
	}

	delivery := &model.Delivery{
		DeliveryID:    model.GenerateUUIDWithSuffix("dlv"),
		BusinessID:    businessID,
		RiderID:       riderID,
		Fee:           fee,
		Status:        model.DeliveryStatusRequested,
		PaymentStatus: model.DeliveryPaymentPending,
		CreatedAt:     time.Now(),
	}
	if err := s.datasource.CreateDelivery(ctx, delivery); err != nil {
		return nil, err
	}

	if _, err := s.datasource.GetOrCreateAccount(ctx, businessID); err != nil {
		logrus.Warnf("failed to prepare account for business %s: %v", businessID, err)
	}

	return delivery, nil
}

// GetDelivery retrieves a delivery by id.
func (s *Sureboda) GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error) {
	return s.datasource.GetDelivery(ctx, deliveryID)
}

// UpdateDeliveryStatus moves a delivery through its lifecycle and applies the
// ledger posting the new status calls for. A distributed lock serializes
// concurrent triggers for the same delivery; a trigger naming the current
// status is a recognized no-op. The transition and its posting are each
// guarded in the database, so a replay at any point lands nothing twice.
func (s *Sureboda) UpdateDeliveryStatus(ctx context.Context, deliveryID, toStatus, riderID string) (*model.Delivery, error) {
	ctx, span := tracer.Start(ctx, "UpdateDeliveryStatus")
	defer span.End()

	locker := redlock.NewLocker(s.redis, fmt.Sprintf("delivery:%s", deliveryID), model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, deliveryLockTimeout, deliveryLockWaitTimeout); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Delivery '%s' is being updated by another request", deliveryID), err)
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error(err)
		}
	}()

	delivery, err := s.datasource.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	if err := model.CanTransition(delivery.Status, toStatus); err != nil {
		if errors.Is(err, model.ErrSameStatus) {
			return delivery, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}

	if toStatus == model.DeliveryStatusAccepted && riderID != "" && delivery.RiderID == "" {
		if err := s.datasource.AssignDeliveryRider(ctx, deliveryID, riderID); err != nil {
			return nil, err
		}
		delivery.RiderID = riderID
	}

	fromStatus := delivery.Status
	paymentStatus := model.PaymentStatusFor(toStatus)
	if err := s.datasource.TransitionDelivery(ctx, deliveryID, fromStatus, toStatus, paymentStatus); err != nil {
		// A conflict means this exact transition was already recorded. The
		// posting below is still attempted, it has its own guard and covers a
		// crash between the transition commit and the posting.
		if !apierror.IsConflict(err) {
			return nil, err
		}
		logrus.Infof("transition %s -> %s already recorded for delivery %s", fromStatus, toStatus, deliveryID)
	}
	delivery.Status = toStatus
	delivery.PaymentStatus = paymentStatus

	if err := s.applyLedgerPosting(ctx, delivery, toStatus); err != nil {
		// The transition is committed; the posting must eventually follow.
		notification.NotifyError(err)
		if queueErr := s.queue.EnqueueDeliveryEvent(ctx, deliveryID, toStatus); queueErr != nil {
			notification.NotifyError(queueErr)
			return nil, err
		}
		logrus.Warnf("posting for delivery %s deferred to queue: %v", deliveryID, err)
	}

	switch toStatus {
	case model.DeliveryStatusDelivered:
		if err := SendWebhook(NewWebhook{Event: "delivery.completed", Payload: delivery}); err != nil {
			logrus.Error(err)
		}
	case model.DeliveryStatusCancelled:
		if err := SendWebhook(NewWebhook{Event: "delivery.cancelled", Payload: delivery}); err != nil {
			logrus.Error(err)
		}
	}

	return delivery, nil
}

// applyLedgerPosting runs the posting a status calls for. Statuses without a
// posting return nil; a posting that already applied is swallowed.
func (s *Sureboda) applyLedgerPosting(ctx context.Context, delivery *model.Delivery, toStatus string) error {
	var err error
	switch toStatus {
	case model.DeliveryStatusAccepted:
		err = s.datasource.ApplyDeliveryReservation(ctx, delivery)
	case model.DeliveryStatusDelivered:
		err = s.datasource.ApplyDeliveryCompletion(ctx, delivery)
	case model.DeliveryStatusCancelled:
		err = s.datasource.ApplyDeliveryCancellation(ctx, delivery)
	default:
		return nil
	}
	if err != nil && apierror.IsConflict(err) {
		logrus.Infof("posting for delivery %s at %s already applied", delivery.DeliveryID, toStatus)
		return nil
	}
	return err
}

// GetAccount retrieves an owner's account with its pending and wallet
// balances.
func (s *Sureboda) GetAccount(ctx context.Context, ownerID string) (*model.Account, error) {
	return s.datasource.GetAccount(ctx, ownerID)
}

// GetDeliveryTransactions lists the ledger lines a delivery has produced.
func (s *Sureboda) GetDeliveryTransactions(ctx context.Context, deliveryID string) ([]*model.Transaction, error) {
	return s.datasource.GetDeliveryTransactions(ctx, deliveryID)
}
