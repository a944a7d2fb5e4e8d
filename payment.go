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
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sureboda/sureboda/gateway"
	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/internal/notification"
	"github.com/sureboda/sureboda/model"
)

const paymentStatusCacheTTL = 24 * time.Hour

func paymentStatusCacheKey(checkoutRequestID string) string {
	return fmt.Sprintf("payment:status:%s", checkoutRequestID)
}

// InitiatePayment normalizes the payer's number, submits an STK push and
// records the resulting intent as pending. The intent is durably recorded
// before the call returns; the outcome arrives later on the callback.
func (s *Sureboda) InitiatePayment(ctx context.Context, phone string, amount int64, reference, description string) (*model.PaymentIntent, error) {
	ctx, span := tracer.Start(ctx, "InitiatePayment")
	defer span.End()

	normalized, err := model.NormalizePhone(phone)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Invalid phone number: %s", err.Error()), err)
	}
	if amount < 1 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Amount must be at least 1", nil)
	}

	pushResp, err := s.gateway.STKPush(ctx, normalized, amount, reference, description)
	if err != nil {
		return nil, err
	}

	intent := &model.PaymentIntent{
		CheckoutRequestID: pushResp.CheckoutRequestID,
		MerchantRequestID: pushResp.MerchantRequestID,
		Reference:         reference,
		PhoneNumber:       normalized,
		Amount:            amount,
		Status:            model.PaymentStatusPending,
		CreatedAt:         time.Now(),
	}
	if err := s.datasource.RecordPaymentIntent(ctx, intent); err != nil {
		notification.NotifyError(err)
		return nil, err
	}

	return intent, nil
}

// HandleStkCallback reconciles a push outcome against its pending intent. A
// success resolves to paid and credits the payer; a non-zero result code
// resolves to failed. Replayed callbacks find the intent already terminal and
// are swallowed. A callback that beats the initiator's insert, or one whose
// persistence fails, is queued for replay, since the gateway has already been
// told it was accepted and will not resend.
func (s *Sureboda) HandleStkCallback(ctx context.Context, envelope *gateway.StkCallbackEnvelope) error {
	ctx, span := tracer.Start(ctx, "HandleStkCallback")
	defer span.End()

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return apierror.NewAPIError(apierror.ErrBadRequest, "Callback is missing CheckoutRequestID", nil)
	}

	resolution := &model.PaymentResolution{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}

	raw, err := json.Marshal(envelope)
	if err == nil {
		_ = json.Unmarshal(raw, &resolution.RawCallback)
	}

	if cb.ResultCode == 0 {
		amount, err := cb.CallbackMetadata.Amount("Amount")
		if err != nil {
			return apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), err)
		}
		receipt, err := cb.CallbackMetadata.String("MpesaReceiptNumber")
		if err != nil {
			return apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), err)
		}
		payer, err := cb.CallbackMetadata.String("PhoneNumber")
		if err != nil {
			return apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), err)
		}
		resolution.Status = model.PaymentStatusPaid
		resolution.Amount = amount
		resolution.MpesaReceipt = receipt
		resolution.PhoneNumber = payer
	} else {
		resolution.Status = model.PaymentStatusFailed
	}

	if err := s.datasource.ResolvePaymentCallback(ctx, resolution); err != nil {
		if apierror.IsConflict(err) {
			logrus.Infof("duplicate callback for checkout request %s, already resolved", cb.CheckoutRequestID)
			return nil
		}
		if apierror.IsNotFound(err) {
			logrus.Infof("callback for checkout request %s arrived before its intent, queueing replay", cb.CheckoutRequestID)
		} else {
			notification.NotifyError(err)
		}
		if queueErr := s.queue.EnqueueCallbackRetry(ctx, CallbackKindStk, raw); queueErr != nil {
			notification.NotifyError(queueErr)
		}
		return err
	}

	s.cachePaymentStatus(ctx, cb.CheckoutRequestID, resolution.Status)

	event := "payment.failed"
	if resolution.Status == model.PaymentStatusPaid {
		event = "payment.paid"
	}
	if err := SendWebhook(NewWebhook{Event: event, Payload: resolution}); err != nil {
		logrus.Error(err)
	}

	return nil
}

// GetPaymentStatus reports the current status of an intent. Resolved statuses
// are served from cache when possible. An unknown checkout request id reads as
// pending, because the push may have been accepted by the gateway without the
// intent having landed yet.
func (s *Sureboda) GetPaymentStatus(ctx context.Context, checkoutRequestID string) (string, error) {
	ctx, span := tracer.Start(ctx, "GetPaymentStatus")
	defer span.End()

	if s.redis != nil {
		if status, err := s.redis.Get(ctx, paymentStatusCacheKey(checkoutRequestID)).Result(); err == nil && status != "" {
			return status, nil
		}
	}

	intent, err := s.datasource.GetPaymentIntent(ctx, checkoutRequestID)
	if err != nil {
		if apierror.IsNotFound(err) {
			return model.PaymentStatusPending, nil
		}
		return "", err
	}

	if intent.IsTerminal() {
		s.cachePaymentStatus(ctx, checkoutRequestID, intent.Status)
	}
	return intent.Status, nil
}

func (s *Sureboda) cachePaymentStatus(ctx context.Context, checkoutRequestID, status string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, paymentStatusCacheKey(checkoutRequestID), status, paymentStatusCacheTTL).Err(); err != nil {
		logrus.Warnf("failed to cache payment status for %s: %v", checkoutRequestID, err)
	}
}
