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

	"github.com/sureboda/sureboda/config"
	"github.com/sureboda/sureboda/gateway"
	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/internal/notification"
	"github.com/sureboda/sureboda/model"
)

// b2cCompletedTimeLayout is the YYYYMMDDHHmmss layout of the
// TransactionCompletedDateTime result parameter.
const b2cCompletedTimeLayout = "20060102150405"

const maxRemarksLength = 100

// startOfDay returns midnight of t's calendar day in t's location. The daily
// payout ceiling counts from local midnight; truncating against the epoch
// would shift the window to UTC day boundaries.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// InitiatePayout submits a B2C transfer and records the resulting intent as
// pending. Amount bounds are enforced here and nowhere else: the per-transfer
// minimum, and the per-number daily ceiling counted over completed transfers.
func (s *Sureboda) InitiatePayout(ctx context.Context, phone string, amount int64, remarks, occasion string) (*model.PayoutIntent, error) {
	ctx, span := tracer.Start(ctx, "InitiatePayout")
	defer span.End()

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	normalized, err := model.NormalizePhone(phone)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Invalid phone number: %s", err.Error()), err)
	}

	if amount < conf.Payout.MinimumAmount {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest,
			fmt.Sprintf("Payout amount must be at least %d", conf.Payout.MinimumAmount), nil)
	}
	if amount > conf.Payout.DailyMaximum {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest,
			fmt.Sprintf("Payout amount exceeds the daily maximum of %d", conf.Payout.DailyMaximum), nil)
	}

	paidToday, err := s.datasource.SumCompletedPayouts(ctx, normalized, startOfDay(time.Now()))
	if err != nil {
		return nil, err
	}
	if paidToday+amount > conf.Payout.DailyMaximum {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest,
			fmt.Sprintf("Payout would exceed the daily maximum of %d for this number", conf.Payout.DailyMaximum), nil)
	}

	if remarks == "" {
		remarks = "Payout"
	}
	if len(remarks) > maxRemarksLength {
		remarks = remarks[:maxRemarksLength]
	}

	b2cResp, err := s.gateway.B2CPayment(ctx, normalized, amount, remarks, occasion)
	if err != nil {
		return nil, err
	}

	intent := &model.PayoutIntent{
		ConversationID:           b2cResp.ConversationID,
		OriginatorConversationID: b2cResp.OriginatorConversationID,
		PhoneNumber:              normalized,
		Amount:                   amount,
		Remarks:                  remarks,
		Status:                   model.PayoutStatusPending,
		CreatedAt:                time.Now(),
	}
	if err := s.datasource.RecordPayoutIntent(ctx, intent); err != nil {
		notification.NotifyError(err)
		return nil, err
	}

	return intent, nil
}

// HandleB2CResult reconciles a transfer outcome against its pending payout. A
// zero result code resolves to completed with the receipt parameters; anything
// else resolves to failed. Replayed results are swallowed. A result that beats
// the initiator's insert, or one whose persistence fails, is queued for replay
// since the webhook was already acknowledged.
func (s *Sureboda) HandleB2CResult(ctx context.Context, envelope *gateway.B2CResultEnvelope) error {
	ctx, span := tracer.Start(ctx, "HandleB2CResult")
	defer span.End()

	result := envelope.Result
	if result.ConversationID == "" {
		return apierror.NewAPIError(apierror.ErrBadRequest, "Result is missing ConversationID", nil)
	}

	resolution := &model.PayoutResolution{
		ConversationID: result.ConversationID,
		ResultCode:     result.ResultCode,
		ResultDesc:     result.ResultDesc,
	}

	if result.ResultCode == 0 {
		receiver, err := result.String("ReceiverPartyPublicName")
		if err != nil {
			return apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), err)
		}
		resolution.Status = model.PayoutStatusCompleted
		resolution.TransactionReceipt = result.TransactionID
		resolution.ReceiverName = receiver

		if completed, err := result.String("TransactionCompletedDateTime"); err == nil {
			if t, parseErr := time.Parse(b2cCompletedTimeLayout, completed); parseErr == nil {
				resolution.CompletedAt = t
			}
		}
		if resolution.CompletedAt.IsZero() {
			resolution.CompletedAt = time.Now()
		}
	} else {
		resolution.Status = model.PayoutStatusFailed
	}

	if err := s.datasource.ResolvePayoutResult(ctx, resolution); err != nil {
		if apierror.IsConflict(err) {
			logrus.Infof("duplicate result for conversation %s, already resolved", result.ConversationID)
			return nil
		}
		if apierror.IsNotFound(err) {
			logrus.Infof("result for conversation %s arrived before its intent, queueing replay", result.ConversationID)
		} else {
			notification.NotifyError(err)
		}
		if raw, marshalErr := json.Marshal(envelope); marshalErr == nil {
			if queueErr := s.queue.EnqueueCallbackRetry(ctx, CallbackKindB2C, raw); queueErr != nil {
				notification.NotifyError(queueErr)
			}
		}
		return err
	}

	event := "payout.failed"
	if resolution.Status == model.PayoutStatusCompleted {
		event = "payout.completed"
	}
	if err := SendWebhook(NewWebhook{Event: event, Payload: resolution}); err != nil {
		logrus.Error(err)
	}

	return nil
}

// HandlePayoutTimeout marks a payout as failed after the gateway reports the
// request expired in its queue. A payout that already resolved is left alone.
func (s *Sureboda) HandlePayoutTimeout(ctx context.Context, conversationID string) error {
	ctx, span := tracer.Start(ctx, "HandlePayoutTimeout")
	defer span.End()

	if conversationID == "" {
		return apierror.NewAPIError(apierror.ErrBadRequest, "Timeout notification is missing ConversationID", nil)
	}

	resolution := &model.PayoutResolution{
		ConversationID: conversationID,
		Status:         model.PayoutStatusFailed,
		ResultCode:     1,
		ResultDesc:     "Request timed out in the gateway queue",
	}

	if err := s.datasource.ResolvePayoutResult(ctx, resolution); err != nil {
		if apierror.IsConflict(err) {
			logrus.Infof("timeout for conversation %s ignored, already resolved", conversationID)
			return nil
		}
		return err
	}

	if err := SendWebhook(NewWebhook{Event: "payout.failed", Payload: resolution}); err != nil {
		logrus.Error(err)
	}

	return nil
}

// GetPayoutStatus reports the current status of a payout intent.
func (s *Sureboda) GetPayoutStatus(ctx context.Context, conversationID string) (string, error) {
	intent, err := s.datasource.GetPayoutIntent(ctx, conversationID)
	if err != nil {
		if apierror.IsNotFound(err) {
			return model.PayoutStatusPending, nil
		}
		return "", err
	}
	return intent.Status, nil
}
