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
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sureboda/sureboda/database/mocks"
	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/model"
)

func deliveryEventTask(t *testing.T, deliveryID, toStatus string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(DeliveryEventPayload{DeliveryID: deliveryID, ToStatus: toStatus})
	assert.NoError(t, err)
	return asynq.NewTask("delivery_event", payload)
}

func TestProcessDeliveryEvent_AppliesPosting(t *testing.T) {
	mockRepo := new(mocks.MockDataSource)
	s, _ := newTestSureboda(t, mockRepo)

	mockRepo.On("GetDelivery", mock.Anything, "dlv_123").Return(mockDelivery(model.DeliveryStatusDelivered, "rider_1"), nil)
	mockRepo.On("ApplyDeliveryCompletion", mock.Anything, mock.Anything).Return(nil)

	err := s.ProcessDeliveryEvent(context.Background(), deliveryEventTask(t, "dlv_123", model.DeliveryStatusDelivered))
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProcessDeliveryEvent_AlreadyPostedIsNoOp(t *testing.T) {
	mockRepo := new(mocks.MockDataSource)
	s, _ := newTestSureboda(t, mockRepo)

	mockRepo.On("GetDelivery", mock.Anything, "dlv_123").Return(mockDelivery(model.DeliveryStatusDelivered, "rider_1"), nil)
	mockRepo.On("ApplyDeliveryCompletion", mock.Anything, mock.Anything).
		Return(apierror.NewAPIError(apierror.ErrConflict, "already posted", nil))

	err := s.ProcessDeliveryEvent(context.Background(), deliveryEventTask(t, "dlv_123", model.DeliveryStatusDelivered))
	assert.NoError(t, err)
}

func TestProcessDeliveryEvent_MissingDeliveryDropsTask(t *testing.T) {
	mockRepo := new(mocks.MockDataSource)
	s, _ := newTestSureboda(t, mockRepo)

	mockRepo.On("GetDelivery", mock.Anything, "dlv_gone").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "not found", nil))

	err := s.ProcessDeliveryEvent(context.Background(), deliveryEventTask(t, "dlv_gone", model.DeliveryStatusDelivered))
	assert.NoError(t, err)
}

func TestProcessDeliveryEvent_PostingFailureRetries(t *testing.T) {
	mockRepo := new(mocks.MockDataSource)
	s, _ := newTestSureboda(t, mockRepo)

	mockRepo.On("GetDelivery", mock.Anything, "dlv_123").Return(mockDelivery(model.DeliveryStatusDelivered, "rider_1"), nil)
	mockRepo.On("ApplyDeliveryCompletion", mock.Anything, mock.Anything).
		Return(apierror.NewAPIError(apierror.ErrInternalServer, "db down", nil))

	err := s.ProcessDeliveryEvent(context.Background(), deliveryEventTask(t, "dlv_123", model.DeliveryStatusDelivered))
	assert.Error(t, err)
}

func TestProcessCallbackRetry_ReplaysStkCallback(t *testing.T) {
	mockRepo := new(mocks.MockDataSource)
	s, _ := newTestSureboda(t, mockRepo)

	raw, err := json.Marshal(paidStkEnvelope("ws_CO_191220191020363925"))
	assert.NoError(t, err)
	payload, err := json.Marshal(CallbackRetryPayload{Kind: CallbackKindStk, Payload: raw})
	assert.NoError(t, err)

	mockRepo.On("ResolvePaymentCallback", mock.Anything, mock.MatchedBy(func(r *model.PaymentResolution) bool {
		return r.CheckoutRequestID == "ws_CO_191220191020363925" && r.Status == model.PaymentStatusPaid
	})).Return(nil)

	err = s.ProcessCallbackRetry(context.Background(), asynq.NewTask("callback_retry", payload))
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProcessCallbackRetry_ReplaysB2CResult(t *testing.T) {
	mockRepo := new(mocks.MockDataSource)
	s, _ := newTestSureboda(t, mockRepo)

	raw, err := json.Marshal(completedB2CEnvelope("AG_1"))
	assert.NoError(t, err)
	payload, err := json.Marshal(CallbackRetryPayload{Kind: CallbackKindB2C, Payload: raw})
	assert.NoError(t, err)

	mockRepo.On("ResolvePayoutResult", mock.Anything, mock.MatchedBy(func(r *model.PayoutResolution) bool {
		return r.ConversationID == "AG_1" && r.Status == model.PayoutStatusCompleted
	})).Return(nil)

	err = s.ProcessCallbackRetry(context.Background(), asynq.NewTask("callback_retry", payload))
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProcessCallbackRetry_UnknownKindDropped(t *testing.T) {
	mockRepo := new(mocks.MockDataSource)
	s, _ := newTestSureboda(t, mockRepo)

	payload, err := json.Marshal(CallbackRetryPayload{Kind: "carrier-pigeon", Payload: []byte(`{}`)})
	assert.NoError(t, err)

	err = s.ProcessCallbackRetry(context.Background(), asynq.NewTask("callback_retry", payload))
	assert.NoError(t, err)
}
