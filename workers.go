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

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/sureboda/sureboda/gateway"
	"github.com/sureboda/sureboda/internal/apierror"
)

// ProcessDeliveryEvent re-runs the ledger posting for a transition whose
// posting did not land when the transition committed. The posting guards make
// a replay of an already-applied posting a no-op, so failing and retrying here
// is always safe.
func (s *Sureboda) ProcessDeliveryEvent(ctx context.Context, task *asynq.Task) error {
	var payload DeliveryEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("error unmarshaling delivery event payload: %v", err)
		return err
	}

	delivery, err := s.datasource.GetDelivery(ctx, payload.DeliveryID)
	if err != nil {
		if apierror.IsNotFound(err) {
			logrus.Warnf("delivery %s no longer exists, dropping posting retry", payload.DeliveryID)
			return nil
		}
		return err
	}

	if err := s.applyLedgerPosting(ctx, delivery, payload.ToStatus); err != nil {
		return fmt.Errorf("posting retry for delivery %s at %s: %w", payload.DeliveryID, payload.ToStatus, err)
	}

	logrus.Infof("posting for delivery %s at %s applied from queue", payload.DeliveryID, payload.ToStatus)
	return nil
}

// ProcessCallbackRetry replays a gateway callback whose persistence failed
// after the gateway was already acknowledged. The resolution paths are
// idempotent, so the task can run any number of times.
func (s *Sureboda) ProcessCallbackRetry(ctx context.Context, task *asynq.Task) error {
	var payload CallbackRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("error unmarshaling callback retry payload: %v", err)
		return err
	}

	switch payload.Kind {
	case CallbackKindStk:
		var envelope gateway.StkCallbackEnvelope
		if err := json.Unmarshal(payload.Payload, &envelope); err != nil {
			logrus.Errorf("error unmarshaling stk callback for retry: %v", err)
			return err
		}
		return s.HandleStkCallback(ctx, &envelope)
	case CallbackKindB2C:
		var envelope gateway.B2CResultEnvelope
		if err := json.Unmarshal(payload.Payload, &envelope); err != nil {
			logrus.Errorf("error unmarshaling b2c result for retry: %v", err)
			return err
		}
		return s.HandleB2CResult(ctx, &envelope)
	default:
		logrus.Errorf("unknown callback retry kind %q, dropping task", payload.Kind)
		return nil
	}
}
