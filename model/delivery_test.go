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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardChain(t *testing.T) {
	assert.NoError(t, CanTransition(DeliveryStatusRequested, DeliveryStatusAccepted))
	assert.NoError(t, CanTransition(DeliveryStatusAccepted, DeliveryStatusPickedUp))
	assert.NoError(t, CanTransition(DeliveryStatusPickedUp, DeliveryStatusDelivered))
}

func TestCanTransitionNoSkipping(t *testing.T) {
	assert.Error(t, CanTransition(DeliveryStatusRequested, DeliveryStatusPickedUp))
	assert.Error(t, CanTransition(DeliveryStatusRequested, DeliveryStatusDelivered))
	assert.Error(t, CanTransition(DeliveryStatusAccepted, DeliveryStatusDelivered))
}

func TestCanTransitionNoBackwards(t *testing.T) {
	assert.Error(t, CanTransition(DeliveryStatusAccepted, DeliveryStatusRequested))
	assert.Error(t, CanTransition(DeliveryStatusPickedUp, DeliveryStatusAccepted))
}

func TestCanTransitionCancellation(t *testing.T) {
	assert.NoError(t, CanTransition(DeliveryStatusRequested, DeliveryStatusCancelled))
	assert.NoError(t, CanTransition(DeliveryStatusAccepted, DeliveryStatusCancelled))
	assert.NoError(t, CanTransition(DeliveryStatusPickedUp, DeliveryStatusCancelled))
}

func TestCanTransitionTerminalStates(t *testing.T) {
	assert.Error(t, CanTransition(DeliveryStatusDelivered, DeliveryStatusCancelled))
	assert.Error(t, CanTransition(DeliveryStatusCancelled, DeliveryStatusAccepted))
	assert.Error(t, CanTransition(DeliveryStatusCancelled, DeliveryStatusCancelled))
}

func TestCanTransitionSameStatus(t *testing.T) {
	err := CanTransition(DeliveryStatusAccepted, DeliveryStatusAccepted)
	assert.ErrorIs(t, err, ErrSameStatus)
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	assert.Error(t, CanTransition("in_flight", DeliveryStatusAccepted))
	assert.Error(t, CanTransition(DeliveryStatusRequested, "done"))
}

func TestPaymentStatusFor(t *testing.T) {
	assert.Equal(t, DeliveryPaymentPending, PaymentStatusFor(DeliveryStatusRequested))
	assert.Equal(t, DeliveryPaymentPending, PaymentStatusFor(DeliveryStatusAccepted))
	assert.Equal(t, DeliveryPaymentInTransit, PaymentStatusFor(DeliveryStatusPickedUp))
	assert.Equal(t, DeliveryPaymentCompleted, PaymentStatusFor(DeliveryStatusDelivered))
	assert.Equal(t, DeliveryPaymentCancelled, PaymentStatusFor(DeliveryStatusCancelled))
}

func TestIsTerminalDeliveryStatus(t *testing.T) {
	assert.True(t, IsTerminalDeliveryStatus(DeliveryStatusDelivered))
	assert.True(t, IsTerminalDeliveryStatus(DeliveryStatusCancelled))
	assert.False(t, IsTerminalDeliveryStatus(DeliveryStatusRequested))
	assert.False(t, IsTerminalDeliveryStatus(DeliveryStatusAccepted))
	assert.False(t, IsTerminalDeliveryStatus(DeliveryStatusPickedUp))
}
