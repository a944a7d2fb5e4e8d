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
package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	model2 "github.com/sureboda/sureboda/api/model"
	"github.com/sureboda/sureboda/gateway"

	"github.com/gin-gonic/gin"
)

func (a Api) InitiatePayment(c *gin.Context) {
	var newPayment model2.InitiatePayment
	if err := c.ShouldBindJSON(&newPayment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newPayment.ValidateInitiatePayment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.sureboda.InitiatePayment(c.Request.Context(), newPayment.PhoneNumber, newPayment.Amount, newPayment.Reference, newPayment.Description)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetPaymentStatus(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	status, err := a.sureboda.GetPaymentStatus(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout_request_id": id, "status": status})
}

// StkCallback receives the push outcome from the gateway. The gateway is
// always acknowledged, even when the payload is malformed or persistence
// fails; recovery runs through the retry queue, never through the gateway.
func (a Api) StkCallback(c *gin.Context) {
	var envelope gateway.StkCallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		logrus.Errorf("malformed stk callback: %v", err)
		ackCallback(c)
		return
	}

	if err := a.sureboda.HandleStkCallback(c.Request.Context(), &envelope); err != nil {
		logrus.Errorf("stk callback for %s not applied: %v", envelope.Body.StkCallback.CheckoutRequestID, err)
	}

	ackCallback(c)
}
