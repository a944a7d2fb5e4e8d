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

func (a Api) InitiatePayout(c *gin.Context) {
	var newPayout model2.InitiatePayout
	if err := c.ShouldBindJSON(&newPayout); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newPayout.ValidateInitiatePayout(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.sureboda.InitiatePayout(c.Request.Context(), newPayout.PhoneNumber, newPayout.Amount, newPayout.Remarks, newPayout.Occasion)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetPayoutStatus(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	status, err := a.sureboda.GetPayoutStatus(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "status": status})
}

// B2CResult receives the transfer outcome from the gateway. Always
// acknowledged, same contract as the payment callback.
func (a Api) B2CResult(c *gin.Context) {
	var envelope gateway.B2CResultEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		logrus.Errorf("malformed b2c result: %v", err)
		ackCallback(c)
		return
	}

	if err := a.sureboda.HandleB2CResult(c.Request.Context(), &envelope); err != nil {
		logrus.Errorf("b2c result for %s not applied: %v", envelope.Result.ConversationID, err)
	}

	ackCallback(c)
}

// B2CTimeout receives the gateway's notice that a transfer expired in its
// queue before processing.
func (a Api) B2CTimeout(c *gin.Context) {
	var envelope gateway.B2CResultEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		logrus.Errorf("malformed b2c timeout notification: %v", err)
		ackCallback(c)
		return
	}

	if err := a.sureboda.HandlePayoutTimeout(c.Request.Context(), envelope.Result.ConversationID); err != nil {
		logrus.Errorf("b2c timeout for %s not applied: %v", envelope.Result.ConversationID, err)
	}

	ackCallback(c)
}
