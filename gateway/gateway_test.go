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

package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/sureboda/sureboda/config"
	"github.com/sureboda/sureboda/internal/apierror"
)

const testBaseURL = "https://gateway.test"

func newTestClient() *Client {
	c := NewClient(config.MpesaConfig{
		Environment:     config.EnvironmentSandbox,
		BaseURL:         testBaseURL,
		ConsumerKey:     "consumer-key",
		ConsumerSecret:  "consumer-secret",
		ShortCode:       "174379",
		PassKey:         "pass-key",
		InitiatorName:   "initiator",
		SecurityCredential: "credential",
		CallbackBaseURL: "https://callbacks.test",
		TimeoutSec:      5,
	})
	c.now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	return c
}

func registerTokenResponder() {
	httpmock.RegisterResponder("GET", testBaseURL+"/oauth/v1/generate?grant_type=client_credentials",
		httpmock.NewStringResponder(200, `{"access_token": "test-token", "expires_in": "3599"}`))
}

func TestAccessTokenCachedUntilExpiry(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerTokenResponder()
	c := newTestClient()

	token, err := c.AccessToken(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "test-token", token)

	token, err = c.AccessToken(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "test-token", token)

	// the second call must be served from the cache
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestAccessTokenRefreshedNearExpiry(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerTokenResponder()
	c := newTestClient()

	_, err := c.AccessToken(context.Background())
	assert.NoError(t, err)

	// move the clock to inside the expiry margin
	c.now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 59, 45, 0, time.UTC)
	}

	_, err = c.AccessToken(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestAccessTokenRejected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testBaseURL+"/oauth/v1/generate?grant_type=client_credentials",
		httpmock.NewStringResponder(401, `{"errorCode": "401.002.01", "errorMessage": "Invalid credentials"}`))
	c := newTestClient()

	_, err := c.AccessToken(context.Background())
	assert.Error(t, err)
	var apiErr apierror.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.ErrAuthFailed, apiErr.Code)

	// a rejection must not be retried
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestStkPassword(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	password, timestamp := stkPassword("174379", "pass-key", ts)

	assert.Equal(t, "20240101120000", timestamp)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("174379pass-key20240101120000")), password)
}

func TestSTKPushSuccess(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerTokenResponder()
	var captured stkPushRequest
	httpmock.RegisterResponder("POST", testBaseURL+"/mpesa/stkpush/v1/processrequest",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
				return httpmock.NewStringResponse(400, ""), nil
			}
			return httpmock.NewStringResponse(200, `{
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResponseCode": "0",
				"ResponseDescription": "Success. Request accepted for processing",
				"CustomerMessage": "Success. Request accepted for processing"
			}`), nil
		})

	c := newTestClient()
	resp, err := c.STKPush(context.Background(), "254712345678", 150, "order-81", "Delivery fee")
	assert.NoError(t, err)
	assert.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", resp.MerchantRequestID)

	assert.Equal(t, "254712345678", captured.PhoneNumber)
	assert.Equal(t, "254712345678", captured.PartyA)
	assert.Equal(t, "174379", captured.PartyB)
	assert.Equal(t, int64(150), captured.Amount)
	assert.Equal(t, "CustomerPayBillOnline", captured.TransactionType)
	assert.Equal(t, "https://callbacks.test/payments/callback", captured.CallBackURL)
}

func TestSTKPushRejected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerTokenResponder()
	httpmock.RegisterResponder("POST", testBaseURL+"/mpesa/stkpush/v1/processrequest",
		httpmock.NewStringResponder(200, `{"ResponseCode": "1", "ResponseDescription": "Rejected"}`))

	c := newTestClient()
	_, err := c.STKPush(context.Background(), "254712345678", 150, "order-81", "Delivery fee")
	assert.Error(t, err)
	var apiErr apierror.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.ErrProvider, apiErr.Code)
}

func TestB2CPaymentSuccess(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerTokenResponder()
	var captured b2cRequest
	httpmock.RegisterResponder("POST", testBaseURL+"/mpesa/b2c/v1/paymentrequest",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
				return httpmock.NewStringResponse(400, ""), nil
			}
			return httpmock.NewStringResponse(200, `{
				"ConversationID": "AG_20191219_00005797af5d7d75f652",
				"OriginatorConversationID": "16740-34861180-1",
				"ResponseCode": "0",
				"ResponseDescription": "Accept the service request successfully."
			}`), nil
		})

	c := newTestClient()
	resp, err := c.B2CPayment(context.Background(), "254712345678", 500, "Rider settlement", "")
	assert.NoError(t, err)
	assert.Equal(t, "AG_20191219_00005797af5d7d75f652", resp.ConversationID)

	assert.Equal(t, "initiator", captured.InitiatorName)
	assert.Equal(t, "credential", captured.SecurityCredential)
	assert.Equal(t, "BusinessPayment", captured.CommandID)
	assert.Equal(t, "254712345678", captured.PartyB)
	assert.Equal(t, "https://callbacks.test/payouts/result", captured.ResultURL)
	assert.Equal(t, "https://callbacks.test/payouts/timeout", captured.QueueTimeOutURL)
}

func TestCallbackMetadataLookup(t *testing.T) {
	metadata := CallbackMetadata{Item: []MetadataItem{
		{Name: "Amount", Value: float64(150)},
		{Name: "MpesaReceiptNumber", Value: "NLJ7RT61SV"},
		{Name: "PhoneNumber", Value: float64(254712345678)},
	}}

	amount, err := metadata.Amount("Amount")
	assert.NoError(t, err)
	assert.Equal(t, int64(150), amount)

	receipt, err := metadata.String("MpesaReceiptNumber")
	assert.NoError(t, err)
	assert.Equal(t, "NLJ7RT61SV", receipt)

	phone, err := metadata.String("PhoneNumber")
	assert.NoError(t, err)
	assert.Equal(t, "254712345678", phone)

	_, err = metadata.String("TransactionDate")
	assert.Error(t, err)
	_, err = metadata.Amount("Balance")
	assert.Error(t, err)
}

func TestB2CResultParameterLookup(t *testing.T) {
	var envelope B2CResultEnvelope
	err := json.Unmarshal([]byte(`{
		"Result": {
			"ResultType": 0,
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"OriginatorConversationID": "16740-34861180-1",
			"ConversationID": "AG_20191219_00005797af5d7d75f652",
			"TransactionID": "NLJ41HAY6Q",
			"ResultParameters": {
				"ResultParameter": [
					{"Key": "TransactionAmount", "Value": 500},
					{"Key": "TransactionReceipt", "Value": "NLJ41HAY6Q"},
					{"Key": "ReceiverPartyPublicName", "Value": "254712345678 - John Doe"},
					{"Key": "TransactionCompletedDateTime", "Value": "19.12.2019 11:45:50"}
				]
			}
		}
	}`), &envelope)
	assert.NoError(t, err)

	amount, err := envelope.Result.Amount("TransactionAmount")
	assert.NoError(t, err)
	assert.Equal(t, int64(500), amount)

	receiver, err := envelope.Result.String("ReceiverPartyPublicName")
	assert.NoError(t, err)
	assert.Equal(t, "254712345678 - John Doe", receiver)

	_, err = envelope.Result.String("B2CUtilityAccountAvailableFunds")
	assert.Error(t, err)
}
