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
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/internal/request"
	"github.com/sureboda/sureboda/model"
)

// stkTimestampFormat is the YYYYMMDDHHmmss layout the gateway expects in the
// password digest.
const stkTimestampFormat = "20060102150405"

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous acceptance from the gateway. The actual
// payment outcome arrives later on the callback URL.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// stkPassword builds the time-stamped password digest from
// shortcode+passkey+timestamp.
func stkPassword(shortCode, passKey string, t time.Time) (password, timestamp string) {
	timestamp = t.Format(stkTimestampFormat)
	password = base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
	return password, timestamp
}

// STKPush submits a push-payment request prompting the payer's device. The
// phone number must already be normalized. The returned checkout request id
// is the correlation id the asynchronous callback will carry.
func (c *Client) STKPush(ctx context.Context, phone string, amount int64, reference, description string) (*STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	password, timestamp := stkPassword(c.conf.ShortCode, c.conf.PassKey, c.now())
	body := stkPushRequest{
		BusinessShortCode: c.conf.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionTypePayBill,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.conf.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.conf.CallbackBaseURL + "/payments/callback",
		AccountReference:  reference,
		TransactionDesc:   description,
	}

	payload, err := request.ToJsonReq(&body)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to encode push request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.conf.BaseURL+"/mpesa/stkpush/v1/processrequest", payload)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to build push request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var pushResp STKPushResponse
	resp, err := request.CallWithTimeout(req, &pushResp, c.timeout())
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Push request failed", errors.Wrap(err, "stk push"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := pushResp.ErrorMessage
		if detail == "" {
			detail = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return nil, apierror.NewAPIError(apierror.ErrProvider,
			fmt.Sprintf("Push request rejected: %s", detail), pushResp.ErrorCode)
	}

	if pushResp.ResponseCode != "0" {
		return nil, apierror.NewAPIError(apierror.ErrProvider,
			fmt.Sprintf("Push request rejected with code %s: %s", pushResp.ResponseCode, pushResp.ResponseDescription),
			pushResp)
	}

	return &pushResp, nil
}

// StkCallbackEnvelope is the webhook body delivered after the payer responds
// to the push prompt.
type StkCallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string           `json:"MerchantRequestID"`
	CheckoutRequestID string           `json:"CheckoutRequestID"`
	ResultCode        int              `json:"ResultCode"`
	ResultDesc        string           `json:"ResultDesc"`
	CallbackMetadata  CallbackMetadata `json:"CallbackMetadata"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// Value looks up a metadata item by name.
func (m CallbackMetadata) Value(name string) (interface{}, bool) {
	for _, item := range m.Item {
		if item.Name == name {
			return item.Value, true
		}
	}
	return nil, false
}

// String extracts a required string-typed metadata field, failing closed when
// the field is absent instead of defaulting to empty.
func (m CallbackMetadata) String(name string) (string, error) {
	v, ok := m.Value(name)
	if !ok {
		return "", fmt.Errorf("callback metadata is missing required field %q", name)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return fmt.Sprintf("%.0f", s), nil
	default:
		return fmt.Sprintf("%v", s), nil
	}
}

// Amount extracts a required amount field as whole shillings.
func (m CallbackMetadata) Amount(name string) (int64, error) {
	v, ok := m.Value(name)
	if !ok {
		return 0, fmt.Errorf("callback metadata is missing required field %q", name)
	}
	return model.AmountFromValue(v)
}
