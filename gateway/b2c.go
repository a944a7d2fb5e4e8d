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
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/internal/request"
	"github.com/sureboda/sureboda/model"
)

type b2cRequest struct {
	InitiatorName      string `json:"InitiatorName"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	Amount             int64  `json:"Amount"`
	PartyA             string `json:"PartyA"`
	PartyB             string `json:"PartyB"`
	Remarks            string `json:"Remarks"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	ResultURL          string `json:"ResultURL"`
	Occasion           string `json:"Occasion"`
}

// B2CResponse is the synchronous acceptance of an outbound transfer. The
// transfer outcome arrives later on the result URL.
type B2CResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
	ErrorCode                string `json:"errorCode"`
	ErrorMessage             string `json:"errorMessage"`
}

// B2CPayment submits a business→customer transfer. It signs with the
// initiator credential pair, which is distinct from the collection
// credentials; the two must never be mixed.
func (c *Client) B2CPayment(ctx context.Context, phone string, amount int64, remarks, occasion string) (*B2CResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := b2cRequest{
		InitiatorName:      c.conf.InitiatorName,
		SecurityCredential: c.conf.SecurityCredential,
		CommandID:          commandIDBusinessPay,
		Amount:             amount,
		PartyA:             c.conf.ShortCode,
		PartyB:             phone,
		Remarks:            remarks,
		QueueTimeOutURL:    c.conf.CallbackBaseURL + "/payouts/timeout",
		ResultURL:          c.conf.CallbackBaseURL + "/payouts/result",
		Occasion:           occasion,
	}

	payload, err := request.ToJsonReq(&body)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to encode payout request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.conf.BaseURL+"/mpesa/b2c/v1/paymentrequest", payload)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to build payout request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var b2cResp B2CResponse
	resp, err := request.CallWithTimeout(req, &b2cResp, c.timeout())
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Payout request failed", errors.Wrap(err, "b2c payment"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := b2cResp.ErrorMessage
		if detail == "" {
			detail = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return nil, apierror.NewAPIError(apierror.ErrProvider,
			fmt.Sprintf("Payout request rejected: %s", detail), b2cResp.ErrorCode)
	}

	if b2cResp.ResponseCode != "0" {
		return nil, apierror.NewAPIError(apierror.ErrProvider,
			fmt.Sprintf("Payout request rejected with code %s: %s", b2cResp.ResponseCode, b2cResp.ResponseDescription),
			b2cResp)
	}

	return &b2cResp, nil
}

// B2CResultEnvelope is the webhook body carrying the outcome of an outbound
// transfer.
type B2CResultEnvelope struct {
	Result B2CResult `json:"Result"`
}

type B2CResult struct {
	ResultType               int    `json:"ResultType"`
	ResultCode               int    `json:"ResultCode"`
	ResultDesc               string `json:"ResultDesc"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ConversationID           string `json:"ConversationID"`
	TransactionID            string `json:"TransactionID"`
	ResultParameters         struct {
		ResultParameter []ResultParameter `json:"ResultParameter"`
	} `json:"ResultParameters"`
}

type ResultParameter struct {
	Key   string      `json:"Key"`
	Value interface{} `json:"Value"`
}

// Parameter looks up a result parameter by key.
func (r B2CResult) Parameter(key string) (interface{}, bool) {
	for _, p := range r.ResultParameters.ResultParameter {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// String extracts a required string-typed result parameter, failing closed
// when absent.
func (r B2CResult) String(key string) (string, error) {
	v, ok := r.Parameter(key)
	if !ok {
		return "", fmt.Errorf("payout result is missing required parameter %q", key)
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

// Amount extracts a required amount parameter as whole shillings.
func (r B2CResult) Amount(key string) (int64, error) {
	v, ok := r.Parameter(key)
	if !ok {
		return 0, fmt.Errorf("payout result is missing required parameter %q", key)
	}
	return model.AmountFromValue(v)
}
