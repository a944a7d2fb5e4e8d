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
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/internal/request"
)

// authResponse is the OAuth credential exchange response. The gateway sends
// expires_in as a string.
type authResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// AccessToken returns a bearer token for the gateway, fetching a new one only
// when the cached token is absent or within the expiry margin. Transient
// network failures are retried with exponential backoff; a rejection from the
// gateway is not retried. No payment or payout request may proceed without a
// token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(tokenExpiryMargin).Before(c.tokenExpiry) {
		return c.token, nil
	}

	var auth authResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.conf.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Basic "+request.BasicAuth(c.conf.ConsumerKey, c.conf.ConsumerSecret))

		resp, err := request.CallWithTimeout(req, &auth, c.timeout())
		if err != nil {
			if resp == nil {
				// network failure, worth retrying
				return errors.Wrap(err, "credential exchange request failed")
			}
			return backoff.Permanent(errors.Wrap(err, "decoding credential exchange response failed"))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(errors.Errorf("credential exchange returned status %d", resp.StatusCode))
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrAuthFailed, "Failed to obtain gateway access token", err)
	}

	if auth.AccessToken == "" {
		return "", apierror.NewAPIError(apierror.ErrAuthFailed, "Gateway returned an empty access token", nil)
	}

	expiresIn, err := auth.ExpiresIn.Int64()
	if err != nil || expiresIn <= 0 {
		// 3599s is what the gateway declares today; fall back to it rather
		// than failing a successful exchange.
		expiresIn = 3599
	}

	c.token = auth.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn) * time.Second)
	logrus.Debugf("gateway token refreshed, valid until %s", c.tokenExpiry.Format(time.RFC3339))

	return c.token, nil
}
