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

// Package gateway talks to the Daraja mobile-money API: OAuth credential
// exchange, STK push collections and B2C payouts. Results for both flows
// arrive later on webhooks; this package also owns the typed shapes of those
// callback payloads.
package gateway

import (
	"sync"
	"time"

	"github.com/sureboda/sureboda/config"
)

const (
	transactionTypePayBill = "CustomerPayBillOnline"
	commandIDBusinessPay   = "BusinessPayment"

	// tokenExpiryMargin refreshes the cached token slightly before the
	// gateway's declared expiry so an in-flight request never carries a token
	// that dies mid-call.
	tokenExpiryMargin = 30 * time.Second
)

// Client is the Daraja gateway client. One instance is shared by the payment
// and payout initiators; the cached access token lives here so a token
// round trip is not paid on every push.
type Client struct {
	conf config.MpesaConfig

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	// now is swapped in tests to control token expiry.
	now func() time.Time
}

// NewClient builds a gateway client from the mpesa section of the
// configuration.
func NewClient(conf config.MpesaConfig) *Client {
	return &Client{
		conf: conf,
		now:  time.Now,
	}
}

func (c *Client) timeout() time.Duration {
	return time.Duration(c.conf.TimeoutSec) * time.Second
}
