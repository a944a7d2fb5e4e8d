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
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/sureboda/sureboda/config"
	"github.com/sureboda/sureboda/database"
	"github.com/sureboda/sureboda/gateway"
	redis_db "github.com/sureboda/sureboda/internal/redis-db"
)

// newTestSureboda wires a service instance against a mock datasource, a
// miniredis instance and the mock config store.
func newTestSureboda(t *testing.T, ds database.IDataSource) (*Sureboda, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	t.Cleanup(mr.Close)

	mockConfig := &config.Configuration{
		Redis: config.RedisConfig{
			Dns: mr.Addr(),
		},
		Mpesa: config.MpesaConfig{
			Environment:        config.EnvironmentSandbox,
			BaseURL:            "https://gateway.test",
			ConsumerKey:        "consumer-key",
			ConsumerSecret:     "consumer-secret",
			ShortCode:          "174379",
			PassKey:            "pass-key",
			InitiatorName:      "initiator",
			SecurityCredential: "credential",
			CallbackBaseURL:    "https://callbacks.test",
			TimeoutSec:         5,
		},
		Payout: config.PayoutConfig{
			MinimumAmount: 10,
			DailyMaximum:  150000,
		},
		Queue: config.QueueConfig{
			DeliveryEventQueue: "delivery_event",
			CallbackRetryQueue: "callback_retry",
			WebhookQueue:       "webhook",
			MaxRetryAttempts:   3,
		},
	}
	config.MockConfig(mockConfig)

	redisClient, err := redis_db.NewRedisClient([]string{mr.Addr()})
	if err != nil {
		t.Fatalf("an error '%s' occurred when connecting to miniredis", err)
	}

	s := &Sureboda{
		queue:      NewQueue(mockConfig),
		redis:      redisClient.Client(),
		datasource: ds,
		gateway:    gateway.NewClient(mockConfig.Mpesa),
	}
	return s, mr
}
