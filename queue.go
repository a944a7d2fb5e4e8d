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
	"log"

	"github.com/hibiken/asynq"

	"github.com/sureboda/sureboda/config"
	redis_db "github.com/sureboda/sureboda/internal/redis-db"
)

// Queue wraps the asynq client used to push delivery event retries, callback
// retries and webhook notifications.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// DeliveryEventPayload is the task body for re-running a ledger posting after
// a transition committed but its posting failed.
type DeliveryEventPayload struct {
	DeliveryID string `json:"delivery_id"`
	ToStatus   string `json:"to_status"`
}

// CallbackRetryPayload is the task body for replaying a gateway callback whose
// persistence failed after the callback was already acknowledged.
type CallbackRetryPayload struct {
	Kind    string          `json:"kind"` // "stk" or "b2c"
	Payload json.RawMessage `json:"payload"`
}

const (
	CallbackKindStk = "stk"
	CallbackKindB2C = "b2c"
)

// redisClientOption builds the asynq Redis connection option from the
// configured Redis DNS.
func redisClientOption(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}, nil
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	queueOptions, err := redisClientOption(conf)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueDeliveryEvent queues a posting retry for one delivery transition. The
// task id carries the delivery and target status, so a transition that is
// already queued is not queued twice.
func (q *Queue) EnqueueDeliveryEvent(ctx context.Context, deliveryID, toStatus string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(DeliveryEventPayload{DeliveryID: deliveryID, ToStatus: toStatus})
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("%s:%s", deliveryID, toStatus)),
		asynq.Queue(cfg.Queue.DeliveryEventQueue),
		asynq.MaxRetry(cfg.Queue.MaxRetryAttempts),
	}
	task := asynq.NewTask(cfg.Queue.DeliveryEventQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued delivery event: %s -> %s", deliveryID, toStatus)
	return nil
}

// EnqueueCallbackRetry queues a gateway callback for replay. Callbacks are
// acknowledged before persistence is certain; this is the recovery path when
// persistence fails.
func (q *Queue) EnqueueCallbackRetry(ctx context.Context, kind string, raw []byte) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(CallbackRetryPayload{Kind: kind, Payload: raw})
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.Queue(cfg.Queue.CallbackRetryQueue),
		asynq.MaxRetry(cfg.Queue.MaxRetryAttempts),
	}
	task := asynq.NewTask(cfg.Queue.CallbackRetryQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued %s callback retry", kind)
	return nil
}
