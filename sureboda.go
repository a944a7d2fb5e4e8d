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
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/redis/go-redis/v9"

	"github.com/sureboda/sureboda/config"
	"github.com/sureboda/sureboda/database"
	"github.com/sureboda/sureboda/gateway"
	redis_db "github.com/sureboda/sureboda/internal/redis-db"
)

var tracer = otel.Tracer("sureboda")

// Sureboda is the main struct for the payment service. It wires the Daraja
// gateway client, the datasource, the Redis client used for locking, and the
// task queue into one facade the API and workers share.
type Sureboda struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	gateway    *gateway.Client
}

// NewSureboda initializes a new instance of Sureboda with the provided
// datasource. It fetches the configuration and initializes the Redis client,
// the task queue, and the gateway client.
func NewSureboda(db database.IDataSource) (*Sureboda, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	newGateway := gateway.NewClient(configuration.Mpesa)

	newSureboda := &Sureboda{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		gateway:    newGateway,
	}
	return newSureboda, nil
}
