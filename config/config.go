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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"

	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"SUREBODA_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"SUREBODA_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"SUREBODA_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"SUREBODA_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"SUREBODA_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"SUREBODA_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"SUREBODA_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"SUREBODA_REDIS_DNS"`
}

// MpesaConfig holds the Daraja gateway credentials. The STK push (collection)
// credentials and the B2C (payout) credentials are distinct pairs and must not
// be mixed; the payout flow signs with InitiatorName/SecurityCredential.
// None of these carry compiled-in defaults. They come from the config file or
// the environment only.
type MpesaConfig struct {
	Environment        string `json:"environment" envconfig:"SUREBODA_MPESA_ENVIRONMENT"`
	BaseURL            string `json:"base_url" envconfig:"SUREBODA_MPESA_BASE_URL"`
	ConsumerKey        string `json:"consumer_key" envconfig:"SUREBODA_MPESA_CONSUMER_KEY"`
	ConsumerSecret     string `json:"consumer_secret" envconfig:"SUREBODA_MPESA_CONSUMER_SECRET"`
	ShortCode          string `json:"short_code" envconfig:"SUREBODA_MPESA_SHORT_CODE"`
	PassKey            string `json:"pass_key" envconfig:"SUREBODA_MPESA_PASS_KEY"`
	InitiatorName      string `json:"initiator_name" envconfig:"SUREBODA_MPESA_INITIATOR_NAME"`
	SecurityCredential string `json:"security_credential" envconfig:"SUREBODA_MPESA_SECURITY_CREDENTIAL"`
	CallbackBaseURL    string `json:"callback_base_url" envconfig:"SUREBODA_MPESA_CALLBACK_BASE_URL"`
	TimeoutSec         int    `json:"timeout_sec" envconfig:"SUREBODA_MPESA_TIMEOUT_SEC"`
}

// PayoutConfig bounds outbound B2C transfers. The bounds are enforced once,
// in the payout service, not per entry point.
type PayoutConfig struct {
	MinimumAmount int64 `json:"minimum_amount" envconfig:"SUREBODA_PAYOUT_MINIMUM_AMOUNT"`
	DailyMaximum  int64 `json:"daily_maximum" envconfig:"SUREBODA_PAYOUT_DAILY_MAXIMUM"`
}

type QueueConfig struct {
	DeliveryEventQueue string `json:"delivery_event_queue" envconfig:"SUREBODA_QUEUE_DELIVERY_EVENT"`
	CallbackRetryQueue string `json:"callback_retry_queue" envconfig:"SUREBODA_QUEUE_CALLBACK_RETRY"`
	WebhookQueue       string `json:"webhook_queue" envconfig:"SUREBODA_QUEUE_WEBHOOK"`
	MaxRetryAttempts   int    `json:"max_retry_attempts" envconfig:"SUREBODA_QUEUE_MAX_RETRY_ATTEMPTS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"SUREBODA_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"SUREBODA_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"SUREBODA_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"SUREBODA_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Mpesa        MpesaConfig      `json:"mpesa"`
	Payout       PayoutConfig     `json:"payout"`
	Queue        QueueConfig      `json:"queue"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("sureboda", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called sureboda.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Sureboda Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	// The environment flag alone decides sandbox vs production. There is no
	// code path that forces production.
	if cnf.Mpesa.Environment == "" {
		cnf.Mpesa.Environment = EnvironmentSandbox
		log.Println("Warning: Mpesa environment not specified. Defaulting to sandbox.")
	}
	if cnf.Mpesa.Environment != EnvironmentSandbox && cnf.Mpesa.Environment != EnvironmentProduction {
		return errors.New("mpesa environment must be either sandbox or production")
	}
	if cnf.Mpesa.BaseURL == "" {
		if cnf.Mpesa.Environment == EnvironmentProduction {
			cnf.Mpesa.BaseURL = productionBaseURL
		} else {
			cnf.Mpesa.BaseURL = sandboxBaseURL
		}
	}
	if cnf.Mpesa.TimeoutSec == 0 {
		cnf.Mpesa.TimeoutSec = 30
	}

	if cnf.Payout.MinimumAmount == 0 {
		cnf.Payout.MinimumAmount = 10
	}
	if cnf.Payout.DailyMaximum == 0 {
		cnf.Payout.DailyMaximum = 150000
	}

	if cnf.Queue.DeliveryEventQueue == "" {
		cnf.Queue.DeliveryEventQueue = "delivery_event"
	}
	if cnf.Queue.CallbackRetryQueue == "" {
		cnf.Queue.CallbackRetryQueue = "callback_retry"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "webhook_queue"
	}
	if cnf.Queue.MaxRetryAttempts == 0 {
		cnf.Queue.MaxRetryAttempts = 5
	}

	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 600
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
