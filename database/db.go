package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/sureboda/sureboda/internal/cache"

	"github.com/sureboda/sureboda/config"

	_ "github.com/lib/pq"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and
// initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		newCache, errCache := cache.NewCache()
		if errCache != nil {
			log.Printf("cache unavailable, reads go straight to the database: %v", errCache)
		}
		instance = &Datasource{Conn: con, Cache: newCache}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = CreateSchema(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CreateSchema bootstraps all tables. It is safe to call repeatedly.
func CreateSchema(db *sql.DB) error {
	if err := createPaymentIntentTable(db); err != nil {
		return err
	}
	if err := createPayoutIntentTable(db); err != nil {
		return err
	}
	if err := createAccountTable(db); err != nil {
		return err
	}
	if err := createDeliveryTable(db); err != nil {
		return err
	}
	if err := createTransactionTable(db); err != nil {
		return err
	}
	if err := createDeliveryEventTable(db); err != nil {
		return err
	}
	return nil
}

// createPaymentIntentTable creates a PostgreSQL table for the PaymentIntent
// struct. The checkout request id is the correlation key the callback carries.
func createPaymentIntentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payment_intents (
			id SERIAL PRIMARY KEY,
			checkout_request_id TEXT NOT NULL UNIQUE,
			merchant_request_id TEXT,
			reference TEXT,
			phone_number TEXT NOT NULL,
			amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			mpesa_receipt TEXT,
			result_code INT,
			result_desc TEXT,
			raw_callback JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createPayoutIntentTable creates a PostgreSQL table for the PayoutIntent
// struct.
func createPayoutIntentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payout_intents (
			id SERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL UNIQUE,
			originator_conversation_id TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			amount BIGINT NOT NULL,
			remarks TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			transaction_receipt TEXT,
			receiver_name TEXT,
			result_code INT,
			result_desc TEXT,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createAccountTable creates a PostgreSQL table for the Account struct.
func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL UNIQUE,
			pending_balance BIGINT NOT NULL DEFAULT 0,
			wallet_balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createDeliveryTable creates a PostgreSQL table for the Delivery struct.
func createDeliveryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id SERIAL PRIMARY KEY,
			delivery_id TEXT NOT NULL UNIQUE,
			business_id TEXT NOT NULL,
			rider_id TEXT,
			delivery_fee BIGINT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('requested', 'accepted', 'picked_up', 'delivered', 'cancelled')),
			payment_status TEXT NOT NULL CHECK (payment_status IN ('pending', 'in_transit', 'completed', 'cancelled')),
			ledger_posted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createTransactionTable creates a PostgreSQL table for the Transaction
// struct.
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('pending_payment', 'delivery_payment', 'cancelled_payment', 'charge', 'credit')),
			amount BIGINT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'refunded')),
			delivery_id TEXT,
			reference TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createDeliveryEventTable creates the idempotency ledger for lifecycle
// triggers. The unique constraint over (delivery_id, from_status, to_status)
// is what makes re-delivered triggers a no-op.
func createDeliveryEventTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS delivery_events (
			id SERIAL PRIMARY KEY,
			delivery_id TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (delivery_id, from_status, to_status)
		)
	`)
	log.Println(err)
	return err
}
