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

package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/model"
)

func TestRecordPayoutIntent_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	intent := &model.PayoutIntent{
		ConversationID:           "AG_20191219_00005797af5d7d75f652",
		OriginatorConversationID: "16740-34861180-1",
		PhoneNumber:              "254712345678",
		Amount:                   500,
		Remarks:                  "Rider settlement",
		Status:                   model.PayoutStatusPending,
		CreatedAt:                time.Now(),
	}

	mock.ExpectExec("INSERT INTO payout_intents").
		WithArgs(intent.ConversationID, intent.OriginatorConversationID, intent.PhoneNumber, intent.Amount, intent.Remarks, intent.Status, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = ds.RecordPayoutIntent(context.Background(), intent)
	assert.NoError(t, err)
}

func TestRecordPayoutIntent_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	intent := &model.PayoutIntent{
		ConversationID: "AG_20191219_00005797af5d7d75f652",
		PhoneNumber:    "254712345678",
		Amount:         500,
		Status:         model.PayoutStatusPending,
		CreatedAt:      time.Now(),
	}

	mock.ExpectExec("INSERT INTO payout_intents").
		WillReturnError(&pq.Error{Code: "23505", Message: "unique_violation"})

	err = ds.RecordPayoutIntent(context.Background(), intent)
	assert.Error(t, err)
	assert.True(t, apierror.IsConflict(err))
}

func TestResolvePayoutResult_Completed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	completedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	resolution := &model.PayoutResolution{
		ConversationID:     "AG_20191219_00005797af5d7d75f652",
		Status:             model.PayoutStatusCompleted,
		ResultCode:         0,
		ResultDesc:         "The service request is processed successfully.",
		TransactionReceipt: "NLJ41HAY6Q",
		ReceiverName:       "254712345678 - John Doe",
		CompletedAt:        completedAt,
	}

	mock.ExpectExec("UPDATE payout_intents").
		WithArgs(resolution.ConversationID, resolution.Status, resolution.ResultCode, resolution.ResultDesc, resolution.TransactionReceipt, resolution.ReceiverName, completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.ResolvePayoutResult(context.Background(), resolution)
	assert.NoError(t, err)
}

func TestResolvePayoutResult_FailedWithoutCompletionTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	resolution := &model.PayoutResolution{
		ConversationID: "AG_20191219_00005797af5d7d75f652",
		Status:         model.PayoutStatusFailed,
		ResultCode:     2001,
		ResultDesc:     "The initiator information is invalid.",
	}

	mock.ExpectExec("UPDATE payout_intents").
		WithArgs(resolution.ConversationID, resolution.Status, resolution.ResultCode, resolution.ResultDesc, "", "", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.ResolvePayoutResult(context.Background(), resolution)
	assert.NoError(t, err)
}

func TestResolvePayoutResult_DuplicateIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	resolution := &model.PayoutResolution{
		ConversationID: "AG_20191219_00005797af5d7d75f652",
		Status:         model.PayoutStatusCompleted,
	}

	mock.ExpectExec("UPDATE payout_intents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM payout_intents").
		WithArgs(resolution.ConversationID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	err = ds.ResolvePayoutResult(context.Background(), resolution)
	assert.Error(t, err)
	assert.True(t, apierror.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolvePayoutResult_UnrecordedIntentIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	resolution := &model.PayoutResolution{
		ConversationID: "AG_never_recorded",
		Status:         model.PayoutStatusCompleted,
	}

	// the result webhook beat the initiator's insert: not a duplicate
	mock.ExpectExec("UPDATE payout_intents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM payout_intents").
		WithArgs(resolution.ConversationID).
		WillReturnError(sql.ErrNoRows)

	err = ds.ResolvePayoutResult(context.Background(), resolution)
	assert.Error(t, err)
	assert.True(t, apierror.IsNotFound(err))
	assert.False(t, apierror.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumCompletedPayouts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("254712345678", since).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1200))

	total, err := ds.SumCompletedPayouts(context.Background(), "254712345678", since)
	assert.NoError(t, err)
	assert.Equal(t, int64(1200), total)
}

func TestGetOrCreateAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(sqlmock.AnyArg(), "biz_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{"id", "account_id", "owner_id", "pending_balance", "wallet_balance", "created_at", "updated_at"}).
		AddRow(1, "acc_1", "biz_1", 200, 0, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE owner_id").
		WithArgs("biz_1").
		WillReturnRows(rows)

	account, err := ds.GetOrCreateAccount(context.Background(), "biz_1")
	assert.NoError(t, err)
	assert.Equal(t, "biz_1", account.OwnerID)
	assert.Equal(t, int64(200), account.PendingBalance)
	assert.Equal(t, int64(0), account.WalletBalance)
}
