package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/model"

	_ "github.com/lib/pq"
)

func (d Datasource) GetAccount(ctx context.Context, ownerID string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, account_id, owner_id, pending_balance, wallet_balance, created_at, updated_at
		FROM accounts
		WHERE owner_id = $1
	`, ownerID)

	account := &model.Account{}
	err := row.Scan(&account.ID, &account.AccountID, &account.OwnerID, &account.PendingBalance, &account.WalletBalance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account for owner '%s' not found", ownerID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}

	return account, nil
}

// GetOrCreateAccount returns the owner's account, inserting a zero-balance row
// on first sight. The upsert keeps concurrent first sights from racing.
func (d Datasource) GetOrCreateAccount(ctx context.Context, ownerID string) (*model.Account, error) {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO accounts(account_id,owner_id,pending_balance,wallet_balance,created_at,updated_at)
		VALUES ($1,$2,0,0,NOW(),NOW())
		ON CONFLICT (owner_id) DO NOTHING
	`, model.GenerateUUIDWithSuffix("acc"), ownerID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}

	return d.GetAccount(ctx, ownerID)
}

func (d Datasource) RecordTransaction(ctx context.Context, txn *model.Transaction) error {
	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO transactions(transaction_id,owner_id,type,amount,status,delivery_id,reference,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		txn.TransactionID, txn.OwnerID, txn.Type, txn.Amount, txn.Status, txn.DeliveryID, txn.Reference, txn.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Transaction with ID '%s' already exists", txn.TransactionID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
	}

	return nil
}

func (d Datasource) GetDeliveryTransactions(ctx context.Context, deliveryID string) ([]*model.Transaction, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, transaction_id, owner_id, type, amount, status, COALESCE(delivery_id, ''), COALESCE(reference, ''), created_at
		FROM transactions
		WHERE delivery_id = $1
		ORDER BY created_at ASC
	`, deliveryID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve delivery transactions", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		txn := &model.Transaction{}
		err = rows.Scan(&txn.ID, &txn.TransactionID, &txn.OwnerID, &txn.Type, &txn.Amount, &txn.Status, &txn.DeliveryID, &txn.Reference, &txn.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating transactions", err)
	}

	return transactions, nil
}
