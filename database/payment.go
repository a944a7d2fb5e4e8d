package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/model"

	_ "github.com/lib/pq"
)

func (d Datasource) RecordPaymentIntent(ctx context.Context, intent *model.PaymentIntent) error {
	ctx, span := otel.Tracer("payment.database").Start(ctx, "Saving payment intent to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO payment_intents(checkout_request_id,merchant_request_id,reference,phone_number,amount,status,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`,
		intent.CheckoutRequestID, intent.MerchantRequestID, intent.Reference, intent.PhoneNumber, intent.Amount, intent.Status, intent.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payment intent with checkout request ID '%s' already exists", intent.CheckoutRequestID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payment intent", err)
	}

	return nil
}

func (d Datasource) GetPaymentIntent(ctx context.Context, checkoutRequestID string) (*model.PaymentIntent, error) {
	cacheKey := fmt.Sprintf("payment_intent:%s", checkoutRequestID)
	if d.Cache != nil {
		cached := &model.PaymentIntent{}
		if err := d.Cache.Get(ctx, cacheKey, cached); err == nil && cached.CheckoutRequestID != "" {
			return cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, checkout_request_id, merchant_request_id, reference, phone_number, amount, status, COALESCE(mpesa_receipt, ''), COALESCE(result_code, 0), COALESCE(result_desc, ''), raw_callback, created_at, updated_at
		FROM payment_intents
		WHERE checkout_request_id = $1
	`, checkoutRequestID)

	intent := &model.PaymentIntent{}
	var rawCallbackJSON []byte
	err := row.Scan(&intent.ID, &intent.CheckoutRequestID, &intent.MerchantRequestID, &intent.Reference, &intent.PhoneNumber, &intent.Amount, &intent.Status, &intent.MpesaReceipt, &intent.ResultCode, &intent.ResultDesc, &rawCallbackJSON, &intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payment intent with checkout request ID '%s' not found", checkoutRequestID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment intent", err)
	}

	if len(rawCallbackJSON) > 0 {
		err = json.Unmarshal(rawCallbackJSON, &intent.RawCallback)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal raw callback", err)
		}
	}

	// Terminal intents never change again, so they are safe to cache.
	if d.Cache != nil && intent.IsTerminal() {
		if err := d.Cache.Set(ctx, cacheKey, intent, 5*time.Minute); err != nil {
			logrus.Warnf("failed to cache payment intent %s: %v", checkoutRequestID, err)
		}
	}

	return intent, nil
}

// ResolvePaymentCallback moves a pending intent to its terminal status and, on
// a paid outcome, records the matching credit transaction in the same database
// transaction. The update is guarded on status; when it matches no pending
// row, a terminal intent surfaces as a conflict the caller can swallow, while
// an intent that has not been recorded yet surfaces as not found so the caller
// can queue the callback for replay. The two must not be conflated: a callback
// can beat the initiator's insert.
func (d Datasource) ResolvePaymentCallback(ctx context.Context, resolution *model.PaymentResolution) error {
	ctx, span := otel.Tracer("payment.database").Start(ctx, "Resolving payment intent from callback")
	defer span.End()

	rawCallbackJSON, err := json.Marshal(resolution.RawCallback)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal raw callback", err)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = $2, result_code = $3, result_desc = $4, mpesa_receipt = $5, raw_callback = $6, updated_at = NOW()
		WHERE checkout_request_id = $1 AND status = 'pending'
	`, resolution.CheckoutRequestID, resolution.Status, resolution.ResultCode, resolution.ResultDesc, resolution.MpesaReceipt, rawCallbackJSON)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve payment intent", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read affected rows", err)
	}
	if rows == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM payment_intents WHERE checkout_request_id = $1`, resolution.CheckoutRequestID).Scan(&status)
		if err == sql.ErrNoRows {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payment intent '%s' has not been recorded yet", resolution.CheckoutRequestID), err)
		}
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check payment intent status", err)
		}
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payment intent '%s' already resolved to '%s'", resolution.CheckoutRequestID, status), nil)
	}

	if resolution.Status == model.PaymentStatusPaid {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions(transaction_id,owner_id,type,amount,status,reference,created_at) VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
			model.GenerateUUIDWithSuffix("txn"), resolution.PhoneNumber, model.TransactionTypeCredit, resolution.Amount, model.TransactionStatusCompleted, resolution.MpesaReceipt,
		)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payment credit", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit payment resolution", err)
	}

	return nil
}

func (d Datasource) GetPaymentIntentsByStatus(ctx context.Context, status string, limit int) ([]*model.PaymentIntent, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, checkout_request_id, merchant_request_id, reference, phone_number, amount, status, COALESCE(mpesa_receipt, ''), COALESCE(result_code, 0), COALESCE(result_desc, ''), created_at, updated_at
		FROM payment_intents
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment intents", err)
	}
	defer rows.Close()

	var intents []*model.PaymentIntent
	for rows.Next() {
		intent := &model.PaymentIntent{}
		err = rows.Scan(&intent.ID, &intent.CheckoutRequestID, &intent.MerchantRequestID, &intent.Reference, &intent.PhoneNumber, &intent.Amount, &intent.Status, &intent.MpesaReceipt, &intent.ResultCode, &intent.ResultDesc, &intent.CreatedAt, &intent.UpdatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payment intent", err)
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating payment intents", err)
	}

	return intents, nil
}
