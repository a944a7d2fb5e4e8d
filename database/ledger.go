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
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/model"

	_ "github.com/lib/pq"
)

// The ledger postings below share one contract: every balance movement and its
// transaction lines commit in a single database transaction, each posting
// applies at most once per delivery, and a posting that has already applied
// returns a conflict so callers can treat replays as no-ops. Across a
// delivery's full life the movements sum to zero per account dimension.

// upsertAccountDelta folds a balance movement into the owner's account,
// creating the account on first sight.
func upsertAccountDelta(ctx context.Context, tx *sql.Tx, ownerID string, pendingDelta, walletDelta int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts(account_id,owner_id,pending_balance,wallet_balance,created_at,updated_at)
		VALUES ($1,$2,$3,$4,NOW(),NOW())
		ON CONFLICT (owner_id) DO UPDATE
		SET pending_balance = accounts.pending_balance + EXCLUDED.pending_balance,
		    wallet_balance = accounts.wallet_balance + EXCLUDED.wallet_balance,
		    updated_at = NOW()
	`, model.GenerateUUIDWithSuffix("acc"), ownerID, pendingDelta, walletDelta)
	return err
}

// ApplyDeliveryReservation earmarks the delivery fee against the business when
// a rider accepts: pending balance up by the fee, one pending_payment line.
// The guarded insert makes a second reservation for the same delivery a
// conflict before any balance moves.
func (d Datasource) ApplyDeliveryReservation(ctx context.Context, delivery *model.Delivery) error {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Posting delivery reservation")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(transaction_id,owner_id,type,amount,status,delivery_id,created_at)
		SELECT $1, $2, 'pending_payment', $3, 'pending', $4, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM transactions WHERE delivery_id = $4 AND type = 'pending_payment'
		)
	`, model.GenerateUUIDWithSuffix("txn"), delivery.BusinessID, delivery.Fee, delivery.DeliveryID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record reservation", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read affected rows", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Reservation already posted for delivery '%s'", delivery.DeliveryID), nil)
	}

	if err := upsertAccountDelta(ctx, tx, delivery.BusinessID, delivery.Fee, 0); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reserve delivery fee", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit reservation", err)
	}

	return nil
}

// ApplyDeliveryCompletion settles a delivered order: the business sheds the
// reservation and pays the fee from its wallet, the rider's wallet gains it,
// and the pending line is retyped to a completed delivery_payment. The
// ledger_posted guard is flipped first inside the transaction, so the posting
// lands exactly once no matter how often the delivered event is replayed.
func (d Datasource) ApplyDeliveryCompletion(ctx context.Context, delivery *model.Delivery) error {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Posting delivery completion")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := claimLedgerPosting(ctx, tx, delivery.DeliveryID, model.DeliveryPaymentCompleted); err != nil {
		return err
	}

	if err := upsertAccountDelta(ctx, tx, delivery.BusinessID, -delivery.Fee, -delivery.Fee); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to settle business account", err)
	}

	if delivery.RiderID != "" {
		if err := upsertAccountDelta(ctx, tx, delivery.RiderID, 0, delivery.Fee); err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to credit rider account", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions(transaction_id,owner_id,type,amount,status,delivery_id,created_at) VALUES ($1,$2,'delivery_payment',$3,'completed',$4,NOW())`,
			model.GenerateUUIDWithSuffix("txn"), delivery.RiderID, delivery.Fee, delivery.DeliveryID,
		)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record rider payment", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE transactions
		SET type = 'delivery_payment', status = 'completed'
		WHERE delivery_id = $1 AND type = 'pending_payment' AND status = 'pending'
	`, delivery.DeliveryID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retype pending payment", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit completion", err)
	}

	return nil
}

// ApplyDeliveryCancellation releases the reservation: the business pending
// balance drops by the fee, no wallet moves, and the pending line is retyped
// to a refunded cancelled_payment. The retype runs first and gates the
// release, because a delivery cancelled straight from requested never posted
// a reservation and must not move any balance.
func (d Datasource) ApplyDeliveryCancellation(ctx context.Context, delivery *model.Delivery) error {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Posting delivery cancellation")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := claimLedgerPosting(ctx, tx, delivery.DeliveryID, model.DeliveryPaymentCancelled); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET type = 'cancelled_payment', status = 'refunded'
		WHERE delivery_id = $1 AND type = 'pending_payment' AND status = 'pending'
	`, delivery.DeliveryID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retype pending payment", err)
	}

	reserved, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read affected rows", err)
	}

	if reserved > 0 {
		if err := upsertAccountDelta(ctx, tx, delivery.BusinessID, -delivery.Fee, 0); err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to release reservation", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit cancellation", err)
	}

	return nil
}

// claimLedgerPosting flips the delivery's ledger_posted flag inside the
// caller's transaction. Zero affected rows means another posting already
// claimed this delivery; the caller must roll back without moving balances.
func claimLedgerPosting(ctx context.Context, tx *sql.Tx, deliveryID, paymentStatus string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE deliveries
		SET ledger_posted = TRUE, payment_status = $2, updated_at = NOW()
		WHERE delivery_id = $1 AND ledger_posted = FALSE
	`, deliveryID, paymentStatus)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim ledger posting", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read affected rows", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Ledger already posted for delivery '%s'", deliveryID), nil)
	}

	return nil
}
