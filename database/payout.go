package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/sureboda/sureboda/internal/apierror"
	"github.com/sureboda/sureboda/model"

	_ "github.com/lib/pq"
)

func (d Datasource) RecordPayoutIntent(ctx context.Context, intent *model.PayoutIntent) error {
	ctx, span := otel.Tracer("payout.database").Start(ctx, "Saving payout intent to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO payout_intents(conversation_id,originator_conversation_id,phone_number,amount,remarks,status,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`,
		intent.ConversationID, intent.OriginatorConversationID, intent.PhoneNumber, intent.Amount, intent.Remarks, intent.Status, intent.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payout intent with conversation ID '%s' already exists", intent.ConversationID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payout intent", err)
	}

	return nil
}

func (d Datasource) GetPayoutIntent(ctx context.Context, conversationID string) (*model.PayoutIntent, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, conversation_id, originator_conversation_id, phone_number, amount, COALESCE(remarks, ''), status, COALESCE(transaction_receipt, ''), COALESCE(receiver_name, ''), COALESCE(result_code, 0), COALESCE(result_desc, ''), COALESCE(completed_at, 'epoch'::timestamp), created_at, updated_at
		FROM payout_intents
		WHERE conversation_id = $1
	`, conversationID)

	intent := &model.PayoutIntent{}
	err := row.Scan(&intent.ID, &intent.ConversationID, &intent.OriginatorConversationID, &intent.PhoneNumber, &intent.Amount, &intent.Remarks, &intent.Status, &intent.TransactionReceipt, &intent.ReceiverName, &intent.ResultCode, &intent.ResultDesc, &intent.CompletedAt, &intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payout intent with conversation ID '%s' not found", conversationID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payout intent", err)
	}

	return intent, nil
}

// ResolvePayoutResult moves a pending payout to its terminal status. The
// update is guarded on status; a replayed result webhook finds the intent
// already terminal and surfaces as a conflict the caller can swallow, while a
// result whose intent has not been recorded yet surfaces as not found so the
// caller can queue it for replay.
func (d Datasource) ResolvePayoutResult(ctx context.Context, resolution *model.PayoutResolution) error {
	ctx, span := otel.Tracer("payout.database").Start(ctx, "Resolving payout intent from result webhook")
	defer span.End()

	var completedAt interface{}
	if !resolution.CompletedAt.IsZero() {
		completedAt = resolution.CompletedAt
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE payout_intents
		SET status = $2, result_code = $3, result_desc = $4, transaction_receipt = $5, receiver_name = $6, completed_at = $7, updated_at = NOW()
		WHERE conversation_id = $1 AND status = 'pending'
	`, resolution.ConversationID, resolution.Status, resolution.ResultCode, resolution.ResultDesc, resolution.TransactionReceipt, resolution.ReceiverName, completedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve payout intent", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read affected rows", err)
	}
	if rows == 0 {
		var status string
		err := d.Conn.QueryRowContext(ctx, `SELECT status FROM payout_intents WHERE conversation_id = $1`, resolution.ConversationID).Scan(&status)
		if err == sql.ErrNoRows {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payout intent '%s' has not been recorded yet", resolution.ConversationID), err)
		}
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check payout intent status", err)
		}
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payout intent '%s' already resolved to '%s'", resolution.ConversationID, status), nil)
	}

	return nil
}

// SumCompletedPayouts totals completed transfers to one number since the given
// timestamp, used to enforce the daily payout ceiling.
func (d Datasource) SumCompletedPayouts(ctx context.Context, phoneNumber string, since time.Time) (int64, error) {
	var total int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payout_intents
		WHERE phone_number = $1 AND status = 'completed' AND created_at >= $2
	`, phoneNumber, since).Scan(&total)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sum completed payouts", err)
	}

	return total, nil
}
