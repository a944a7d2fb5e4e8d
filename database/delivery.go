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

func (d Datasource) CreateDelivery(ctx context.Context, delivery *model.Delivery) error {
	ctx, span := otel.Tracer("delivery.database").Start(ctx, "Saving delivery to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO deliveries(delivery_id,business_id,rider_id,delivery_fee,status,payment_status,ledger_posted,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
		delivery.DeliveryID, delivery.BusinessID, delivery.RiderID, delivery.Fee, delivery.Status, delivery.PaymentStatus, delivery.LedgerPosted, delivery.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Delivery with ID '%s' already exists", delivery.DeliveryID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record delivery", err)
	}

	return nil
}

func (d Datasource) GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, delivery_id, business_id, COALESCE(rider_id, ''), delivery_fee, status, payment_status, ledger_posted, created_at, updated_at
		FROM deliveries
		WHERE delivery_id = $1
	`, deliveryID)

	delivery := &model.Delivery{}
	err := row.Scan(&delivery.ID, &delivery.DeliveryID, &delivery.BusinessID, &delivery.RiderID, &delivery.Fee, &delivery.Status, &delivery.PaymentStatus, &delivery.LedgerPosted, &delivery.CreatedAt, &delivery.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Delivery with ID '%s' not found", deliveryID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve delivery", err)
	}

	return delivery, nil
}

// AssignDeliveryRider sets the rider on a delivery that does not have one yet.
// An already assigned delivery is left alone.
func (d Datasource) AssignDeliveryRider(ctx context.Context, deliveryID, riderID string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE deliveries
		SET rider_id = $2, updated_at = NOW()
		WHERE delivery_id = $1 AND (rider_id IS NULL OR rider_id = '')
	`, deliveryID, riderID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to assign rider", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read affected rows", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Delivery '%s' already has a rider assigned", deliveryID), nil)
	}

	return nil
}

// TransitionDelivery applies one lifecycle transition. The event row and the
// status update commit together; the unique constraint on
// (delivery_id, from_status, to_status) turns a replayed trigger into a
// conflict before any state is touched, and the status guard on the update
// catches a delivery that moved on since the caller last read it.
func (d Datasource) TransitionDelivery(ctx context.Context, deliveryID, fromStatus, toStatus, paymentStatus string) error {
	ctx, span := otel.Tracer("delivery.database").Start(ctx, "Applying delivery transition")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO delivery_events(delivery_id,from_status,to_status,created_at) VALUES ($1,$2,$3,NOW())`,
		deliveryID, fromStatus, toStatus,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Transition %s -> %s already recorded for delivery '%s'", fromStatus, toStatus, deliveryID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record delivery event", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE deliveries
		SET status = $3, payment_status = $4, updated_at = NOW()
		WHERE delivery_id = $1 AND status = $2
	`, deliveryID, fromStatus, toStatus, paymentStatus)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update delivery status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read affected rows", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Delivery '%s' is no longer in status '%s'", deliveryID, fromStatus), nil)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit delivery transition", err)
	}

	return nil
}
