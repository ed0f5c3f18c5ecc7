package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/tixvn/ms-go-payments/app/entity"
)

var (
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrDuplicateOrderCode      = errors.New("duplicate order code")
	ErrNotPending              = errors.New("payment is not pending")
)

const paymentColumns = `id, order_code, idempotency_key, amount_cents, currency,
		status, provider, provider_transaction_id, redirect_url, payment_url,
		metadata_json, created_at, updated_at, completed_at, failed_at, cancelled_at`

// columns stamped alongside each terminal status (1=COMPLETED, 2=FAILED, 3=CANCELLED).
var terminalStatusColumns = map[int32]string{
	1: "completed_at",
	2: "failed_at",
	3: "cancelled_at",
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	metadataJSON, err := serializeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, order_code, idempotency_key, amount_cents, currency,
			status, provider, provider_transaction_id, redirect_url, payment_url,
			metadata_json, created_at, updated_at, completed_at, failed_at, cancelled_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderCode,
		payment.IdempotencyKey,
		payment.AmountCents,
		payment.Currency,
		payment.Status,
		payment.Provider,
		nullableStringValue(payment.ProviderTransactionID),
		payment.RedirectURL,
		nullableStringValue(payment.PaymentURL),
		metadataJSON,
		payment.CreatedAt,
		payment.UpdatedAt,
		nullableTimeValue(payment.CompletedAt),
		nullableTimeValue(payment.FailedAt),
		nullableTimeValue(payment.CancelledAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			if strings.Contains(duplicateEntryKey(err), "order_code") {
				return ErrDuplicateOrderCode
			}
			return ErrDuplicateIdempotencyKey
		}
		return err
	}

	return nil
}

func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = ? LIMIT 1`
	return r.findOne(ctx, query, key)
}

func (r *PaymentRepository) FindByOrderCode(ctx context.Context, orderCode string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_code = ? LIMIT 1`
	return r.findOne(ctx, query, orderCode)
}

func (r *PaymentRepository) FindByProviderTransactionID(ctx context.Context, pid string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_transaction_id = ? LIMIT 1`
	return r.findOne(ctx, query, pid)
}

// LockByID reads the payment row under FOR UPDATE so that concurrent webhooks
// for the same payment serialize on the row lock.
func (r *PaymentRepository) LockByID(ctx context.Context, tx DBTX, id string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ? FOR UPDATE`

	payment := &entity.Payment{}
	if err := scanPayment(tx.QueryRowContext(ctx, query, id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdateStatus moves a PENDING payment to a terminal status inside the
// caller-supplied transaction. The WHERE clause guards against lost updates
// even if the row lock was bypassed.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx DBTX, id string, toStatus int32, at time.Time) error {
	column, ok := terminalStatusColumns[toStatus]
	if !ok {
		return errors.New("unsupported target status")
	}

	query := `
		UPDATE payments
		SET status = ?, ` + column + ` = ?, updated_at = ?
		WHERE id = ? AND status = 0
	`

	result, err := tx.ExecContext(ctx, query, toStatus, at, at, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}

	return nil
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Payment, error) {
	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, args...), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var providerTransactionID sql.NullString
	var paymentURL sql.NullString
	var metadataJSON string
	var completedAt sql.NullTime
	var failedAt sql.NullTime
	var cancelledAt sql.NullTime

	err := scan.Scan(
		&payment.ID,
		&payment.OrderCode,
		&payment.IdempotencyKey,
		&payment.AmountCents,
		&payment.Currency,
		&payment.Status,
		&payment.Provider,
		&providerTransactionID,
		&payment.RedirectURL,
		&paymentURL,
		&metadataJSON,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&completedAt,
		&failedAt,
		&cancelledAt,
	)
	if err != nil {
		return err
	}

	payment.ProviderTransactionID = stringPtrFromNull(providerTransactionID)
	payment.PaymentURL = stringPtrFromNull(paymentURL)
	payment.CompletedAt = timePtrFromNull(completedAt)
	payment.FailedAt = timePtrFromNull(failedAt)
	payment.CancelledAt = timePtrFromNull(cancelledAt)

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}
	payment.Metadata = metadata

	return nil
}
