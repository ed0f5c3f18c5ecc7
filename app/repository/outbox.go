package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tixvn/ms-go-payments/app/entity"
)

const lastErrorMaxBytes = 500

type OutboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Append writes the event row through the transaction that carries the
// payment mutation, so neither is visible without the other.
func (r *OutboxRepository) Append(ctx context.Context, tx DBTX, record *entity.OutboxRecord) error {
	query := `
		INSERT INTO outbox (
			aggregate_id, aggregate_type, event_type, payload_json,
			published, retry_count, created_at
		)
		VALUES (?, ?, ?, ?, FALSE, 0, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		record.AggregateID,
		record.AggregateType,
		record.EventType,
		record.PayloadJSON,
		record.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)

	return nil
}

func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit, maxRetries int32) ([]*entity.OutboxRecord, error) {
	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, payload_json,
			published, published_at, retry_count, last_error, created_at
		FROM outbox
		WHERE published = FALSE AND retry_count < ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`
	return r.fetch(ctx, query, maxRetries, limit)
}

func (r *OutboxRepository) FetchExhausted(ctx context.Context, maxRetries int32) ([]*entity.OutboxRecord, error) {
	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, payload_json,
			published, published_at, retry_count, last_error, created_at
		FROM outbox
		WHERE published = FALSE AND retry_count >= ?
		ORDER BY created_at ASC, id ASC
	`
	return r.fetch(ctx, query, maxRetries)
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uint64) error {
	query := `UPDATE outbox SET published = TRUE, published_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	return err
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, id uint64, errorMessage string) error {
	query := `UPDATE outbox SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, truncateError(errorMessage), id)
	return err
}

func (r *OutboxRepository) DeletePublishedOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	query := `DELETE FROM outbox WHERE published = TRUE AND published_at < ?`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OutboxRepository) fetch(ctx context.Context, query string, args ...interface{}) ([]*entity.OutboxRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*entity.OutboxRecord, 0)
	for rows.Next() {
		record, err := scanOutboxRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func scanOutboxRecord(scan rowScanner) (*entity.OutboxRecord, error) {
	record := &entity.OutboxRecord{}
	var publishedAt sql.NullTime
	var lastError sql.NullString

	err := scan.Scan(
		&record.ID,
		&record.AggregateID,
		&record.AggregateType,
		&record.EventType,
		&record.PayloadJSON,
		&record.Published,
		&publishedAt,
		&record.RetryCount,
		&lastError,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.PublishedAt = timePtrFromNull(publishedAt)
	record.LastError = stringPtrFromNull(lastError)

	return record, nil
}

func truncateError(message string) string {
	if len(message) <= lastErrorMaxBytes {
		return message
	}
	return message[:lastErrorMaxBytes]
}
