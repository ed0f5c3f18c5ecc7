package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tixvn/ms-go-payments/app/entity"
	"github.com/tixvn/ms-go-payments/app/events"
	"github.com/tixvn/ms-go-payments/config"
)

// eventTopics routes outbox event types to bus topics. An event type outside
// this table burns a retry so it eventually parks as exhausted instead of
// wedging the batch.
var eventTopics = map[string]string{
	entity.EventTypePaymentCompleted: "payment.completed",
	entity.EventTypePaymentFailed:    "payment.failed",
	entity.EventTypePaymentCancelled: "payment.cancelled",
}

type outboxStore interface {
	FetchUnpublished(ctx context.Context, limit, maxRetries int32) ([]*entity.OutboxRecord, error)
	FetchExhausted(ctx context.Context, maxRetries int32) ([]*entity.OutboxRecord, error)
	MarkPublished(ctx context.Context, id uint64) error
	IncrementRetry(ctx context.Context, id uint64, errorMessage string) error
	DeletePublishedOlderThan(ctx context.Context, days int) (int64, error)
}

type busProducer interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

type OutboxPublisher struct {
	store    outboxStore
	producer busProducer
	cfg      config.OutboxConfig
	logger   *logrus.Entry

	running atomic.Bool
	now     func() time.Time
}

func NewOutboxPublisher(store outboxStore, producer busProducer, cfg config.OutboxConfig, logger *logrus.Entry) *OutboxPublisher {
	return &OutboxPublisher{
		store:    store,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RunPublishBatch drains one batch of unpublished records in insertion order.
// Overlapping invocations are skipped; a slow bus must not stack batches.
func (p *OutboxPublisher) RunPublishBatch(ctx context.Context) (int, error) {
	if !p.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer p.running.Store(false)

	records, err := p.store.FetchUnpublished(ctx, p.cfg.BatchSize, p.cfg.MaxRetries)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, record := range records {
		topic, ok := eventTopics[record.EventType]
		if !ok {
			p.logger.WithFields(logrus.Fields{
				"outbox_id":  record.ID,
				"event_type": record.EventType,
			}).Warn("unknown event type in outbox")
			if err := p.store.IncrementRetry(ctx, record.ID, "Unknown event type: "+record.EventType); err != nil {
				p.logger.WithError(err).Error("failed to increment outbox retry count")
			}
			continue
		}

		headers := map[string]string{
			events.HeaderMessageID:     uuid.NewString(),
			events.HeaderTimestamp:     p.now().UTC().Format(time.RFC3339),
			events.HeaderSource:        events.SourceName,
			events.HeaderEventType:     record.EventType,
			events.HeaderEventVersion:  events.EventVersion,
			events.HeaderCorrelationID: record.AggregateID,
		}

		publishCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
		err := p.producer.Publish(publishCtx, topic, record.AggregateID, []byte(record.PayloadJSON), headers)
		cancel()
		if err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"outbox_id": record.ID,
				"topic":     topic,
			}).Warn("outbox publish failed")
			if err := p.store.IncrementRetry(ctx, record.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("failed to increment outbox retry count")
			}
			continue
		}

		if err := p.store.MarkPublished(ctx, record.ID); err != nil {
			// the event will be re-published next tick; consumers must
			// deduplicate on payment_id + event type
			p.logger.WithError(err).WithField("outbox_id", record.ID).
				Error("published event could not be marked")
			continue
		}
		published++
	}

	return published, nil
}

func (p *OutboxPublisher) RunCleanupBatch(ctx context.Context) (int64, error) {
	deleted, err := p.store.DeletePublishedOlderThan(ctx, p.cfg.RetentionDays)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.WithFields(logrus.Fields{
			"deleted":        deleted,
			"retention_days": p.cfg.RetentionDays,
		}).Info("purged published outbox records")
	}
	return deleted, nil
}

// RunExhaustedScan surfaces records that ran out of retries; they stay in the
// table for manual replay.
func (p *OutboxPublisher) RunExhaustedScan(ctx context.Context) (int, error) {
	records, err := p.store.FetchExhausted(ctx, p.cfg.MaxRetries)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]uint64, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	p.logger.WithFields(logrus.Fields{
		"count": len(records),
		"ids":   ids,
	}).Warn("outbox records exhausted retries, manual replay required")

	return len(records), nil
}
