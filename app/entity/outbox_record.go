package entity

import "time"

const AggregateTypePayment = "Payment"

const (
	EventTypePaymentCompleted = "PaymentCompleted"
	EventTypePaymentFailed    = "PaymentFailed"
	EventTypePaymentCancelled = "PaymentCancelled"
)

type OutboxRecord struct {
	ID uint64

	AggregateID   string
	AggregateType string
	EventType     string
	PayloadJSON   string

	Published   bool
	PublishedAt *time.Time

	RetryCount int32
	LastError  *string

	CreatedAt time.Time
}
