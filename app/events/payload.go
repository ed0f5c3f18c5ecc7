package events

import (
	"time"

	"github.com/tixvn/ms-go-payments/app/entity"
	"github.com/tixvn/ms-go-payments/app/types"
)

// Bus header names shared by every published event.
const (
	HeaderMessageID     = "messageId"
	HeaderTimestamp     = "timestamp"
	HeaderSource        = "source"
	HeaderEventType     = "eventType"
	HeaderEventVersion  = "eventVersion"
	HeaderCorrelationID = "correlationId"

	SourceName   = "payment-service"
	EventVersion = "1.0"
)

type PaymentEventPayload struct {
	PaymentID     string     `json:"payment_id"`
	OrderCode     string     `json:"order_code"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Provider      string     `json:"provider"`
	TransactionID string     `json:"transaction_id,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// NewPaymentEventPayload snapshots a payment for the outbox. Only the
// timestamp matching the event type is set.
func NewPaymentEventPayload(payment *entity.Payment, eventType string) *PaymentEventPayload {
	payload := &PaymentEventPayload{
		PaymentID:   payment.ID,
		OrderCode:   payment.OrderCode,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Provider:    types.ProviderType(payment.Provider).String(),
	}
	if payment.ProviderTransactionID != nil {
		payload.TransactionID = *payment.ProviderTransactionID
	}

	switch eventType {
	case entity.EventTypePaymentCompleted:
		payload.CompletedAt = payment.CompletedAt
	case entity.EventTypePaymentFailed:
		payload.FailedAt = payment.FailedAt
	case entity.EventTypePaymentCancelled:
		payload.CancelledAt = payment.CancelledAt
	}

	return payload
}
