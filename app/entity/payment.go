package entity

import "time"

type Payment struct {
	ID string

	OrderCode      string
	IdempotencyKey string

	AmountCents int64
	Currency    string

	Status   int32
	Provider int32

	ProviderTransactionID *string

	RedirectURL string
	PaymentURL  *string

	Metadata map[string]string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	CancelledAt *time.Time
}
