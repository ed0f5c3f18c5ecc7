package entity

import "time"

const (
	CallbackStatusProcessed int32 = 10
	CallbackStatusRejected  int32 = 20
)

type PaymentCallback struct {
	ID uint64

	PaymentID *string

	Provider              string
	ProviderTransactionID string
	PayloadJSON           string
	Status                int32
	Error                 *string

	CreatedAt time.Time
}
