package types

import "strings"

type PaymentStatus int32

const (
	PaymentStatus_PAYMENT_STATUS_PENDING   PaymentStatus = 0
	PaymentStatus_PAYMENT_STATUS_COMPLETED PaymentStatus = 1
	PaymentStatus_PAYMENT_STATUS_FAILED    PaymentStatus = 2
	PaymentStatus_PAYMENT_STATUS_CANCELLED PaymentStatus = 3
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatus_PAYMENT_STATUS_PENDING:
		return "PENDING"
	case PaymentStatus_PAYMENT_STATUS_COMPLETED:
		return "COMPLETED"
	case PaymentStatus_PAYMENT_STATUS_FAILED:
		return "FAILED"
	case PaymentStatus_PAYMENT_STATUS_CANCELLED:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

type ProviderType int32

// Wire values are part of the caller contract and must not be renumbered.
const (
	ProviderType_PROVIDER_TYPE_ZALOPAY ProviderType = 0
	ProviderType_PROVIDER_TYPE_PAYOS   ProviderType = 1
	ProviderType_PROVIDER_TYPE_VNPAY   ProviderType = 2
)

func (p ProviderType) String() string {
	switch p {
	case ProviderType_PROVIDER_TYPE_ZALOPAY:
		return "ZALOPAY"
	case ProviderType_PROVIDER_TYPE_PAYOS:
		return "PAYOS"
	case ProviderType_PROVIDER_TYPE_VNPAY:
		return "VNPAY"
	default:
		return "UNKNOWN"
	}
}

func ParseProviderType(raw string) (ProviderType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "0", "ZALOPAY":
		return ProviderType_PROVIDER_TYPE_ZALOPAY, true
	case "1", "PAYOS":
		return ProviderType_PROVIDER_TYPE_PAYOS, true
	case "2", "VNPAY":
		return ProviderType_PROVIDER_TYPE_VNPAY, true
	default:
		return 0, false
	}
}

// Business error codes carried alongside transport status codes.
const (
	ErrorCodePaymentNotFound  int32 = 20000
	ErrorCodePermissionDenied int32 = 20403
)

type Payment struct {
	Id                    string            `json:"id"`
	OrderCode             string            `json:"order_code"`
	IdempotencyKey        string            `json:"idempotency_key"`
	AmountCents           int64             `json:"amount_cents"`
	Currency              string            `json:"currency"`
	Status                PaymentStatus     `json:"status"`
	Provider              ProviderType      `json:"provider"`
	ProviderTransactionId string            `json:"provider_transaction_id,omitempty"`
	PaymentUrl            string            `json:"payment_url,omitempty"`
	RedirectUrl           string            `json:"redirect_url,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	CreatedAt             string            `json:"created_at"`
	UpdatedAt             string            `json:"updated_at"`
	CompletedAt           string            `json:"completed_at,omitempty"`
	FailedAt              string            `json:"failed_at,omitempty"`
	CancelledAt           string            `json:"cancelled_at,omitempty"`
}

func (p *Payment) GetId() string {
	if p == nil {
		return ""
	}
	return p.Id
}

func (p *Payment) GetStatus() PaymentStatus {
	if p == nil {
		return PaymentStatus_PAYMENT_STATUS_PENDING
	}
	return p.Status
}

func (p *Payment) GetPaymentUrl() string {
	if p == nil {
		return ""
	}
	return p.PaymentUrl
}

type CreatePaymentIntentRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	OrderCode      string            `json:"order_code"`
	AmountCents    int64             `json:"amount_cents"`
	Currency       string            `json:"currency"`
	Provider       ProviderType      `json:"provider"`
	RedirectUrl    string            `json:"redirect_url"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	TimeoutSeconds int32             `json:"timeout_seconds,omitempty"`
}

func (r *CreatePaymentIntentRequest) GetIdempotencyKey() string {
	if r == nil {
		return ""
	}
	return r.IdempotencyKey
}

func (r *CreatePaymentIntentRequest) GetOrderCode() string {
	if r == nil {
		return ""
	}
	return r.OrderCode
}

func (r *CreatePaymentIntentRequest) GetAmountCents() int64 {
	if r == nil {
		return 0
	}
	return r.AmountCents
}

func (r *CreatePaymentIntentRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

func (r *CreatePaymentIntentRequest) GetProvider() ProviderType {
	if r == nil {
		return ProviderType_PROVIDER_TYPE_ZALOPAY
	}
	return r.Provider
}

func (r *CreatePaymentIntentRequest) GetRedirectUrl() string {
	if r == nil {
		return ""
	}
	return r.RedirectUrl
}

func (r *CreatePaymentIntentRequest) GetMetadata() map[string]string {
	if r == nil {
		return nil
	}
	return r.Metadata
}

func (r *CreatePaymentIntentRequest) GetTimeoutSeconds() int32 {
	if r == nil {
		return 0
	}
	return r.TimeoutSeconds
}

// PaymentUrl is the normative caller contract; the full payment envelope
// rides alongside for richer clients.
type CreatePaymentIntentResponse struct {
	PaymentUrl string   `json:"paymentUrl"`
	Payment    *Payment `json:"payment"`
}

func (r *CreatePaymentIntentResponse) GetPaymentUrl() string {
	if r == nil {
		return ""
	}
	return r.PaymentUrl
}

func (r *CreatePaymentIntentResponse) GetPayment() *Payment {
	if r == nil {
		return nil
	}
	return r.Payment
}

type GetPaymentUrlRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

func (r *GetPaymentUrlRequest) GetIdempotencyKey() string {
	if r == nil {
		return ""
	}
	return r.IdempotencyKey
}

type GetPaymentUrlResponse struct {
	PaymentUrl string        `json:"paymentUrl"`
	Status     PaymentStatus `json:"status"`
	Payment    *Payment      `json:"payment"`
}

func (r *GetPaymentUrlResponse) GetPaymentUrl() string {
	if r == nil {
		return ""
	}
	return r.PaymentUrl
}

func (r *GetPaymentUrlResponse) GetStatus() PaymentStatus {
	if r == nil {
		return PaymentStatus_PAYMENT_STATUS_PENDING
	}
	return r.Status
}

func (r *GetPaymentUrlResponse) GetPayment() *Payment {
	if r == nil {
		return nil
	}
	return r.Payment
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}
