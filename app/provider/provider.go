package provider

import (
	"context"
	"errors"
)

var (
	ErrProviderNotSupported = errors.New("provider is not supported")
	ErrProviderUnavailable  = errors.New("provider is unavailable")
	ErrProviderRejected     = errors.New("provider rejected the request")
	ErrVerificationFailed   = errors.New("callback verification failed")
	ErrMalformedPayload     = errors.New("malformed callback payload")
)

type CreateLinkInput struct {
	OrderCode      string
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	RedirectURL    string
	TimeoutSeconds int32
	Metadata       map[string]string
}

type CreateLinkOutput struct {
	PaymentURL            string
	ProviderTransactionID string
}

// CallbackResult is what an adapter distills from a raw provider callback.
// Response is the provider-shaped acknowledgement body; the ingress returns
// it verbatim with HTTP 200 whether or not the callback was accepted.
type CallbackResult struct {
	Success               bool
	ProviderTransactionID string
	Response              interface{}
}

// HandleCallback returns a non-nil result whenever it can produce an
// acknowledgement body, even alongside a verification or parse error.
type Adapter interface {
	Code() int32
	CreatePaymentLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error)
	HandleCallback(ctx context.Context, raw []byte) (*CallbackResult, error)
}
