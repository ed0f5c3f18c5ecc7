package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

func NewCreatePaymentIntentRequestFromContext(ctx echo.Context) (*CreatePaymentIntentRequest, error) {
	var body CreatePaymentIntentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.IdempotencyKey = strings.TrimSpace(body.IdempotencyKey)
	body.OrderCode = strings.TrimSpace(body.OrderCode)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.RedirectUrl = strings.TrimSpace(body.RedirectUrl)

	return &body, nil
}

func (r *CreatePaymentIntentRequest) Validate() error {
	if strings.TrimSpace(r.GetIdempotencyKey()) == "" {
		return errors.New("idempotency_key is required")
	}
	if strings.TrimSpace(r.GetOrderCode()) == "" {
		return errors.New("order_code is required")
	}
	if r.GetAmountCents() <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if strings.ToUpper(strings.TrimSpace(r.GetCurrency())) != "VND" {
		return errors.New("currency must be VND")
	}
	switch r.GetProvider() {
	case ProviderType_PROVIDER_TYPE_ZALOPAY, ProviderType_PROVIDER_TYPE_PAYOS, ProviderType_PROVIDER_TYPE_VNPAY:
	default:
		return errors.New("provider is invalid")
	}
	if strings.TrimSpace(r.GetRedirectUrl()) == "" {
		return errors.New("redirect_url is required")
	}
	if r.GetTimeoutSeconds() <= 0 {
		return errors.New("timeout_seconds must be > 0")
	}

	return nil
}

func NewGetPaymentUrlRequestFromContext(ctx echo.Context) (*GetPaymentUrlRequest, error) {
	return &GetPaymentUrlRequest{
		IdempotencyKey: strings.TrimSpace(ctx.Param("idempotency_key")),
	}, nil
}

func (r *GetPaymentUrlRequest) Validate() error {
	if strings.TrimSpace(r.GetIdempotencyKey()) == "" {
		return errors.New("idempotency_key is required")
	}
	return nil
}
