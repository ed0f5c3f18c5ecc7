package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	payos "github.com/payOSHQ/payos-lib-golang"

	"github.com/tixvn/ms-go-payments/app/types"
)

const payOSSuccessCode = "00"

type PayOSConfig struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
}

type PayOSProvider struct {
	cfg PayOSConfig
	now func() time.Time
}

// NewPayOSProvider initializes the shared payOS SDK client.
func NewPayOSProvider(cfg PayOSConfig) (*PayOSProvider, error) {
	if err := payos.Key(cfg.ClientID, cfg.APIKey, cfg.ChecksumKey); err != nil {
		return nil, fmt.Errorf("payos client init: %w", err)
	}
	return &PayOSProvider{cfg: cfg, now: time.Now}, nil
}

func (p *PayOSProvider) Code() int32 {
	return int32(types.ProviderType_PROVIDER_TYPE_PAYOS)
}

func (p *PayOSProvider) CreatePaymentLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error) {
	orderCode, err := payOSOrderCode(input.OrderCode, p.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	request := payos.CheckoutRequestType{
		OrderCode:   orderCode,
		Amount:      int(input.AmountCents),
		Description: payOSDescription(input.OrderCode),
		Items: []payos.Item{{
			Name:     input.OrderCode,
			Price:    int(input.AmountCents),
			Quantity: 1,
		}},
		CancelUrl: input.RedirectURL,
		ReturnUrl: input.RedirectURL,
	}

	response, err := payos.CreatePaymentLink(request)
	if err != nil {
		return nil, fmt.Errorf("%w: payos create link: %v", ErrProviderUnavailable, err)
	}

	return &CreateLinkOutput{
		PaymentURL:            response.CheckoutUrl,
		ProviderTransactionID: response.PaymentLinkId,
	}, nil
}

type payOSAck struct {
	Error   int         `json:"error"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func (p *PayOSProvider) HandleCallback(ctx context.Context, raw []byte) (*CallbackResult, error) {
	var body payos.WebhookType
	if err := json.Unmarshal(raw, &body); err != nil {
		return payOSReject("invalid webhook body"), fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	data, err := payos.VerifyPaymentWebhookData(body)
	if err != nil {
		return payOSReject("signature verification failed"), fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	return &CallbackResult{
		Success:               data.Code == payOSSuccessCode,
		ProviderTransactionID: data.PaymentLinkId,
		Response:              successPayOSAck(),
	}, nil
}

func successPayOSAck() *payOSAck {
	return &payOSAck{Error: 0, Message: "Success", Data: nil}
}

func payOSReject(message string) *CallbackResult {
	return &CallbackResult{
		Success:  false,
		Response: &payOSAck{Error: -1, Message: message, Data: nil},
	}
}

// payOS requires a numeric order code. The caller's order code is encoded as
// YYYYMMDD * 10^8 plus the base36 value of its last five alphanumeric
// characters. The encoding is lossy; the webhook joins back to the payment
// through the stored payment link id, not through this number.
func payOSOrderCode(orderCode string, day time.Time) (int64, error) {
	var alnum []rune
	for _, r := range orderCode {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alnum = append(alnum, r)
		}
	}
	if len(alnum) == 0 {
		return 0, fmt.Errorf("order code %q has no alphanumeric characters", orderCode)
	}
	if len(alnum) > 5 {
		alnum = alnum[len(alnum)-5:]
	}

	suffix, err := strconv.ParseInt(string(alnum), 36, 64)
	if err != nil {
		return 0, fmt.Errorf("order code suffix %q is not base36: %w", string(alnum), err)
	}

	datePart, err := strconv.ParseInt(day.Format("20060102"), 10, 64)
	if err != nil {
		return 0, err
	}

	return datePart*100_000_000 + suffix, nil
}

// payOS caps the checkout description length.
func payOSDescription(orderCode string) string {
	description := "Order " + strings.TrimSpace(orderCode)
	if len(description) > 25 {
		description = description[:25]
	}
	return description
}
