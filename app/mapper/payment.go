package mapper

import (
	"time"

	"github.com/tixvn/ms-go-payments/app/entity"
	"github.com/tixvn/ms-go-payments/app/types"
)

func PaymentToProto(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		Id:                    item.ID,
		OrderCode:             item.OrderCode,
		IdempotencyKey:        item.IdempotencyKey,
		AmountCents:           item.AmountCents,
		Currency:              item.Currency,
		Status:                types.PaymentStatus(item.Status),
		Provider:              types.ProviderType(item.Provider),
		ProviderTransactionId: derefString(item.ProviderTransactionID),
		PaymentUrl:            derefString(item.PaymentURL),
		RedirectUrl:           item.RedirectURL,
		Metadata:              cloneMetadata(item.Metadata),
		CreatedAt:             item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             item.UpdatedAt.UTC().Format(time.RFC3339),
		CompletedAt:           formatOptionalTime(item.CompletedAt),
		FailedAt:              formatOptionalTime(item.FailedAt),
		CancelledAt:           formatOptionalTime(item.CancelledAt),
	}
}

func PaymentToCreateIntentResponse(item *entity.Payment) *types.CreatePaymentIntentResponse {
	payment := PaymentToProto(item)
	return &types.CreatePaymentIntentResponse{
		PaymentUrl: payment.GetPaymentUrl(),
		Payment:    payment,
	}
}

func PaymentToGetUrlResponse(item *entity.Payment) *types.GetPaymentUrlResponse {
	payment := PaymentToProto(item)
	return &types.GetPaymentUrlResponse{
		PaymentUrl: payment.GetPaymentUrl(),
		Status:     payment.GetStatus(),
		Payment:    payment,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
