package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/tixvn/ms-go-payments/app/entity"
	"github.com/tixvn/ms-go-payments/app/provider"
	"github.com/tixvn/ms-go-payments/app/types"
)

const callbackErrorMaxBytes = 1024

// HandleProviderCallback verifies a raw provider callback, drives the payment
// lifecycle, and returns the provider-shaped acknowledgement body. The ingress
// answers HTTP 200 with that body no matter what happened; providers retry on
// anything else.
func (s *PaymentService) HandleProviderCallback(ctx context.Context, providerCode int32, raw []byte) (interface{}, error) {
	adapter, err := s.providerReg.Get(providerCode)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	providerName := types.ProviderType(providerCode).String()
	logger := s.logger.WithField("provider", providerName)

	result, callbackErr := adapter.HandleCallback(ctx, raw)
	if callbackErr != nil {
		logger.WithError(callbackErr).Warn("provider callback rejected")
		s.persistCallback(ctx, nil, providerName, result, raw, entity.CallbackStatusRejected, callbackErr.Error())
		if result == nil {
			return nil, ErrCallbackRejected
		}
		return result.Response, nil
	}

	var payment *entity.Payment
	var transitionErr error
	switch {
	case result.Success:
		payment, transitionErr = s.CompleteByProviderTxID(ctx, result.ProviderTransactionID)
	case strings.TrimSpace(result.ProviderTransactionID) != "":
		payment, transitionErr = s.FailByProviderTxID(ctx, result.ProviderTransactionID)
	default:
		logger.Warn("verified callback carries no provider transaction id, nothing to update")
	}

	status := entity.CallbackStatusProcessed
	errorMessage := ""
	if transitionErr != nil {
		switch {
		case errors.Is(transitionErr, ErrPaymentNotFound):
			logger.WithField("provider_transaction_id", result.ProviderTransactionID).
				Warn("callback references unknown payment")
		case errors.Is(transitionErr, ErrStateConflict):
			logger.WithField("provider_transaction_id", result.ProviderTransactionID).
				Warn("callback conflicts with recorded terminal status")
		default:
			logger.WithError(transitionErr).Error("callback lifecycle update failed")
		}
		status = entity.CallbackStatusRejected
		errorMessage = transitionErr.Error()
	}

	var paymentID *string
	if payment != nil {
		paymentID = &payment.ID
	}
	s.persistCallback(ctx, paymentID, providerName, result, raw, status, errorMessage)

	return result.Response, nil
}

// persistCallback writes the audit row. Best effort: a failed insert never
// changes the provider-facing response.
func (s *PaymentService) persistCallback(
	ctx context.Context,
	paymentID *string,
	providerName string,
	result *provider.CallbackResult,
	raw []byte,
	status int32,
	errorMessage string,
) {
	callback := &entity.PaymentCallback{
		PaymentID:   paymentID,
		Provider:    providerName,
		PayloadJSON: string(raw),
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	if result != nil {
		callback.ProviderTransactionID = result.ProviderTransactionID
	}
	if trimmed := strings.TrimSpace(errorMessage); trimmed != "" {
		msg := truncate(trimmed, callbackErrorMaxBytes)
		callback.Error = &msg
	}

	if err := s.callbackRepo.Create(ctx, callback); err != nil {
		s.logger.WithError(err).Error("failed to persist callback audit record")
	}
}

// InferProviderCode guesses the provider of a callback posted to the bare
// webhook route from the body shape. ZaloPay sends {data, mac, type}; payOS
// sends {code, desc, data, signature}.
func InferProviderCode(raw []byte) (int32, bool) {
	var probe struct {
		MAC       *string `json:"mac"`
		Type      *int    `json:"type"`
		Code      *string `json:"code"`
		Signature *string `json:"signature"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, false
	}

	if probe.MAC != nil && probe.Type != nil {
		return int32(types.ProviderType_PROVIDER_TYPE_ZALOPAY), true
	}
	if probe.Signature != nil && probe.Code != nil {
		return int32(types.ProviderType_PROVIDER_TYPE_PAYOS), true
	}

	return 0, false
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
