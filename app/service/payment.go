package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tixvn/ms-go-payments/app/entity"
	"github.com/tixvn/ms-go-payments/app/events"
	"github.com/tixvn/ms-go-payments/app/provider"
	"github.com/tixvn/ms-go-payments/app/repository"
	"github.com/tixvn/ms-go-payments/app/types"
)

type createIntentRequest interface {
	GetIdempotencyKey() string
	GetOrderCode() string
	GetAmountCents() int64
	GetCurrency() string
	GetProvider() types.ProviderType
	GetRedirectUrl() string
	GetMetadata() map[string]string
	GetTimeoutSeconds() int32
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error)
	FindByOrderCode(ctx context.Context, orderCode string) (*entity.Payment, error)
	FindByProviderTransactionID(ctx context.Context, providerTxID string) (*entity.Payment, error)
	LockByID(ctx context.Context, tx repository.DBTX, id string) (*entity.Payment, error)
	UpdateStatus(ctx context.Context, tx repository.DBTX, id string, toStatus int32, at time.Time) error
}

type outboxRepository interface {
	Append(ctx context.Context, tx repository.DBTX, record *entity.OutboxRecord) error
}

type paymentCallbackRepository interface {
	Create(ctx context.Context, callback *entity.PaymentCallback) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(tx repository.DBTX) error) error
}

// PaymentService is the only writer of payment status. Every terminal
// transition locks the row and appends the outbox record in the same
// transaction.
type PaymentService struct {
	paymentRepo  paymentRepository
	outboxRepo   outboxRepository
	callbackRepo paymentCallbackRepository
	providerReg  *provider.Registry
	tx           txManager
	logger       *logrus.Entry
}

func NewPaymentService(
	paymentRepo paymentRepository,
	outboxRepo outboxRepository,
	callbackRepo paymentCallbackRepository,
	providerReg *provider.Registry,
	tx txManager,
	logger *logrus.Entry,
) *PaymentService {
	return &PaymentService{
		paymentRepo:  paymentRepo,
		outboxRepo:   outboxRepo,
		callbackRepo: callbackRepo,
		providerReg:  providerReg,
		tx:           tx,
		logger:       logger,
	}
}

func (s *PaymentService) CreateIntent(ctx context.Context, req createIntentRequest) (*entity.Payment, error) {
	key := strings.TrimSpace(req.GetIdempotencyKey())
	orderCode := strings.TrimSpace(req.GetOrderCode())
	if key == "" || orderCode == "" {
		return nil, ErrInvalidRequest
	}

	existing, err := s.paymentRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	adapter, err := s.providerReg.Get(int32(req.GetProvider()))
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	metadata := cloneMetadata(req.GetMetadata())
	output, err := adapter.CreatePaymentLink(ctx, &provider.CreateLinkInput{
		OrderCode:      orderCode,
		IdempotencyKey: key,
		AmountCents:    req.GetAmountCents(),
		Currency:       strings.ToUpper(strings.TrimSpace(req.GetCurrency())),
		RedirectURL:    strings.TrimSpace(req.GetRedirectUrl()),
		TimeoutSeconds: req.GetTimeoutSeconds(),
		Metadata:       metadata,
	})
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	now := time.Now().UTC()
	payment := &entity.Payment{
		ID:                    uuid.NewString(),
		OrderCode:             orderCode,
		IdempotencyKey:        key,
		AmountCents:           req.GetAmountCents(),
		Currency:              strings.ToUpper(strings.TrimSpace(req.GetCurrency())),
		Status:                int32(types.PaymentStatus_PAYMENT_STATUS_PENDING),
		Provider:              int32(req.GetProvider()),
		ProviderTransactionID: normalizeOptionalString(output.ProviderTransactionID),
		RedirectURL:           strings.TrimSpace(req.GetRedirectUrl()),
		PaymentURL:            normalizeOptionalString(output.PaymentURL),
		Metadata:              metadata,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			// lost a concurrent race for the same key; the winner's row is
			// the canonical intent
			winner, findErr := s.paymentRepo.FindByIdempotencyKey(ctx, key)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return winner, nil
			}
			return nil, err
		}
		if errors.Is(err, repository.ErrDuplicateOrderCode) {
			return nil, ErrOrderCodeInUse
		}
		return nil, err
	}

	return payment, nil
}

func (s *PaymentService) GetIntentByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidRequest
	}

	payment, err := s.paymentRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) CompleteByProviderTxID(ctx context.Context, providerTxID string) (*entity.Payment, error) {
	return s.transitionByProviderTxID(ctx, providerTxID,
		int32(types.PaymentStatus_PAYMENT_STATUS_COMPLETED), entity.EventTypePaymentCompleted)
}

func (s *PaymentService) FailByProviderTxID(ctx context.Context, providerTxID string) (*entity.Payment, error) {
	return s.transitionByProviderTxID(ctx, providerTxID,
		int32(types.PaymentStatus_PAYMENT_STATUS_FAILED), entity.EventTypePaymentFailed)
}

func (s *PaymentService) CancelByOrderCode(ctx context.Context, orderCode string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByOrderCode(ctx, strings.TrimSpace(orderCode))
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	return s.transition(ctx, payment.ID,
		int32(types.PaymentStatus_PAYMENT_STATUS_CANCELLED), entity.EventTypePaymentCancelled)
}

func (s *PaymentService) transitionByProviderTxID(ctx context.Context, providerTxID string, toStatus int32, eventType string) (*entity.Payment, error) {
	providerTxID = strings.TrimSpace(providerTxID)
	if providerTxID == "" {
		return nil, ErrInvalidRequest
	}

	payment, err := s.paymentRepo.FindByProviderTransactionID(ctx, providerTxID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	return s.transition(ctx, payment.ID, toStatus, eventType)
}

// transition moves a PENDING payment to a terminal status. Re-delivery of the
// same terminal status is a no-op; a different terminal status is a conflict.
func (s *PaymentService) transition(ctx context.Context, paymentID string, toStatus int32, eventType string) (*entity.Payment, error) {
	var result *entity.Payment

	err := s.tx.RunInTx(ctx, func(tx repository.DBTX) error {
		payment, err := s.paymentRepo.LockByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}

		if payment.Status == toStatus {
			result = payment
			return nil
		}
		if payment.Status != int32(types.PaymentStatus_PAYMENT_STATUS_PENDING) {
			return ErrStateConflict
		}

		now := time.Now().UTC()
		if err := s.paymentRepo.UpdateStatus(ctx, tx, payment.ID, toStatus, now); err != nil {
			if errors.Is(err, repository.ErrNotPending) {
				return ErrStateConflict
			}
			return err
		}

		payment.Status = toStatus
		payment.UpdatedAt = now
		stampTerminalTime(payment, toStatus, now)

		payload, err := json.Marshal(events.NewPaymentEventPayload(payment, eventType))
		if err != nil {
			return err
		}

		if err := s.outboxRepo.Append(ctx, tx, &entity.OutboxRecord{
			AggregateID:   payment.ID,
			AggregateType: entity.AggregateTypePayment,
			EventType:     eventType,
			PayloadJSON:   string(payload),
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func stampTerminalTime(payment *entity.Payment, status int32, at time.Time) {
	switch status {
	case int32(types.PaymentStatus_PAYMENT_STATUS_COMPLETED):
		payment.CompletedAt = &at
	case int32(types.PaymentStatus_PAYMENT_STATUS_FAILED):
		payment.FailedAt = &at
	case int32(types.PaymentStatus_PAYMENT_STATUS_CANCELLED):
		payment.CancelledAt = &at
	}
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
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
