package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tixvn/ms-go-payments/app/entity"
	"github.com/tixvn/ms-go-payments/app/provider"
	"github.com/tixvn/ms-go-payments/app/repository"
	"github.com/tixvn/ms-go-payments/app/types"
)

type servicePaymentRepo struct {
	payments map[string]*entity.Payment

	createErr     error
	hideFirstFind bool
	findCalls     int
}

func newServicePaymentRepo() *servicePaymentRepo {
	return &servicePaymentRepo{payments: map[string]*entity.Payment{}}
}

func (r *servicePaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, item := range r.payments {
		if item.IdempotencyKey == payment.IdempotencyKey {
			return repository.ErrDuplicateIdempotencyKey
		}
		if item.OrderCode == payment.OrderCode {
			return repository.ErrDuplicateOrderCode
		}
	}
	copyItem := *payment
	r.payments[payment.ID] = &copyItem
	return nil
}

func (r *servicePaymentRepo) FindByIdempotencyKey(_ context.Context, key string) (*entity.Payment, error) {
	r.findCalls++
	if r.hideFirstFind && r.findCalls == 1 {
		return nil, nil
	}
	for _, item := range r.payments {
		if item.IdempotencyKey == key {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *servicePaymentRepo) FindByOrderCode(_ context.Context, orderCode string) (*entity.Payment, error) {
	for _, item := range r.payments {
		if item.OrderCode == orderCode {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *servicePaymentRepo) FindByProviderTransactionID(_ context.Context, providerTxID string) (*entity.Payment, error) {
	for _, item := range r.payments {
		if item.ProviderTransactionID != nil && *item.ProviderTransactionID == providerTxID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *servicePaymentRepo) LockByID(_ context.Context, _ repository.DBTX, id string) (*entity.Payment, error) {
	item, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePaymentRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id string, toStatus int32, at time.Time) error {
	item, ok := r.payments[id]
	if !ok || item.Status != int32(types.PaymentStatus_PAYMENT_STATUS_PENDING) {
		return repository.ErrNotPending
	}
	item.Status = toStatus
	item.UpdatedAt = at
	switch toStatus {
	case int32(types.PaymentStatus_PAYMENT_STATUS_COMPLETED):
		item.CompletedAt = &at
	case int32(types.PaymentStatus_PAYMENT_STATUS_FAILED):
		item.FailedAt = &at
	case int32(types.PaymentStatus_PAYMENT_STATUS_CANCELLED):
		item.CancelledAt = &at
	}
	return nil
}

type serviceOutboxRepo struct {
	records []*entity.OutboxRecord
}

func (r *serviceOutboxRepo) Append(_ context.Context, _ repository.DBTX, record *entity.OutboxRecord) error {
	copyItem := *record
	copyItem.ID = uint64(len(r.records) + 1)
	r.records = append(r.records, &copyItem)
	return nil
}

type serviceCallbackRepo struct {
	callbacks []*entity.PaymentCallback
}

func (r *serviceCallbackRepo) Create(_ context.Context, callback *entity.PaymentCallback) error {
	copyItem := *callback
	r.callbacks = append(r.callbacks, &copyItem)
	return nil
}

type serviceTxManager struct{}

func (serviceTxManager) RunInTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	return fn(nil)
}

type serviceAdapter struct {
	code         int32
	createOutput *provider.CreateLinkOutput
	createErr    error
	createCalls  int

	callbackResult *provider.CallbackResult
	callbackErr    error
}

func (a *serviceAdapter) Code() int32 {
	return a.code
}

func (a *serviceAdapter) CreatePaymentLink(context.Context, *provider.CreateLinkInput) (*provider.CreateLinkOutput, error) {
	a.createCalls++
	if a.createErr != nil {
		return nil, a.createErr
	}
	if a.createOutput != nil {
		return a.createOutput, nil
	}
	return &provider.CreateLinkOutput{
		PaymentURL:            "https://pay.example/checkout/1",
		ProviderTransactionID: "251008_ORD-001",
	}, nil
}

func (a *serviceAdapter) HandleCallback(context.Context, []byte) (*provider.CallbackResult, error) {
	return a.callbackResult, a.callbackErr
}

func newPaymentServiceForTest(repo *servicePaymentRepo, outboxRepo *serviceOutboxRepo, callbackRepo *serviceCallbackRepo, adapters ...provider.Adapter) *PaymentService {
	logger := logrus.NewEntry(logrus.New())
	logger.Logger.SetLevel(logrus.PanicLevel)
	return NewPaymentService(repo, outboxRepo, callbackRepo, provider.NewRegistry(adapters...), serviceTxManager{}, logger)
}

func createIntentRequestFixture() *types.CreatePaymentIntentRequest {
	return &types.CreatePaymentIntentRequest{
		IdempotencyKey: "idem-1",
		OrderCode:      "ORD-001",
		AmountCents:    150000,
		Currency:       "VND",
		Provider:       types.ProviderType_PROVIDER_TYPE_ZALOPAY,
		RedirectUrl:    "https://tix.vn/return",
	}
}

func TestCreateIntentIdempotentByKey(t *testing.T) {
	repo := newServicePaymentRepo()
	adapter := &serviceAdapter{code: 0}
	svc := newPaymentServiceForTest(repo, &serviceOutboxRepo{}, &serviceCallbackRepo{}, adapter)

	first, err := svc.CreateIntent(context.Background(), createIntentRequestFixture())
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if first.Status != int32(types.PaymentStatus_PAYMENT_STATUS_PENDING) {
		t.Fatalf("expected pending status, got %d", first.Status)
	}
	if first.PaymentURL == nil || *first.PaymentURL == "" {
		t.Fatal("expected payment url from adapter")
	}

	second, err := svc.CreateIntent(context.Background(), createIntentRequestFixture())
	if err != nil {
		t.Fatalf("second create intent failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same payment for idempotent request, first=%s second=%s", first.ID, second.ID)
	}
	if adapter.createCalls != 1 {
		t.Fatalf("expected a single provider call, got %d", adapter.createCalls)
	}
}

func TestCreateIntentRequiresKeyAndOrderCode(t *testing.T) {
	svc := newPaymentServiceForTest(newServicePaymentRepo(), &serviceOutboxRepo{}, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	req := createIntentRequestFixture()
	req.IdempotencyKey = "  "
	if _, err := svc.CreateIntent(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreateIntentUnsupportedProvider(t *testing.T) {
	svc := newPaymentServiceForTest(newServicePaymentRepo(), &serviceOutboxRepo{}, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	req := createIntentRequestFixture()
	req.Provider = types.ProviderType_PROVIDER_TYPE_PAYOS
	if _, err := svc.CreateIntent(context.Background(), req); !errors.Is(err, ErrProviderUnsupported) {
		t.Fatalf("expected ErrProviderUnsupported, got %v", err)
	}
}

func TestCreateIntentAbsorbsDuplicateKeyRace(t *testing.T) {
	repo := newServicePaymentRepo()
	repo.hideFirstFind = true
	txID := "251008_ORD-001"
	repo.payments["winner"] = &entity.Payment{
		ID:                    "winner",
		IdempotencyKey:        "idem-1",
		OrderCode:             "ORD-001",
		Status:                int32(types.PaymentStatus_PAYMENT_STATUS_PENDING),
		ProviderTransactionID: &txID,
	}
	svc := newPaymentServiceForTest(repo, &serviceOutboxRepo{}, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	payment, err := svc.CreateIntent(context.Background(), createIntentRequestFixture())
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if payment.ID != "winner" {
		t.Fatalf("expected race winner to be returned, got %s", payment.ID)
	}
}

func TestCreateIntentDuplicateOrderCode(t *testing.T) {
	repo := newServicePaymentRepo()
	repo.payments["other"] = &entity.Payment{
		ID:             "other",
		IdempotencyKey: "idem-other",
		OrderCode:      "ORD-001",
	}
	svc := newPaymentServiceForTest(repo, &serviceOutboxRepo{}, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	if _, err := svc.CreateIntent(context.Background(), createIntentRequestFixture()); !errors.Is(err, ErrOrderCodeInUse) {
		t.Fatalf("expected ErrOrderCodeInUse, got %v", err)
	}
}

func TestGetIntentByIdempotencyKeyNotFound(t *testing.T) {
	svc := newPaymentServiceForTest(newServicePaymentRepo(), &serviceOutboxRepo{}, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	if _, err := svc.GetIntentByIdempotencyKey(context.Background(), "missing"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func seedPendingPayment(repo *servicePaymentRepo) *entity.Payment {
	txID := "251008_ORD-001"
	payment := &entity.Payment{
		ID:                    "pay-1",
		OrderCode:             "ORD-001",
		IdempotencyKey:        "idem-1",
		AmountCents:           150000,
		Currency:              "VND",
		Status:                int32(types.PaymentStatus_PAYMENT_STATUS_PENDING),
		Provider:              int32(types.ProviderType_PROVIDER_TYPE_ZALOPAY),
		ProviderTransactionID: &txID,
		CreatedAt:             time.Now().UTC().Add(-time.Hour),
		UpdatedAt:             time.Now().UTC().Add(-time.Hour),
	}
	repo.payments[payment.ID] = payment
	return payment
}

func TestCompleteByProviderTxIDAppendsOutboxRecord(t *testing.T) {
	repo := newServicePaymentRepo()
	seedPendingPayment(repo)
	outboxRepo := &serviceOutboxRepo{}
	svc := newPaymentServiceForTest(repo, outboxRepo, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	payment, err := svc.CompleteByProviderTxID(context.Background(), "251008_ORD-001")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if payment.Status != int32(types.PaymentStatus_PAYMENT_STATUS_COMPLETED) {
		t.Fatalf("expected completed status, got %d", payment.Status)
	}
	if payment.CompletedAt == nil {
		t.Fatal("expected completed_at to be stamped")
	}

	if len(outboxRepo.records) != 1 {
		t.Fatalf("expected one outbox record, got %d", len(outboxRepo.records))
	}
	record := outboxRepo.records[0]
	if record.EventType != entity.EventTypePaymentCompleted {
		t.Fatalf("unexpected event type: %s", record.EventType)
	}
	if record.AggregateID != "pay-1" || record.AggregateType != entity.AggregateTypePayment {
		t.Fatalf("unexpected aggregate: %s/%s", record.AggregateType, record.AggregateID)
	}
	if !strings.Contains(record.PayloadJSON, `"payment_id":"pay-1"`) {
		t.Fatalf("payload missing payment id: %s", record.PayloadJSON)
	}
	if !strings.Contains(record.PayloadJSON, `"completed_at"`) {
		t.Fatalf("payload missing completed_at: %s", record.PayloadJSON)
	}
}

func TestCompleteDuplicateTerminalIsNoOp(t *testing.T) {
	repo := newServicePaymentRepo()
	payment := seedPendingPayment(repo)
	payment.Status = int32(types.PaymentStatus_PAYMENT_STATUS_COMPLETED)
	outboxRepo := &serviceOutboxRepo{}
	svc := newPaymentServiceForTest(repo, outboxRepo, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	result, err := svc.CompleteByProviderTxID(context.Background(), "251008_ORD-001")
	if err != nil {
		t.Fatalf("duplicate complete should be a no-op, got %v", err)
	}
	if result.Status != int32(types.PaymentStatus_PAYMENT_STATUS_COMPLETED) {
		t.Fatalf("unexpected status: %d", result.Status)
	}
	if len(outboxRepo.records) != 0 {
		t.Fatalf("duplicate terminal must not append events, got %d", len(outboxRepo.records))
	}
}

func TestCompleteConflictingTerminalStatus(t *testing.T) {
	repo := newServicePaymentRepo()
	payment := seedPendingPayment(repo)
	payment.Status = int32(types.PaymentStatus_PAYMENT_STATUS_FAILED)
	outboxRepo := &serviceOutboxRepo{}
	svc := newPaymentServiceForTest(repo, outboxRepo, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	if _, err := svc.CompleteByProviderTxID(context.Background(), "251008_ORD-001"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
	if len(outboxRepo.records) != 0 {
		t.Fatalf("conflicting transition must not append events, got %d", len(outboxRepo.records))
	}
}

func TestCompleteUnknownProviderTransactionID(t *testing.T) {
	svc := newPaymentServiceForTest(newServicePaymentRepo(), &serviceOutboxRepo{}, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	if _, err := svc.CompleteByProviderTxID(context.Background(), "nope"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestCancelByOrderCode(t *testing.T) {
	repo := newServicePaymentRepo()
	seedPendingPayment(repo)
	outboxRepo := &serviceOutboxRepo{}
	svc := newPaymentServiceForTest(repo, outboxRepo, &serviceCallbackRepo{}, &serviceAdapter{code: 0})

	payment, err := svc.CancelByOrderCode(context.Background(), "ORD-001")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if payment.Status != int32(types.PaymentStatus_PAYMENT_STATUS_CANCELLED) {
		t.Fatalf("expected cancelled status, got %d", payment.Status)
	}
	if len(outboxRepo.records) != 1 || outboxRepo.records[0].EventType != entity.EventTypePaymentCancelled {
		t.Fatalf("expected one PaymentCancelled record, got %+v", outboxRepo.records)
	}
}
