package grpc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tixvn/ms-go-payments/app/entity"
	"github.com/tixvn/ms-go-payments/app/provider"
	"github.com/tixvn/ms-go-payments/app/repository"
	"github.com/tixvn/ms-go-payments/app/service"
	"github.com/tixvn/ms-go-payments/app/types"
)

type grpcPaymentRepo struct {
	createFn               func(ctx context.Context, payment *entity.Payment) error
	findByIdempotencyKeyFn func(ctx context.Context, key string) (*entity.Payment, error)
}

func (r *grpcPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if r.createFn != nil {
		return r.createFn(ctx, payment)
	}
	return nil
}

func (r *grpcPaymentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error) {
	if r.findByIdempotencyKeyFn != nil {
		return r.findByIdempotencyKeyFn(ctx, key)
	}
	return nil, nil
}

func (r *grpcPaymentRepo) FindByOrderCode(context.Context, string) (*entity.Payment, error) {
	return nil, nil
}

func (r *grpcPaymentRepo) FindByProviderTransactionID(context.Context, string) (*entity.Payment, error) {
	return nil, nil
}

func (r *grpcPaymentRepo) LockByID(context.Context, repository.DBTX, string) (*entity.Payment, error) {
	return nil, nil
}

func (r *grpcPaymentRepo) UpdateStatus(context.Context, repository.DBTX, string, int32, time.Time) error {
	return nil
}

type grpcOutboxRepo struct{}

func (grpcOutboxRepo) Append(context.Context, repository.DBTX, *entity.OutboxRecord) error {
	return nil
}

type grpcCallbackRepo struct{}

func (grpcCallbackRepo) Create(context.Context, *entity.PaymentCallback) error {
	return nil
}

type grpcTxManager struct{}

func (grpcTxManager) RunInTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	return fn(nil)
}

type grpcAdapter struct{}

func (grpcAdapter) Code() int32 {
	return int32(types.ProviderType_PROVIDER_TYPE_ZALOPAY)
}

func (grpcAdapter) CreatePaymentLink(context.Context, *provider.CreateLinkInput) (*provider.CreateLinkOutput, error) {
	return &provider.CreateLinkOutput{
		PaymentURL:            "https://pay.example/checkout/1",
		ProviderTransactionID: "251008_ORD-001",
	}, nil
}

func (grpcAdapter) HandleCallback(context.Context, []byte) (*provider.CallbackResult, error) {
	return nil, provider.ErrMalformedPayload
}

func newGRPCServerForTest(repo *grpcPaymentRepo) *Server {
	logger := logrus.NewEntry(logrus.New())
	logger.Logger.SetLevel(logrus.PanicLevel)
	svc := service.NewPaymentService(repo, grpcOutboxRepo{}, grpcCallbackRepo{}, provider.NewRegistry(grpcAdapter{}), grpcTxManager{}, logger)
	return NewServer(svc)
}

func TestCreatePaymentIntentValidation(t *testing.T) {
	server := newGRPCServerForTest(&grpcPaymentRepo{})

	_, err := server.CreatePaymentIntent(context.Background(), &types.CreatePaymentIntentRequest{
		OrderCode: "ORD-001",
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestCreatePaymentIntentSuccess(t *testing.T) {
	server := newGRPCServerForTest(&grpcPaymentRepo{})

	resp, err := server.CreatePaymentIntent(context.Background(), &types.CreatePaymentIntentRequest{
		IdempotencyKey: "idem-1",
		OrderCode:      "ORD-001",
		AmountCents:    150000,
		Currency:       "VND",
		Provider:       types.ProviderType_PROVIDER_TYPE_ZALOPAY,
		RedirectUrl:    "https://tix.vn/return",
		TimeoutSeconds: 900,
	})
	if err != nil {
		t.Fatalf("create payment intent failed: %v", err)
	}
	if resp.GetPaymentUrl() != "https://pay.example/checkout/1" {
		t.Fatalf("unexpected top-level payment url: %s", resp.GetPaymentUrl())
	}
	if resp.GetPayment().GetPaymentUrl() != "https://pay.example/checkout/1" {
		t.Fatalf("unexpected payment url: %s", resp.GetPayment().GetPaymentUrl())
	}
}

func TestCreatePaymentIntentRejectsNonVNDCurrency(t *testing.T) {
	server := newGRPCServerForTest(&grpcPaymentRepo{})

	_, err := server.CreatePaymentIntent(context.Background(), &types.CreatePaymentIntentRequest{
		IdempotencyKey: "idem-1",
		OrderCode:      "ORD-001",
		AmountCents:    150000,
		Currency:       "USD",
		Provider:       types.ProviderType_PROVIDER_TYPE_ZALOPAY,
		RedirectUrl:    "https://tix.vn/return",
		TimeoutSeconds: 900,
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for USD currency, got %v", err)
	}
}

func TestCreatePaymentIntentRejectsZeroTimeout(t *testing.T) {
	server := newGRPCServerForTest(&grpcPaymentRepo{})

	_, err := server.CreatePaymentIntent(context.Background(), &types.CreatePaymentIntentRequest{
		IdempotencyKey: "idem-1",
		OrderCode:      "ORD-001",
		AmountCents:    150000,
		Currency:       "VND",
		Provider:       types.ProviderType_PROVIDER_TYPE_ZALOPAY,
		RedirectUrl:    "https://tix.vn/return",
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for zero timeout, got %v", err)
	}
}

func TestCreatePaymentIntentUnsupportedProvider(t *testing.T) {
	server := newGRPCServerForTest(&grpcPaymentRepo{})

	_, err := server.CreatePaymentIntent(context.Background(), &types.CreatePaymentIntentRequest{
		IdempotencyKey: "idem-1",
		OrderCode:      "ORD-001",
		AmountCents:    150000,
		Currency:       "VND",
		Provider:       types.ProviderType_PROVIDER_TYPE_PAYOS,
		RedirectUrl:    "https://tix.vn/return",
		TimeoutSeconds: 900,
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for unsupported provider, got %v", err)
	}
}

func TestGetPaymentUrlNotFoundCarriesBusinessCode(t *testing.T) {
	server := newGRPCServerForTest(&grpcPaymentRepo{})

	_, err := server.GetPaymentUrlByIdempotencyKey(context.Background(), &types.GetPaymentUrlRequest{
		IdempotencyKey: "missing",
	})
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if !strings.HasPrefix(st.Message(), "20000:") {
		t.Fatalf("expected business code prefix, got %q", st.Message())
	}
}

func TestGetPaymentUrlSuccess(t *testing.T) {
	paymentURL := "https://pay.example/checkout/1"
	repo := &grpcPaymentRepo{
		findByIdempotencyKeyFn: func(_ context.Context, key string) (*entity.Payment, error) {
			return &entity.Payment{
				ID:             "pay-1",
				IdempotencyKey: key,
				PaymentURL:     &paymentURL,
				Status:         int32(types.PaymentStatus_PAYMENT_STATUS_PENDING),
			}, nil
		},
	}
	server := newGRPCServerForTest(repo)

	resp, err := server.GetPaymentUrlByIdempotencyKey(context.Background(), &types.GetPaymentUrlRequest{
		IdempotencyKey: "idem-1",
	})
	if err != nil {
		t.Fatalf("get payment url failed: %v", err)
	}
	if resp.GetPaymentUrl() != paymentURL {
		t.Fatalf("unexpected top-level payment url: %s", resp.GetPaymentUrl())
	}
	if resp.GetStatus() != types.PaymentStatus_PAYMENT_STATUS_PENDING {
		t.Fatalf("unexpected top-level status: %v", resp.GetStatus())
	}
	if resp.GetPayment().GetPaymentUrl() != paymentURL {
		t.Fatalf("unexpected payment url: %s", resp.GetPayment().GetPaymentUrl())
	}
}

func TestHealth(t *testing.T) {
	server := newGRPCServerForTest(&grpcPaymentRepo{})

	resp, err := server.Health(context.Background(), &types.HealthRequest{})
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("unexpected health status: %s", resp.Status)
	}
}
