package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tixvn/ms-go-payments/app/mapper"
	"github.com/tixvn/ms-go-payments/app/service"
	"github.com/tixvn/ms-go-payments/app/types"
)

type Server struct {
	paymentService *service.PaymentService
}

func NewServer(paymentService *service.PaymentService) *Server {
	return &Server{paymentService: paymentService}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) CreatePaymentIntent(ctx context.Context, req *types.CreatePaymentIntentRequest) (*types.CreatePaymentIntentResponse, error) {
	l := loggerWithContext(ctx)
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Create payment intent validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.CreateIntent(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, service.ErrOrderCodeInUse):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		default:
			l.WithError(err).Error("Create payment intent failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return mapper.PaymentToCreateIntentResponse(item), nil
}

func (s *Server) GetPaymentUrlByIdempotencyKey(ctx context.Context, req *types.GetPaymentUrlRequest) (*types.GetPaymentUrlResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.GetIntentByIdempotencyKey(ctx, req.GetIdempotencyKey())
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return nil, status.Error(codes.NotFound, businessMessage(types.ErrorCodePaymentNotFound, "payment not found"))
		}
		loggerWithContext(ctx).WithError(err).Error("Get payment url failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return mapper.PaymentToGetUrlResponse(item), nil
}

// businessMessage prefixes the status message with the business error code so
// callers can branch without parsing free text positions.
func businessMessage(code int32, message string) string {
	return fmt.Sprintf("%d: %s", code, message)
}
