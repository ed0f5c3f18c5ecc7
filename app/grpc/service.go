package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/tixvn/ms-go-payments/app/types"
)

const ServiceName = "payments.v1.PaymentsService"

type PaymentsServiceServer interface {
	CreatePaymentIntent(ctx context.Context, req *types.CreatePaymentIntentRequest) (*types.CreatePaymentIntentResponse, error)
	GetPaymentUrlByIdempotencyKey(ctx context.Context, req *types.GetPaymentUrlRequest) (*types.GetPaymentUrlResponse, error)
	Health(ctx context.Context, req *types.HealthRequest) (*types.HealthResponse, error)
}

func RegisterPaymentsServiceServer(registrar grpc.ServiceRegistrar, srv PaymentsServiceServer) {
	registrar.RegisterService(&paymentsServiceDesc, srv)
}

var paymentsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreatePaymentIntent", Handler: createPaymentIntentHandler},
		{MethodName: "GetPaymentUrlByIdempotencyKey", Handler: getPaymentUrlHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func createPaymentIntentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(types.CreatePaymentIntentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServiceServer).CreatePaymentIntent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CreatePaymentIntent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentsServiceServer).CreatePaymentIntent(ctx, req.(*types.CreatePaymentIntentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getPaymentUrlHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(types.GetPaymentUrlRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServiceServer).GetPaymentUrlByIdempotencyKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetPaymentUrlByIdempotencyKey"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentsServiceServer).GetPaymentUrlByIdempotencyKey(ctx, req.(*types.GetPaymentUrlRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(types.HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServiceServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Health"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentsServiceServer).Health(ctx, req.(*types.HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}
