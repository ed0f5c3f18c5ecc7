package provider

import (
	"context"
	"fmt"

	"github.com/tixvn/ms-go-payments/app/types"
)

// VNPayProvider reserves the VNPAY wire value. Both operations fail until the
// integration lands.
type VNPayProvider struct{}

func NewVNPayProvider() *VNPayProvider {
	return &VNPayProvider{}
}

func (p *VNPayProvider) Code() int32 {
	return int32(types.ProviderType_PROVIDER_TYPE_VNPAY)
}

func (p *VNPayProvider) CreatePaymentLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error) {
	return nil, fmt.Errorf("%w: vnpay", ErrProviderNotSupported)
}

func (p *VNPayProvider) HandleCallback(ctx context.Context, raw []byte) (*CallbackResult, error) {
	return nil, fmt.Errorf("%w: vnpay", ErrProviderNotSupported)
}
