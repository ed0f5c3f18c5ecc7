package provider

import (
	"context"
	"errors"
	"testing"
)

func TestVNPayNotSupported(t *testing.T) {
	p := NewVNPayProvider()

	if _, err := p.CreatePaymentLink(context.Background(), &CreateLinkInput{OrderCode: "ORD1"}); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}
	if _, err := p.HandleCallback(context.Background(), []byte(`{}`)); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry(NewVNPayProvider())

	if _, err := registry.Get(2); err != nil {
		t.Fatalf("expected registered adapter, got %v", err)
	}
	if _, err := registry.Get(99); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}
}
