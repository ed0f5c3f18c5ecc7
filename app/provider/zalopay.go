package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tixvn/ms-go-payments/app/types"
)

const zaloPaySandboxEndpoint = "https://sb-openapi.zalopay.vn/v2"

type ZaloPayConfig struct {
	AppID       string
	Key1        string
	Key2        string
	Endpoint    string
	CallbackURL string
	HTTPTimeout time.Duration
}

type ZaloPayProvider struct {
	cfg    ZaloPayConfig
	client *http.Client
	now    func() time.Time
}

func NewZaloPayProvider(cfg ZaloPayConfig) *ZaloPayProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = zaloPaySandboxEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	return &ZaloPayProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (p *ZaloPayProvider) Code() int32 {
	return int32(types.ProviderType_PROVIDER_TYPE_ZALOPAY)
}

type zaloPayCreateOrder struct {
	AppID         string `json:"app_id"`
	AppTransID    string `json:"app_trans_id"`
	AppUser       string `json:"app_user"`
	Amount        int64  `json:"amount"`
	AppTime       int64  `json:"app_time"`
	EmbedData     string `json:"embed_data"`
	Item          string `json:"item"`
	Description   string `json:"description"`
	BankCode      string `json:"bank_code"`
	CallbackURL   string `json:"callback_url,omitempty"`
	ExpireSeconds int32  `json:"expire_duration_seconds,omitempty"`
	MAC           string `json:"mac"`
}

type zaloPayCreateResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	ZPTransToken  string `json:"zp_trans_token"`
}

func (p *ZaloPayProvider) CreatePaymentLink(ctx context.Context, input *CreateLinkInput) (*CreateLinkOutput, error) {
	if strings.TrimSpace(p.cfg.AppID) == "" || strings.TrimSpace(p.cfg.Key1) == "" {
		return nil, fmt.Errorf("%w: zalopay credentials are not configured", ErrProviderUnavailable)
	}

	now := p.now()
	appTransID := now.Format("060102") + "_" + input.OrderCode

	embedData, err := json.Marshal(map[string]string{"redirecturl": input.RedirectURL})
	if err != nil {
		return nil, err
	}

	order := &zaloPayCreateOrder{
		AppID:         p.cfg.AppID,
		AppTransID:    appTransID,
		AppUser:       "guest",
		Amount:        input.AmountCents,
		AppTime:       now.UnixMilli(),
		EmbedData:     string(embedData),
		Item:          "[]",
		Description:   "Order " + input.OrderCode,
		CallbackURL:   p.cfg.CallbackURL,
		ExpireSeconds: input.TimeoutSeconds,
	}
	order.MAC = p.createOrderMAC(order)

	response, err := p.sendCreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if response.ReturnCode != 1 {
		return nil, fmt.Errorf("%w: zalopay return_code=%d message=%s",
			ErrProviderRejected, response.ReturnCode, response.ReturnMessage)
	}

	return &CreateLinkOutput{
		PaymentURL:            response.OrderURL,
		ProviderTransactionID: appTransID,
	}, nil
}

type zaloPayCallback struct {
	Data string `json:"data"`
	MAC  string `json:"mac"`
	Type int    `json:"type"`
}

type zaloPayAck struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

func (p *ZaloPayProvider) HandleCallback(ctx context.Context, raw []byte) (*CallbackResult, error) {
	var callback zaloPayCallback
	if err := json.Unmarshal(raw, &callback); err != nil {
		return zaloPayReject("invalid callback body"), fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	expectedMAC := hmacSHA256Hex(p.cfg.Key2, callback.Data)
	if !hmac.Equal([]byte(expectedMAC), []byte(callback.MAC)) {
		return zaloPayReject("mac not equal"), ErrVerificationFailed
	}

	if callback.Type != 1 {
		return zaloPayReject("unsupported callback type"),
			fmt.Errorf("%w: callback type=%d", ErrMalformedPayload, callback.Type)
	}

	var data struct {
		AppTransID string `json:"app_trans_id"`
	}
	if err := json.Unmarshal([]byte(callback.Data), &data); err != nil {
		return zaloPayReject("invalid callback data"), fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(data.AppTransID) == "" {
		return zaloPayReject("missing app_trans_id"), fmt.Errorf("%w: missing app_trans_id", ErrMalformedPayload)
	}

	return &CallbackResult{
		Success:               true,
		ProviderTransactionID: data.AppTransID,
		Response:              &zaloPayAck{ReturnCode: 1, ReturnMessage: "Success"},
	}, nil
}

func zaloPayReject(message string) *CallbackResult {
	return &CallbackResult{
		Success:  false,
		Response: &zaloPayAck{ReturnCode: -1, ReturnMessage: message},
	}
}

// create-order MAC covers app_id|app_trans_id|app_user|amount|app_time|embed_data|item
// signed with key1; callbacks are signed with key2 over the raw data string.
func (p *ZaloPayProvider) createOrderMAC(order *zaloPayCreateOrder) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		order.AppID,
		order.AppTransID,
		order.AppUser,
		order.Amount,
		order.AppTime,
		order.EmbedData,
		order.Item,
	)
	return hmacSHA256Hex(p.cfg.Key1, data)
}

func (p *ZaloPayProvider) sendCreateOrder(ctx context.Context, order *zaloPayCreateOrder) (*zaloPayCreateResponse, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint+"/create", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("zalopay create order failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var response zaloPayCreateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

func hmacSHA256Hex(key, data string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
