package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tixvn/ms-go-payments/app/factory"
	"github.com/tixvn/ms-go-payments/app/service"
	"github.com/tixvn/ms-go-payments/app/types"
)

type WebhookController struct {
	paymentService *service.PaymentService
	logger         *logrus.Entry
}

func NewWebhookController(paymentService *service.PaymentService) *WebhookController {
	return &WebhookController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("webhook-controller"),
	}
}

// HandleProviderWebhook serves POST /webhook/:provider. The response is
// always HTTP 200 with the provider-shaped body the adapter produced;
// returning anything else makes the provider retry forever.
func (c *WebhookController) HandleProviderWebhook(ctx echo.Context) error {
	code, ok := types.ParseProviderType(ctx.Param("provider"))
	if !ok {
		return ctx.JSON(http.StatusNotFound, &types.ErrorResponse{Message: "unknown provider"})
	}

	return c.handle(ctx, int32(code))
}

// HandleWebhook serves the legacy bare POST /webhook route and infers the
// provider from the body shape.
func (c *WebhookController) HandleWebhook(ctx echo.Context) error {
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Message: "unreadable request body"})
	}

	code, ok := service.InferProviderCode(raw)
	if !ok {
		factory.LoggerWithContext(c.logger, ctx).Warn("could not infer provider from webhook body")
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Message: "unrecognized callback body"})
	}

	return c.dispatch(ctx, code, raw)
}

func (c *WebhookController) handle(ctx echo.Context, providerCode int32) error {
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Message: "unreadable request body"})
	}

	return c.dispatch(ctx, providerCode, raw)
}

func (c *WebhookController) dispatch(ctx echo.Context, providerCode int32, raw []byte) error {
	response, err := c.paymentService.HandleProviderCallback(ctx.Request().Context(), providerCode, raw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProviderUnsupported):
			return ctx.JSON(http.StatusNotFound, &types.ErrorResponse{Message: "unknown provider"})
		case errors.Is(err, service.ErrCallbackRejected):
			return ctx.JSON(http.StatusOK, &types.ErrorResponse{Message: "callback rejected"})
		default:
			c.logger.WithError(err).Error("Handle provider webhook failed")
			return ctx.JSON(http.StatusInternalServerError, &types.ErrorResponse{Message: "internal server error"})
		}
	}

	return ctx.JSON(http.StatusOK, response)
}
