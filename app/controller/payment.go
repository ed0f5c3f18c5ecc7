package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tixvn/ms-go-payments/app/factory"
	"github.com/tixvn/ms-go-payments/app/mapper"
	"github.com/tixvn/ms-go-payments/app/service"
	"github.com/tixvn/ms-go-payments/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePaymentIntent(ctx echo.Context) error {
	req, err := types.NewCreatePaymentIntentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, 0, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, 0, err.Error())
	}

	item, err := c.paymentService.CreateIntent(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, 0, err.Error())
		case errors.Is(err, service.ErrOrderCodeInUse):
			return c.writeError(ctx, http.StatusConflict, 0, err.Error())
		default:
			c.logger.WithError(err).Error("Create payment intent failed")
			return c.writeError(ctx, http.StatusInternalServerError, 0, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.PaymentToCreateIntentResponse(item))
}

func (c *PaymentController) GetPaymentUrlByIdempotencyKey(ctx echo.Context) error {
	req, err := types.NewGetPaymentUrlRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, 0, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, 0, err.Error())
	}

	item, err := c.paymentService.GetIntentByIdempotencyKey(ctx.Request().Context(), req.GetIdempotencyKey())
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, types.ErrorCodePaymentNotFound, "payment not found")
		}
		c.logger.WithError(err).Error("Get payment url failed")
		return c.writeError(ctx, http.StatusInternalServerError, 0, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentToGetUrlResponse(item))
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, businessCode int32, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Code: businessCode, Message: message})
}
