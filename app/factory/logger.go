package factory

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func NewModuleLogger(module string) *logrus.Entry {
	return logrus.WithField("module", module)
}

// LoggerWithContext tags the entry with the request id carried by the echo
// request, falling back to the id the RequestID middleware generated.
func LoggerWithContext(logger *logrus.Entry, ctx echo.Context) *logrus.Entry {
	requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	if requestID == "" {
		requestID = strings.TrimSpace(ctx.Response().Header().Get(echo.HeaderXRequestID))
	}
	if requestID == "" {
		return logger
	}
	return logger.WithField("request_id", requestID)
}
