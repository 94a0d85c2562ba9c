package http

import (
	"errors"
	"eventhub/purchase"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
)

func statusFor(kind purchase.Kind) int {
	switch kind {
	case purchase.KindInvalidArgument,
		purchase.KindCapacityExceeded,
		purchase.KindPaymentNotSettled:
		return http.StatusBadRequest
	case purchase.KindNotFound:
		return http.StatusNotFound
	case purchase.KindAmountMismatch,
		purchase.KindIntentConflict,
		purchase.KindPartialCommitCompensated:
		return http.StatusConflict
	case purchase.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func purchaseError(err error) error {
	var purchaseErr *purchase.Error
	if !errors.As(err, &purchaseErr) {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: err,
		}
	}

	return &echo.HTTPError{
		Code:     statusFor(purchaseErr.Kind),
		Message:  purchaseErr.Message,
		Internal: err,
	}
}

// handleError renders every error as {"msg": ...}. Internal causes are
// logged and never sent to the client.
func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		msg = fmt.Sprint(httpErr.Message)
		if httpErr.Internal != nil {
			err = httpErr.Internal
		}
	}

	logger := log.FromContext(c.Request().Context()).WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		logger.Error("Request failed")
	} else {
		logger.Info("Request rejected")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, messageResponse{Msg: msg})
	}
	if err != nil {
		log.FromContext(c.Request().Context()).WithError(err).Error("Failed to write error response")
	}
}
