package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"weather-proxy/internal/models"
	"weather-proxy/pkg/httpserver"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeValidation            = "validation_error"
	CodeUpstreamUnavailable   = "upstream_unavailable"
	CodeUpstreamTimeout       = "upstream_timeout"
	CodeUpstreamRejected      = "upstream_rejected"
	CodeUpstreamError         = "upstream_error"
	CodeUpstreamProtocolError = "upstream_protocol_error"
	CodeInternal              = "internal_error"
)

const maxDiagnostic = 200

// translateError maps a pipeline error to the status and body sent to the
// caller. Validation failures are 4xx; upstream rejections keep upstream's
// 4xx; every other upstream failure is a 5xx gateway status.
func translateError(err error) (int, httpserver.ErrorResponse) {
	var (
		validationErr  *models.ValidationError
		unavailableErr *models.UpstreamUnavailableError
		upstreamErr    *models.UpstreamError
		protocolErr    *models.UpstreamProtocolError
	)

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, httpserver.ErrorResponse{
			Error: validationErr.Error(),
			Code:  CodeValidation,
		}
	case errors.As(err, &unavailableErr):
		if unavailableErr.Timeout {
			return fiber.StatusGatewayTimeout, httpserver.ErrorResponse{
				Error: "upstream forecast service timed out",
				Code:  CodeUpstreamTimeout,
			}
		}
		return fiber.StatusBadGateway, httpserver.ErrorResponse{
			Error: "upstream forecast service unavailable",
			Code:  CodeUpstreamUnavailable,
		}
	case errors.As(err, &upstreamErr):
		if upstreamErr.Rejected() {
			msg := "upstream forecast service rejected the request"
			if upstreamErr.Reason != "" {
				msg += ": " + models.ShortDiagnostic(upstreamErr.Reason, maxDiagnostic)
			}
			return upstreamErr.Status, httpserver.ErrorResponse{
				Error: msg,
				Code:  CodeUpstreamRejected,
			}
		}
		return fiber.StatusBadGateway, httpserver.ErrorResponse{
			Error: "upstream forecast service failed",
			Code:  CodeUpstreamError,
		}
	case errors.As(err, &protocolErr):
		return fiber.StatusBadGateway, httpserver.ErrorResponse{
			Error: "upstream forecast service returned an invalid response",
			Code:  CodeUpstreamProtocolError,
		}
	default:
		return fiber.StatusInternalServerError, httpserver.ErrorResponse{
			Error: "failed to fetch weather data",
			Code:  CodeInternal,
		}
	}
}
