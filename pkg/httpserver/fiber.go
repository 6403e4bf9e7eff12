package httpserver

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"weather-proxy/pkg/metrics"
)

type Options struct {
	AppName      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Metrics      *metrics.Metrics
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error" example:"missing required parameter: longitude"`
	Code  string `json:"code" example:"validation_error"`
}

func InitFiberServer(opts Options) *fiber.App {
	s := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           opts.IdleTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	s.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	s.Use(cors.New(cors.Config{
		AllowMethods: "GET,HEAD,OPTIONS",
	}))
	s.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/manage/health",
		ReadinessEndpoint: "/manage/ready",
	}))

	if opts.Metrics != nil {
		s.Use(metricsMiddleware(opts.Metrics))
		s.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	return s
}

// metricsMiddleware records every request that reaches a route.
func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		m.RecordHTTPRequest(c.Route().Path, c.Method(), strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}

// errorHandler renders errors that escaped a handler, such as unknown
// routes or recovered panics, in the same shape handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error: msg,
		Code:  codeFor(code),
	})
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusBadRequest:
		return "bad_request"
	default:
		return "internal_error"
	}
}
