package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	_ "weather-proxy/docs" // registers the generated OpenAPI document
	"weather-proxy/internal/services/forecast"
	"weather-proxy/internal/services/validation"
	"weather-proxy/pkg/logger"
)

type routes struct {
	validator *validation.Validator
	service   *forecast.ForecastService
	l         *logger.Logger
}

// NewRouter registers the forecast handler on every path in paths, plus
// the swagger UI.
func NewRouter(
	app *fiber.App,
	paths []string,
	validator *validation.Validator,
	forecastService *forecast.ForecastService,
	l *logger.Logger,
) {
	r := &routes{
		validator: validator,
		service:   forecastService,
		l:         l,
	}

	app.Get("/swagger/*", swagger.New(swagger.Config{
		URL:         "/swagger/doc.json",
		DeepLinking: true,
	}))

	for _, p := range paths {
		app.Get(p, r.handleForecast)
	}
}
