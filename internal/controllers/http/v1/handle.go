package http

import (
	"github.com/gofiber/fiber/v2"

	"weather-proxy/internal/services/validation"
)

// GetForecast godoc
// @Summary Get weather forecast
// @Description Validates the coordinates, forwards one request to the Open-Meteo forecast API and returns its JSON.
// @Description Depending on the deployment the body is the upstream payload unchanged or a projection of it.
// @Tags Weather
// @Produce json
// @Param latitude query number true "Latitude (-90 to 90)" minimum(-90) maximum(90) example(52.52)
// @Param longitude query number true "Longitude (-180 to 180)" minimum(-180) maximum(180) example(13.41)
// @Param hourly query string false "Comma separated hourly variables" example(temperature_2m,pressure_msl)
// @Param current query string false "Comma separated current variables" example(temperature_2m,surface_pressure)
// @Param start_date query string false "First date, YYYY-MM-DD" example(2024-06-01)
// @Param end_date query string false "Last date, YYYY-MM-DD" example(2024-06-03)
// @Success 200 {object} map[string]interface{} "Upstream payload or its projection"
// @Failure 400 {object} httpserver.ErrorResponse "Invalid parameters or rejected by upstream"
// @Failure 502 {object} httpserver.ErrorResponse "Upstream unavailable or failed"
// @Failure 504 {object} httpserver.ErrorResponse "Upstream timed out"
// @Router /weather [get]
func (r *routes) handleForecast(c *fiber.Ctx) error {
	raw := validation.RawQuery{
		Latitude:  c.Query("latitude"),
		Longitude: c.Query("longitude"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Hourly:    queryValues(c, "hourly"),
		Current:   queryValues(c, "current"),
	}

	q, err := r.validator.Validate(raw)
	if err != nil {
		return r.respondError(c, err, raw)
	}

	body, err := r.service.Fetch(c.UserContext(), q)
	if err != nil {
		return r.respondError(c, err, q)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

func (r *routes) respondError(c *fiber.Ctx, err error, params any) error {
	status, resp := translateError(err)

	fields := map[string]any{
		"status":     status,
		"code":       resp.Code,
		"params":     params,
		"path":       c.Path(),
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	}
	switch {
	case status >= fiber.StatusInternalServerError:
		r.l.Error(err, fields)
	default:
		fields["err"] = err.Error()
		r.l.Warning("request rejected", fields)
	}

	return c.Status(status).JSON(resp)
}

// queryValues returns every value of a repeated query parameter.
func queryValues(c *fiber.Ctx, key string) []string {
	raw := c.Context().QueryArgs().PeekMulti(key)
	if len(raw) == 0 {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, string(v))
	}
	return values
}
