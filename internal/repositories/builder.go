package repositories

import (
	"net/url"
	"strconv"
	"strings"

	"weather-proxy/internal/models"
)

const (
	TimezoneAuto = "auto"
	TimezoneUTC  = "UTC"
)

// RequestBuilder maps a validated query onto the upstream query string.
// Its fields are deployment defaults and are not changed after startup.
type RequestBuilder struct {
	Timezone       string
	DefaultHourly  []string
	DefaultCurrent []string
	// CurrentWeather forces current_weather=true even when hourly
	// variables are requested.
	CurrentWeather bool
}

// Build returns fresh parameters for q. q is only read.
func (b RequestBuilder) Build(q models.Query) url.Values {
	values := url.Values{}
	values.Set("latitude", formatCoordinate(q.Latitude))
	values.Set("longitude", formatCoordinate(q.Longitude))

	hourly := pick(q.Hourly, b.DefaultHourly)
	if len(hourly) > 0 {
		values.Set("hourly", strings.Join(hourly, ","))
	}
	if len(hourly) == 0 || b.CurrentWeather {
		values.Set("current_weather", "true")
	}

	if current := pick(q.Current, b.DefaultCurrent); len(current) > 0 {
		values.Set("current", strings.Join(current, ","))
	}

	if q.StartDate != "" {
		values.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		values.Set("end_date", q.EndDate)
	}

	tz := b.Timezone
	if tz == "" {
		tz = TimezoneAuto
	}
	values.Set("timezone", tz)

	return values
}

func pick(selected, fallback []string) []string {
	if len(selected) > 0 {
		return selected
	}
	return fallback
}

// formatCoordinate uses the shortest representation that parses back to v.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
