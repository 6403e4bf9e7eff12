package repositories

import (
	"context"
	"encoding/json"
	"net/http"

	"weather-proxy/internal/models"
)

// HTTPClient is the part of *http.Client the repositories need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type ForecastRepository interface {
	Name() string
	FetchForecast(ctx context.Context, q models.Query) (json.RawMessage, error)
}
