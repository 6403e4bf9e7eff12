package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"weather-proxy/internal/models"
	"weather-proxy/pkg/logger"
	"weather-proxy/pkg/metrics"
)

const (
	OpenMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"
	DefaultTimeout   = 10 * time.Second

	// maxErrorBody caps how much of a non-2xx body is kept.
	maxErrorBody = 4 << 10
)

type OpenMeteoRepository struct {
	baseURL    string
	timeout    time.Duration
	builder    RequestBuilder
	httpClient HTTPClient
	l          *logger.Logger
	m          *metrics.Metrics
}

type OpenMeteoOptions struct {
	BaseURL    string
	Timeout    time.Duration
	Builder    RequestBuilder
	HTTPClient HTTPClient
	Metrics    *metrics.Metrics
}

// NewOpenMeteoRepository fills in the public endpoint, a 10s timeout and an
// *http.Client with that timeout for any option left empty.
func NewOpenMeteoRepository(l *logger.Logger, opts OpenMeteoOptions) *OpenMeteoRepository {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenMeteoBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &OpenMeteoRepository{
		baseURL:    opts.BaseURL,
		timeout:    opts.Timeout,
		builder:    opts.Builder,
		httpClient: opts.HTTPClient,
		l:          l,
		m:          opts.Metrics,
	}
}

func (o *OpenMeteoRepository) Name() string {
	return "open-meteo"
}

// openMeteoErrorResponse is the body Open-Meteo sends with a 4xx.
type openMeteoErrorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// FetchForecast performs exactly one GET and returns the body when it is a
// JSON object. Failures are *models.UpstreamUnavailableError,
// *models.UpstreamError or *models.UpstreamProtocolError.
func (o *OpenMeteoRepository) FetchForecast(ctx context.Context, q models.Query) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	target, err := o.endpoint(o.builder.Build(q))
	if err != nil {
		return nil, err
	}

	o.l.Info("making openmeteo API request", map[string]any{
		"params": q.RequestParams(),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	body, err := o.do(req)
	outcome := classify(err)
	o.m.RecordUpstreamRequest(outcome, time.Since(start).Seconds())

	if err != nil {
		o.l.Warning("openmeteo API request failed", map[string]any{
			"outcome": outcome,
			"err":     err.Error(),
			"elapsed": time.Since(start).String(),
		})
		return nil, err
	}

	o.l.Info("received openmeteo API response", map[string]any{
		"bytes":   len(body),
		"elapsed": time.Since(start).String(),
	})

	return body, nil
}

// endpoint merges params into any query already present on the base URL.
func (o *OpenMeteoRepository) endpoint(params url.Values) (string, error) {
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse base url")
	}
	query := u.Query()
	for k, v := range params {
		query[k] = v
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (o *OpenMeteoRepository) do(req *http.Request) (json.RawMessage, error) {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(req.Context(), errors.Wrap(err, "failed to do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		upstreamErr := &models.UpstreamError{
			Status: resp.StatusCode,
			Body:   string(payload),
		}
		var errorResp openMeteoErrorResponse
		if jsonErr := json.Unmarshal(payload, &errorResp); jsonErr == nil && errorResp.Reason != "" {
			upstreamErr.Reason = errorResp.Reason
		}
		return nil, upstreamErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(req.Context(), errors.Wrap(err, "failed to read response body"))
	}

	if !isJSONObject(body) {
		return nil, &models.UpstreamProtocolError{Err: errors.New("response body is not a JSON object")}
	}

	return body, nil
}

func unavailable(ctx context.Context, err error) error {
	return &models.UpstreamUnavailableError{
		Timeout: isTimeout(ctx, err),
		Err:     err,
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

func classify(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}

	var (
		unavailableErr *models.UpstreamUnavailableError
		upstreamErr    *models.UpstreamError
	)
	switch {
	case errors.As(err, &unavailableErr):
		if unavailableErr.Timeout {
			return metrics.OutcomeTimeout
		}
		return metrics.OutcomeUnavailable
	case errors.As(err, &upstreamErr):
		return metrics.OutcomeUpstreamError
	default:
		return metrics.OutcomeProtocolError
	}
}
