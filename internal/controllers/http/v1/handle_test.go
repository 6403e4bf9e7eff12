package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "weather-proxy/internal/controllers/http/v1"
	"weather-proxy/internal/models"
	"weather-proxy/internal/repositories"
	"weather-proxy/internal/services/forecast"
	"weather-proxy/internal/services/validation"
	"weather-proxy/pkg/httpserver"
	"weather-proxy/pkg/logger"
	"weather-proxy/pkg/metrics"
)

const fixture = `{"latitude":52.52,"longitude":13.419998,"generationtime_ms":0.04,"utc_offset_seconds":7200,"timezone":"Europe/Berlin","current_weather":{"time":"2024-06-01T12:00","temperature":17.3,"windspeed":9.4,"winddirection":253,"weathercode":3}}`

type upstream struct {
	server    *httptest.Server
	calls     atomic.Int32
	lastQuery atomic.Value
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.lastQuery.Store(r.URL.Query())
		handler(w, r)
	}))
	t.Cleanup(u.server.Close)
	return u
}

func fixtureHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(fixture))
}

func (u *upstream) query() url.Values {
	v, _ := u.lastQuery.Load().(url.Values)
	return v
}

type appOptions struct {
	mode    models.ResponseMode
	timeout time.Duration
	builder repositories.RequestBuilder
	routes  []string
}

func newTestApp(t *testing.T, baseURL string, opts appOptions) *fiber.App {
	t.Helper()
	if opts.timeout == 0 {
		opts.timeout = time.Second
	}
	if opts.mode == "" {
		opts.mode = models.ResponseModeRaw
	}
	if opts.builder.Timezone == "" {
		opts.builder.Timezone = repositories.TimezoneAuto
	}
	if len(opts.routes) == 0 {
		opts.routes = []string{"/weather"}
	}

	l := logger.NewNop()
	m := metrics.New("test")
	app := httpserver.InitFiberServer(httpserver.Options{AppName: "test", Metrics: m})
	repo := repositories.NewOpenMeteoRepository(l, repositories.OpenMeteoOptions{
		BaseURL: baseURL,
		Timeout: opts.timeout,
		Builder: opts.builder,
		Metrics: m,
	})
	v1.NewRouter(app, opts.routes, validation.NewValidator(), forecast.NewForecastService(repo, opts.mode, l), l)

	return app
}

func doGet(t *testing.T, app *fiber.App, target string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, body
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return f
}

func decodeError(t *testing.T, body []byte) httpserver.ErrorResponse {
	t.Helper()
	var e httpserver.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestHandleForecast_Success(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{})

	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get(fiber.HeaderContentType))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Equal(t, fixture, string(body))

	assert.Equal(t, int32(1), up.calls.Load())
	q := up.query()
	assert.Equal(t, url.Values{
		"latitude":        {"52.52"},
		"longitude":       {"13.41"},
		"timezone":        {"auto"},
		"current_weather": {"true"},
	}, q)
}

func TestHandleForecast_CoordinatesForwardedExactly(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{})

	for _, c := range []struct{ lat, lon string }{
		{"-33.8688", "151.2093"},
		{"90", "-180"},
		{"0.000001", "179.999999"},
		{"45.50", "-73.570"},
	} {
		resp, _ := doGet(t, app, "/weather?latitude="+c.lat+"&longitude="+c.lon)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		q := up.query()
		assert.Equal(t, mustFloat(t, c.lat), mustFloat(t, q.Get("latitude")))
		assert.Equal(t, mustFloat(t, c.lon), mustFloat(t, q.Get("longitude")))
	}
}

func TestHandleForecast_ValidationFailuresNeverCallUpstream(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{})

	for _, target := range []string{
		"/weather?latitude=52.52",
		"/weather?longitude=13.41",
		"/weather",
		"/weather?latitude=91&longitude=0",
		"/weather?latitude=-90.5&longitude=0",
		"/weather?latitude=0&longitude=180.01",
		"/weather?latitude=0&longitude=-200",
		"/weather?latitude=abc&longitude=0",
		"/weather?latitude=NaN&longitude=0",
		"/weather?latitude=0x1p-2&longitude=0",
		"/weather?latitude=1_0&longitude=0",
		"/weather?latitude=1&longitude=1&start_date=01-06-2024",
		"/weather?latitude=1&longitude=1&end_date=tomorrow",
	} {
		resp, body := doGet(t, app, target)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)

		e := decodeError(t, body)
		assert.Equal(t, v1.CodeValidation, e.Code, target)
		assert.NotEmpty(t, e.Error, target)
	}

	assert.Equal(t, int32(0), up.calls.Load())
}

func TestHandleForecast_MissingLongitude(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{})

	resp, body := doGet(t, app, "/weather?latitude=52.52")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "missing required parameter: longitude", e.Error)
	assert.Equal(t, int32(0), up.calls.Load())
}

func TestHandleForecast_DatePatternPassThrough(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{})

	resp, _ := doGet(t, app, "/weather?latitude=52.52&longitude=13.41&start_date=2024-13-99&end_date=2024-02-30")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	q := up.query()
	assert.Equal(t, "2024-13-99", q.Get("start_date"))
	assert.Equal(t, "2024-02-30", q.Get("end_date"))
}

func TestHandleForecast_HourlySelection(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{
		builder: repositories.RequestBuilder{Timezone: repositories.TimezoneUTC},
	})

	resp, _ := doGet(t, app, "/weather?latitude=45.5&longitude=-73.6&hourly=temperature_2m,pressure_msl&hourly=relativehumidity_2m")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	q := up.query()
	assert.Equal(t, "temperature_2m,pressure_msl,relativehumidity_2m", q.Get("hourly"))
	assert.Equal(t, "UTC", q.Get("timezone"))
	assert.False(t, q.Has("current_weather"))
}

func TestHandleForecast_UpstreamServerError(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":true,"reason":"internal stack trace here"}`))
	})
	app := newTestApp(t, up.server.URL, appOptions{})

	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, v1.CodeUpstreamError, e.Code)
	assert.NotContains(t, e.Error, "stack trace")
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestHandleForecast_UpstreamRejected(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Cannot initialize WeatherVariable from invalid String value bogus"}`))
	})
	app := newTestApp(t, up.server.URL, appOptions{})

	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41&hourly=bogus")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, v1.CodeUpstreamRejected, e.Code)
	assert.Contains(t, e.Error, "invalid String value bogus")
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestHandleForecast_UpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	timeout := 150 * time.Millisecond
	app := newTestApp(t, up.server.URL, appOptions{timeout: timeout})

	start := time.Now()
	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, v1.CodeUpstreamTimeout, decodeError(t, body).Code)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+2*time.Second)
}

func TestHandleForecast_UpstreamUnreachable(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	baseURL := closed.URL
	closed.Close()

	app := newTestApp(t, baseURL, appOptions{})

	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, v1.CodeUpstreamUnavailable, decodeError(t, body).Code)
}

func TestHandleForecast_UpstreamMalformedJSON(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude":`))
	})
	app := newTestApp(t, up.server.URL, appOptions{})

	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, v1.CodeUpstreamProtocolError, decodeError(t, body).Code)
}

func TestHandleForecast_SummaryMode(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{mode: models.ResponseModeSummary})

	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"temperature":17.3,"windspeed":9.4,"winddirection":253,"weathercode":3}`, string(body))
}

func TestHandleForecast_CurrentMode(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{mode: models.ResponseModeCurrent})

	resp, body := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"latitude":52.52,"longitude":13.419998,"current_weather":{"time":"2024-06-01T12:00","temperature":17.3,"windspeed":9.4,"winddirection":253,"weathercode":3}}`, string(body))
}

func TestHandleForecast_AdditionalRoutes(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{routes: []string{"/weather", "/atmospheric"}})

	resp, _ := doGet(t, app, "/atmospheric?latitude=1&longitude=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doGet(t, app, "/unknown?latitude=1&longitude=2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, body).Code)

	assert.Equal(t, int32(1), up.calls.Load())
}

func TestHandleForecast_MetricsAndHealth(t *testing.T) {
	up := newUpstream(t, fixtureHandler)
	app := newTestApp(t, up.server.URL, appOptions{})

	resp, _ := doGet(t, app, "/weather?latitude=52.52&longitude=13.41")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doGet(t, app, "/manage/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doGet(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `test_upstream_requests_total{outcome="success"} 1`)
	assert.Contains(t, string(body), `test_http_requests_total{method="GET",path="/weather",status="200"} 1`)
}
