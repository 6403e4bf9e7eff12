package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"weather-proxy/config"
	v1 "weather-proxy/internal/controllers/http/v1"
	"weather-proxy/internal/repositories"
	"weather-proxy/internal/services/forecast"
	"weather-proxy/internal/services/validation"
	"weather-proxy/pkg/httpserver"
	"weather-proxy/pkg/logger"
	"weather-proxy/pkg/metrics"
	"weather-proxy/pkg/observe"
)

// @title Weather Proxy API
// @version 1.0.0
// @description Validating pass-through proxy for the Open-Meteo forecast API.

// @contact.name Weather Proxy Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @tag.name Weather
// @tag.description Weather forecast proxy operations
func main() {
	cnf := config.NewConfig()

	writers := []io.Writer{os.Stdout}
	var hook *observe.SentryHook
	if cnf.Sentry.DSN != "" {
		hook = observe.NewSentryHook(cnf.App.Env, cnf.App.Name, cnf.Sentry.DSN, cnf.Sentry.Debug)
		writers = append(writers, hook)
	}

	l := logger.NewZapLogger(logger.Options{
		AppName: cnf.App.Name,
		AppEnv:  cnf.App.Env,
		Level:   cnf.Log.Level,
	}, writers...)
	if hook != nil {
		hook.SetLogger(l)
	}

	m := metrics.New(strings.ReplaceAll(cnf.App.Name, "-", "_"))

	app := httpserver.InitFiberServer(httpserver.Options{
		AppName:      cnf.App.Name,
		ReadTimeout:  cnf.Server.ReadTimeout,
		WriteTimeout: cnf.Server.WriteTimeout,
		IdleTimeout:  cnf.Server.IdleTimeout,
		Metrics:      m,
	})

	mode := cnf.ResponseMode()

	repo := repositories.NewOpenMeteoRepository(l, repositories.OpenMeteoOptions{
		BaseURL: cnf.Upstream.BaseURL,
		Timeout: cnf.Upstream.Timeout,
		Builder: repositories.RequestBuilder{
			Timezone:       cnf.Upstream.Timezone,
			DefaultHourly:  cnf.Upstream.DefaultHourly,
			DefaultCurrent: cnf.Upstream.DefaultCurrent,
			CurrentWeather: cnf.Upstream.CurrentWeather || mode.NeedsCurrentWeather(),
		},
		Metrics: m,
	})

	service := forecast.NewForecastService(repo, mode, l)

	v1.NewRouter(
		app,
		cnf.Server.Routes,
		validation.NewValidator(),
		service,
		l,
	)

	go func() {
		if err := app.Listen(":" + cnf.Server.Port); err != nil {
			l.Fatal("cannot run the server", map[string]any{"err": err.Error()})
		}
	}()

	l.Info("application started successfully", map[string]any{
		"port":     cnf.Server.Port,
		"routes":   cnf.Server.Routes,
		"upstream": cnf.Upstream.BaseURL,
		"timeout":  cnf.Upstream.Timeout.String(),
		"mode":     string(mode),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	l.Warning("stopping application services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		l.Error(err, map[string]any{"stage": "shutdown"})
	}
	if hook != nil {
		hook.Flush()
	}
	_ = l.Stop()
}
