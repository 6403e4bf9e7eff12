package observe

import (
	"encoding/json"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"weather-proxy/pkg/logger"
)

const (
	_sentryMaxErrorDepth        int           = 9
	_sentryFlushTimeout         time.Duration = 5 * time.Second
	_sentryServerRequestTimeout time.Duration = 5 * time.Second
)

// SentryHook is an io.Writer attached to the zap core. It forwards
// error-level log lines to Sentry as events.
type SentryHook struct {
	appEnv  string
	appName string
	l       *logger.Logger
	capture func(*sentry.Event) *sentry.EventID
}

// logLine mirrors the JSON fields written by logger.Logger.
type logLine struct {
	Level      string `json:"level"`
	AppName    string `json:"app_name"`
	AppEnv     string `json:"app_zone"`
	CallerFile string `json:"caller_file"`
	CallerLine int    `json:"caller_line"`
	CallerFunc string `json:"caller_func"`
	Stack      string `json:"stack"`
	Message    string `json:"msg"`
	Error      string `json:"error"`
	Timestamp  string `json:"timestamp"`
}

func NewSentryHook(appEnv, appName, dsn string, isDebug bool) *SentryHook {
	if dsn == "" {
		log.Println("sentry init: no DSN, events are dropped")
	}
	sentryTransport := sentry.NewHTTPTransport()
	sentryTransport.Timeout = _sentryServerRequestTimeout
	if err := sentry.Init(sentry.ClientOptions{
		AttachStacktrace: true,
		Debug:            isDebug,
		Dsn:              dsn,
		Environment:      appEnv,
		MaxErrorDepth:    _sentryMaxErrorDepth,
		ServerName:       appName,
		Transport:        sentryTransport,
	}); err != nil {
		log.Println("sentry init error: ", err.Error())
	}

	return &SentryHook{
		appEnv:  appEnv,
		appName: appName,
		capture: sentry.CaptureEvent,
	}
}

func (*SentryHook) mapLevel(zl zapcore.Level) sentry.Level {
	switch zl {
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	case zapcore.FatalLevel, zapcore.PanicLevel, zapcore.DPanicLevel:
		return sentry.LevelFatal
	}

	return sentry.LevelDebug
}

// Write never fails: a line that cannot be parsed is reported and skipped.
func (h *SentryHook) Write(p []byte) (int, error) {
	var line logLine
	if err := json.Unmarshal(p, &line); err != nil {
		h.report(errors.Wrap(err, "[SentryHook] unmarshal log line"))
		return len(p), nil
	}

	level, err := zapcore.ParseLevel(line.Level)
	if err != nil {
		h.report(errors.Wrap(err, "[SentryHook] parse zap level"))
		return len(p), nil
	}
	if level < zapcore.ErrorLevel || line.Message == "" {
		return len(p), nil
	}

	h.capture(h.event(level, line))

	return len(p), nil
}

func (h *SentryHook) event(level zapcore.Level, line logLine) *sentry.Event {
	timestamp, err := time.ParseInLocation(logger.TimeLayout, line.Timestamp, time.UTC)
	if err != nil {
		timestamp = time.Now().UTC()
	}

	event := sentry.NewEvent()
	event.Environment = h.appEnv
	event.Level = h.mapLevel(level)
	event.Timestamp = timestamp
	event.Message = line.Message
	event.Extra["AppName"] = h.appName
	event.Extra["Error"] = line.Error
	event.Extra["CallerFile"] = line.CallerFile
	event.Extra["CallerLine"] = line.CallerLine
	event.Extra["CallerFunc"] = line.CallerFunc
	event.Extra["Stack"] = line.Stack
	event.Exception = append(event.Exception, sentry.Exception{
		Type:  line.Message,
		Value: line.Error,
	})

	return event
}

// report logs below error level so the line does not come back as an event.
func (h *SentryHook) report(err error) {
	if h.l != nil {
		h.l.Warning(err.Error())
		return
	}
	log.Println(err.Error())
}

func (h *SentryHook) SetLogger(l *logger.Logger) {
	if l != nil {
		h.l = l
	}
}

// Flush waits for buffered events to be delivered.
func (h *SentryHook) Flush() bool {
	return sentry.Flush(_sentryFlushTimeout)
}
