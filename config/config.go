package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"weather-proxy/internal/models"
)

const DefaultPath = "config/config.yaml"

// Config is read from the environment under prefixed keys only, such as
// UPSTREAM_BASE_URL. Bare names like TIMEOUT are never consulted.
type Config struct {
	App      AppConfig      `yaml:"app" envconfig:"APP"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Upstream UpstreamConfig `yaml:"upstream" envconfig:"UPSTREAM"`
	Response ResponseConfig `yaml:"response" envconfig:"RESPONSE"`
	Log      LogConfig      `yaml:"log" envconfig:"LOG"`
	Sentry   SentryConfig   `yaml:"sentry" envconfig:"SENTRY"`
}

type AppConfig struct {
	Name    string `yaml:"name" split_words:"true"`
	Version string `yaml:"version" split_words:"true"`
	Env     string `yaml:"env" split_words:"true"`
}

type ServerConfig struct {
	Port         string        `yaml:"port" split_words:"true"`
	Routes       []string      `yaml:"routes" split_words:"true"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" split_words:"true"`
}

type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url" split_words:"true"`
	Timeout        time.Duration `yaml:"timeout" split_words:"true"`
	Timezone       string        `yaml:"timezone" split_words:"true"`
	DefaultHourly  []string      `yaml:"default_hourly" split_words:"true"`
	DefaultCurrent []string      `yaml:"default_current" split_words:"true"`
	CurrentWeather bool          `yaml:"current_weather" split_words:"true"`
}

type ResponseConfig struct {
	Mode string `yaml:"mode" split_words:"true"`
}

type LogConfig struct {
	Level string `yaml:"level" split_words:"true"`
}

type SentryConfig struct {
	DSN   string `yaml:"dsn" split_words:"true"`
	Debug bool   `yaml:"debug" split_words:"true"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "weather-proxy",
			Version: "1.0.0",
			Env:     "development",
		},
		Server: ServerConfig{
			Port:         "8080",
			Routes:       []string{"/weather"},
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:  "https://api.open-meteo.com/v1/forecast",
			Timeout:  10 * time.Second,
			Timezone: "auto",
		},
		Response: ResponseConfig{
			Mode: string(models.ResponseModeRaw),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// NewConfig loads DefaultPath and panics on any error. Used at startup only.
func NewConfig() *Config {
	cnf, err := Load(DefaultPath)
	if err != nil {
		panic(fmt.Errorf("error loading config: %w", err))
	}
	return cnf
}

// Load applies, in order: defaults, a .env file, the YAML file at path and
// environment variables. A missing .env or YAML file is not an error.
func Load(path string) (*Config, error) {
	cnf := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := loadFromFile(path, cnf); err != nil {
		return nil, err
	}

	if err := envconfig.Process("", cnf); err != nil {
		return nil, fmt.Errorf("error environment variable parsing: %w", err)
	}

	if err := cnf.Validate(); err != nil {
		return nil, err
	}

	return cnf, nil
}

func loadFromFile(path string, cnf *Config) error {
	if path == "" {
		return nil
	}
	yamlData, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(yamlData, cnf); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.App.Name) == "" {
		errs = append(errs, errors.New("app.name is required"))
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if len(c.Server.Routes) == 0 {
		errs = append(errs, errors.New("server.routes must not be empty"))
	}
	for _, r := range c.Server.Routes {
		if !strings.HasPrefix(r, "/") {
			errs = append(errs, fmt.Errorf("server.routes: %q must start with /", r))
		}
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url %q is not an absolute URL", c.Upstream.BaseURL))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream.timeout must be positive"))
	}
	if strings.TrimSpace(c.Upstream.Timezone) == "" {
		errs = append(errs, errors.New("upstream.timezone is required"))
	}
	if _, err := models.ParseResponseMode(c.Response.Mode); err != nil {
		errs = append(errs, fmt.Errorf("response.mode: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) ResponseMode() models.ResponseMode {
	mode, _ := models.ParseResponseMode(c.Response.Mode)
	return mode
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production" || c.App.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development" || c.App.Env == "dev"
}
