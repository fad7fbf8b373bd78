// Package config содержит логику чтения конфигурации клиента магазина.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config содержит параметры конфигурации клиента магазина.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	APIURL        string `env:"API_URL"`
	DatabaseURI   string `env:"DATABASE_URI"`
	SessionSecret string `env:"SESSION_SECRET"`

	PollInterval                  time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	MaxPolls                      int           `env:"MAX_POLLS" envDefault:"50"`
	MessageRefreshInterval        time.Duration `env:"MESSAGE_REFRESH_INTERVAL" envDefault:"3s"`
	AccessRefreshInterval         time.Duration `env:"ACCESS_REFRESH_INTERVAL" envDefault:"60s"`
	AccessRequestsRefreshInterval time.Duration `env:"ACCESS_REQUESTS_REFRESH_INTERVAL" envDefault:"30s"`

	ShippingFee       string        `env:"SHIPPING_FEE" envDefault:"50"`
	GatewayTimeout    time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	GatewayRetryMax   int           `env:"GATEWAY_RETRY_MAX" envDefault:"0"`
	WatermarkMaxWidth uint          `env:"WATERMARK_MAX_WIDTH" envDefault:"1024"`
}

// ErrMissingAPIURL возвращается, если не задан адрес backend.
var ErrMissingAPIURL = errors.New("backend api url is not configured")

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envAPIURL := cfg.APIURL
	envDatabaseURI := cfg.DatabaseURI
	envSessionSecret := cfg.SessionSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.APIURL, "u", "", "backend api url")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for generation history")
	flag.StringVar(&cfg.SessionSecret, "s", "", "secret for session cookie signing")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envAPIURL != "" {
		cfg.APIURL = envAPIURL
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSessionSecret != "" {
		cfg.SessionSecret = envSessionSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxPolls <= 0 {
		return fmt.Errorf("max polls must be positive, got %d", c.MaxPolls)
	}
	if c.MessageRefreshInterval <= 0 || c.AccessRefreshInterval <= 0 || c.AccessRequestsRefreshInterval <= 0 {
		return errors.New("refresh intervals must be positive")
	}
	if _, err := c.ShippingFeeAmount(); err != nil {
		return err
	}
	return nil
}

// ShippingFeeAmount возвращает стоимость доставки как денежную сумму.
func (c *Config) ShippingFeeAmount() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.ShippingFee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse shipping fee %q: %w", c.ShippingFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("shipping fee must not be negative, got %s", fee)
	}
	return fee, nil
}
