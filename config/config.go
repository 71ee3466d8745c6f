package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	MinAuthSecretLength = 32
	MinSessionTTL       = 5
)

type Config struct {
	AppEnv string `mapstructure:"app_env"`
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`

	CORSOrigin     string   `mapstructure:"cors_origin"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	RateLimitMaxRequests int `mapstructure:"common_rate_limit_max_requests"`
	RateLimitWindowMS    int `mapstructure:"common_rate_limit_window_ms"`

	AuthSecret               string `mapstructure:"auth_secret"`
	SessionTTLMinutes        int    `mapstructure:"session_ttl_minutes"`
	CookieSecure             bool   `mapstructure:"cookie_secure"`
	SIWEDomain               string `mapstructure:"siwe_domain"`
	NonceInvalidateOnFailure bool   `mapstructure:"nonce_invalidate_on_failure"`

	AlchemyAPIKey             string        `mapstructure:"alchemy_api_key"`
	AlchemyNetwork            string        `mapstructure:"alchemy_network"`
	AlchemyURL                string        `mapstructure:"alchemy_url"`
	ProviderTimeout           time.Duration `mapstructure:"provider_timeout"`
	TokensPageSize            int           `mapstructure:"tokens_page_size"`
	TokensMetadataConcurrency int           `mapstructure:"tokens_metadata_concurrency"`

	RedisURL    string `mapstructure:"redis_url"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"app_env":                        EnvProduction,
	"host":                           "0.0.0.0",
	"port":                           8080,
	"cors_origin":                    "",
	"trusted_proxies":                []string{},
	"common_rate_limit_max_requests": 1000,
	"common_rate_limit_window_ms":    1000,
	"auth_secret":                    "",
	"session_ttl_minutes":            60,
	"cookie_secure":                  true,
	"siwe_domain":                    "",
	"nonce_invalidate_on_failure":    false,
	"alchemy_api_key":                "",
	"alchemy_network":                "eth-mainnet",
	"alchemy_url":                    "",
	"provider_timeout":               "10s",
	"tokens_page_size":               100,
	"tokens_metadata_concurrency":    8,
	"redis_url":                      "",
	"metrics_addr":                   ":9090",
	"log_level":                      "info",
}

// Load reads configs/settings.yml when present and applies environment
// overrides. Every key can be set through its upper-case environment name.
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if len(configPaths) == 0 {
		configPaths = []string{"./configs", "/configs"}
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}
	v.SetConfigName("settings")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	switch c.AppEnv {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of development, production, test, got %q", c.AppEnv))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.CORSOrigin == "" {
		errs = append(errs, errors.New("CORS_ORIGIN is required"))
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy))
		}
	}
	if c.RateLimitMaxRequests <= 0 {
		errs = append(errs, errors.New("COMMON_RATE_LIMIT_MAX_REQUESTS must be positive"))
	}
	if c.RateLimitWindowMS <= 0 {
		errs = append(errs, errors.New("COMMON_RATE_LIMIT_WINDOW_MS must be positive"))
	}
	if len(c.AuthSecret) < MinAuthSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_SECRET must be at least %d characters", MinAuthSecretLength))
	}
	if c.SessionTTLMinutes < MinSessionTTL {
		errs = append(errs, fmt.Errorf("SESSION_TTL_MINUTES must be at least %d, got %d", MinSessionTTL, c.SessionTTLMinutes))
	}
	if c.AlchemyAPIKey == "" && c.AlchemyURL == "" {
		errs = append(errs, errors.New("ALCHEMY_API_KEY is required"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.TokensPageSize <= 0 || c.TokensPageSize > 100 {
		errs = append(errs, fmt.Errorf("TOKENS_PAGE_SIZE must be between 1 and 100, got %d", c.TokensPageSize))
	}
	if c.TokensMetadataConcurrency <= 0 {
		errs = append(errs, errors.New("TOKENS_METADATA_CONCURRENCY must be positive"))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL is invalid: %w", err))
	}

	return errors.Join(errs...)
}

func validProxy(proxy string) bool {
	if strings.Contains(proxy, "/") {
		_, _, err := net.ParseCIDR(proxy)
		return err == nil
	}
	return net.ParseIP(proxy) != nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SessionTTL returns the session lifetime
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// RateLimitWindow returns the rate limiter window
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}

// Level returns the configured log level
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}
