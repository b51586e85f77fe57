// Package config provides layered configuration loading for the deckimg
// service. Defaults are overlaid with DECKIMG_-prefixed environment
// variables, then validated. Load is the only entry point.
package config

import (
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DECKIMG_"

// Config holds the merged runtime configuration for the deckimg service.
type Config struct {
	Addr            string        `koanf:"addr" validate:"required,ip_port"`
	DataDir         string        `koanf:"data_dir" validate:"required,safe_dir"`
	CatalogBaseURL  string        `koanf:"catalog_base_url" validate:"required,url"`
	Locale          string        `koanf:"locale" validate:"required,alpha"`
	AssetsDir       string        `koanf:"assets_dir" validate:"omitempty,safe_dir"`
	HTTPTimeout     time.Duration `koanf:"http_timeout" validate:"required,min=1000000000"`
	CacheMaxAge     time.Duration `koanf:"cache_max_age" validate:"required,min=60000000000"`
	CacheMaxBytes   int64         `koanf:"cache_max_bytes" validate:"required,min=1048576"`
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"required,min=1000000000"`
	MetricsToken    string        `koanf:"metrics_token"`
}

// DefaultAppConfig is the baseline configuration before environment
// overrides. Durations validate against nanosecond minimums: HTTPTimeout
// and JanitorInterval >= 1s, CacheMaxAge >= 1m, CacheMaxBytes >= 1 MiB.
var DefaultAppConfig = Config{
	Addr:            ":8080",
	DataDir:         "./data",
	CatalogBaseURL:  "https://static-data.7shengzhaohuan.online",
	Locale:          "CHS",
	HTTPTimeout:     10 * time.Second,
	CacheMaxAge:     30 * 24 * time.Hour,
	CacheMaxBytes:   512 << 20, // 512 MiB
	JanitorInterval: 15 * time.Minute,
}

// Load merges defaults with environment variables and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	uc := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, uc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate runs struct validation with the custom rules registered.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	if err := v.RegisterValidation("safe_dir", validSafeDir); err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validIPPort accepts "<ip>:<port>" or ":<port>" with a numeric port in
// [1, 65535]. Hostnames are rejected; binding is by address only.
func validIPPort(fl validator.FieldLevel) bool {
	host, portStr, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}

// validSafeDir rejects the filesystem root, bare ".", and any path that
// escapes upward through "..".
func validSafeDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return false
	}
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}
	for _, part := range strings.Split(clean, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
