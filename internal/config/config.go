package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default YAML config location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML, overridable by
// environment variables.
type FileConfig struct {
	Port                       string `yaml:"port"`
	Env                        string `yaml:"env"`
	LogLevel                   string `yaml:"logLevel"`
	DatabaseURL                string `yaml:"databaseURL"`
	AccessTokenSecret          string `yaml:"accessTokenSecret"`
	RefreshTokenSecret         string `yaml:"refreshTokenSecret"`
	CORSOrigin                 string `yaml:"corsOrigin"`
	OpenAIBaseURL              string `yaml:"openaiBaseURL"`
	OpenAIAPIKey               string `yaml:"openaiAPIKey"`
	CompletionModel            string `yaml:"completionModel"`
	RedisAddr                  string `yaml:"redisAddr"`
	RedisPassword              string `yaml:"redisPassword"`
	LoginRateLimitPerMinute    int    `yaml:"loginRateLimitPerMinute"`
	RegisterRateLimitPerMinute int    `yaml:"registerRateLimitPerMinute"`
	TrustedProxies             string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml). A missing file is
// fine; the environment alone can carry the full configuration.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("ACCESS_TOKEN_SECRET"); v != "" {
		cfg.AccessTokenSecret = v
	}
	if v := os.Getenv("REFRESH_TOKEN_SECRET"); v != "" {
		cfg.RefreshTokenSecret = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("COMPLETION_MODEL"); v != "" {
		cfg.CompletionModel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("REGISTER_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RegisterRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = v
	}

	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "5000"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = "gpt-4"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "http://localhost:5173"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if cfg.AccessTokenSecret == "" {
		return errors.New("config: accessTokenSecret is required (set ACCESS_TOKEN_SECRET)")
	}
	if cfg.RefreshTokenSecret == "" {
		return errors.New("config: refreshTokenSecret is required (set REFRESH_TOKEN_SECRET)")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if cfg.LoginRateLimitPerMinute < 0 || cfg.RegisterRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if (cfg.LoginRateLimitPerMinute > 0 || cfg.RegisterRateLimitPerMinute > 0) && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required when rate limits are set")
	}
	return nil
}

// IsProduction reports whether cookies should carry the Secure flag.
func (c FileConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// TrustedProxyList splits the comma-separated trusted proxy entries.
func (c FileConfig) TrustedProxyList() []string {
	raw := strings.TrimSpace(c.TrustedProxies)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
