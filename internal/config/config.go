package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/codingconcepts/env"
	"gopkg.in/yaml.v3"

	"codehelper/internal/util"
	"codehelper/pkg/ai"
)

// ConfigPath is the default config file location. A missing default file is
// not an error; the service then runs from defaults and environment alone.
const ConfigPath = "config.yaml"

const (
	defaultPort              = "8000"
	defaultLogLevel          = "info"
	defaultGenerationTimeout = "60s"
	defaultLanguage          = "python"
	defaultMaxBodyBytes      = 1 << 20
	defaultUsagePrefix       = "codehelper:usage"
)

var defaultModels = map[string]string{
	ai.ProviderGemini: "gemini-2.0-flash",
	ai.ProviderOpenAI: "gpt-4o-mini",
}

// FileConfig represents configuration loaded from YAML and the environment.
// The generation API key is read from the environment only.
type FileConfig struct {
	Port               string   `yaml:"port" env:"PORT"`
	LogLevel           string   `yaml:"logLevel" env:"LOG_LEVEL"`
	GenerationProvider string   `yaml:"generationProvider" env:"GENERATION_PROVIDER"`
	GenerationModel    string   `yaml:"generationModel" env:"GENERATION_MODEL"`
	GenerationBaseURL  string   `yaml:"generationBaseURL" env:"GENERATION_BASE_URL"`
	GenerationAPIKey   string   `yaml:"-" env:"GENERATION_API_KEY"`
	GenerationTimeout  string   `yaml:"generationTimeout" env:"GENERATION_TIMEOUT"`
	DefaultLanguage    string   `yaml:"defaultLanguage" env:"DEFAULT_LANGUAGE"`
	MaxBodyBytes       int64    `yaml:"maxBodyBytes" env:"MAX_BODY_BYTES"`
	TrustedProxyCIDRs  []string `yaml:"trustedProxyCidrs"`
	RedisAddr          string   `yaml:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword      string   `yaml:"-" env:"REDIS_PASSWORD"`
	UsagePrefix        string   `yaml:"usagePrefix" env:"USAGE_PREFIX"`
}

// Load reads config from path (defaults to config.yaml), then applies
// environment overrides and validates the result.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{
		Port:              defaultPort,
		LogLevel:          defaultLogLevel,
		GenerationTimeout: defaultGenerationTimeout,
		DefaultLanguage:   defaultLanguage,
		MaxBodyBytes:      defaultMaxBodyBytes,
		UsagePrefix:       defaultUsagePrefix,
	}
	optional := path == ""
	if optional {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := env.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	normalize(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func normalize(cfg *FileConfig) {
	cfg.GenerationProvider = ai.NormalizeProvider(cfg.GenerationProvider)
	cfg.GenerationModel = strings.TrimSpace(cfg.GenerationModel)
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = defaultModels[cfg.GenerationProvider]
	}
	cfg.GenerationAPIKey = strings.TrimSpace(cfg.GenerationAPIKey)
	if cfg.GenerationAPIKey == "" {
		// Provider-native variable names, e.g. GEMINI_API_KEY.
		cfg.GenerationAPIKey = strings.TrimSpace(os.Getenv(strings.ToUpper(cfg.GenerationProvider) + "_API_KEY"))
	}
	cfg.DefaultLanguage = strings.TrimSpace(cfg.DefaultLanguage)
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = defaultLanguage
	}
	if strings.TrimSpace(cfg.UsagePrefix) == "" {
		cfg.UsagePrefix = defaultUsagePrefix
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required")
	}
	if !ai.IsKnownProvider(cfg.GenerationProvider) {
		return fmt.Errorf("config: unknown generationProvider %q (want one of %s)", cfg.GenerationProvider, strings.Join(ai.Providers, ", "))
	}
	if cfg.GenerationModel == "" {
		return errors.New("config: generationModel is required (set in config.yaml or GENERATION_MODEL)")
	}
	if ai.RequiresAPIKey(cfg.GenerationProvider) && cfg.GenerationAPIKey == "" {
		return fmt.Errorf("config: api key is required for %s (set GENERATION_API_KEY or %s_API_KEY)", cfg.GenerationProvider, strings.ToUpper(cfg.GenerationProvider))
	}
	timeout, err := ParseGenerationTimeout(cfg.GenerationTimeout)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return errors.New("config: generationTimeout must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return errors.New("config: maxBodyBytes must be > 0")
	}
	if _, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs); err != nil {
		return fmt.Errorf("config: trustedProxyCidrs: %w", err)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseGenerationTimeout parses the backend call timeout duration string.
func ParseGenerationTimeout(timeoutStr string) (time.Duration, error) {
	if strings.TrimSpace(timeoutStr) == "" {
		timeoutStr = defaultGenerationTimeout
	}
	dur, err := time.ParseDuration(strings.TrimSpace(timeoutStr))
	if err != nil {
		return 0, fmt.Errorf("invalid generationTimeout duration: %w", err)
	}
	return dur, nil
}
