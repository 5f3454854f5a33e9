package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SENTINEL_"

// Config represents the sentinel configuration.
type Config struct {
	Provider       string        `yaml:"provider" validate:"oneof=openai ollama lmstudio"`
	Model          string        `yaml:"model" validate:"required"`
	EmbeddingModel string        `yaml:"embeddingModel" validate:"required"`
	BaseURL        string        `yaml:"baseURL,omitempty"`
	Format         string        `yaml:"format" validate:"oneof=json report text sarif"`
	FailOn         string        `yaml:"failOn" validate:"oneof=none low medium high"`
	ContextLimit   int           `yaml:"contextLimit" validate:"gte=0"`
	ContextLines   int           `yaml:"contextLines" validate:"gte=0"`
	Exclude        []string      `yaml:"exclude"`
	Store          StoreConfig   `yaml:"store"`
	Index          IndexConfig   `yaml:"index"`
	Cache          CacheConfig   `yaml:"cache"`
	Privacy        PrivacyConfig `yaml:"privacy"`
	Log            LogConfig     `yaml:"log"`
	Metrics        MetricsConfig `yaml:"metrics"`
	Trace          TraceConfig   `yaml:"trace"`
}

// StoreConfig selects where the symbol index lives. Badger always holds the
// file hashes and the response cache; weaviate may hold the symbols.
type StoreConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=badger weaviate"`
	Path        string `yaml:"path" validate:"required"`
	WeaviateURL string `yaml:"weaviateURL,omitempty" validate:"required_if=Backend weaviate"`
	ClassName   string `yaml:"className,omitempty"`
}

// IndexConfig tunes the indexer.
type IndexConfig struct {
	Workers   int `yaml:"workers" validate:"gte=1"`
	BatchSize int `yaml:"batchSize" validate:"gte=1"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttlSeconds" validate:"gte=0"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths,omitempty"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error off"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// TraceConfig controls span export.
type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		Format:         "json",
		FailOn:         "none",
		ContextLimit:   3,
		Exclude:        []string{"vendor/**", "**/*.gen.go", "**/dist/**"},
		Store: StoreConfig{
			Backend:   "badger",
			Path:      filepath.Join(".sentinel", "index"),
			ClassName: "SentinelSymbol",
		},
		Index: IndexConfig{
			Workers:   4,
			BatchSize: 64,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
		Log: LogConfig{Level: "info"},
	}
}

var validate = validator.New()

// Validate checks enumerated and required fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s=%v fails %q", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory for sentinel.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sentinel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "sentinel"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "sentinel"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "sentinel"), nil
	default:
		return filepath.Join(home, ".config", "sentinel"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile decodes the file at path over cfg. Keys absent from the file keep
// their current value. A missing file is not an error.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(path, overrides)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string, overrides map[string]string) (Config, error) {
	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	cfg.FailOn = strings.ToLower(cfg.FailOn)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables (without prefix) to config keys.
var envKeys = []struct{ env, key string }{
	{"PROVIDER", "provider"},
	{"MODEL", "model"},
	{"EMBEDDING_MODEL", "embeddingModel"},
	{"BASE_URL", "baseURL"},
	{"FORMAT", "format"},
	{"FAIL_ON", "failOn"},
	{"CONTEXT_LIMIT", "contextLimit"},
	{"STORE_BACKEND", "store.backend"},
	{"STORE_PATH", "store.path"},
	{"WEAVIATE_URL", "store.weaviateURL"},
	{"CACHE_ENABLED", "cache.enabled"},
	{"REDACT_SECRETS", "privacy.redactSecrets"},
	{"LOG_LEVEL", "log.level"},
	{"LOG_JSON", "log.json"},
	{"METRICS_TEXTFILE", "metrics.textfile"},
	{"TRACE", "trace.enabled"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(envPrefix + e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for k, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, k, v); err != nil {
			return fmt.Errorf("flag override: %w", err)
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "embeddingModel":
		cfg.EmbeddingModel = value
	case "baseURL":
		cfg.BaseURL = value
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "contextLimit":
		return setInt(&cfg.ContextLimit, key, value)
	case "contextLines":
		return setInt(&cfg.ContextLines, key, value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "store.backend":
		cfg.Store.Backend = value
	case "store.path":
		cfg.Store.Path = value
	case "store.weaviateURL":
		cfg.Store.WeaviateURL = value
	case "store.className":
		cfg.Store.ClassName = value
	case "index.workers":
		return setInt(&cfg.Index.Workers, key, value)
	case "index.batchSize":
		return setInt(&cfg.Index.BatchSize, key, value)
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "privacy.redactSecrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	case "log.level":
		cfg.Log.Level = value
	case "log.json":
		return setBool(&cfg.Log.JSON, key, value)
	case "metrics.textfile":
		cfg.Metrics.Textfile = value
	case "trace.enabled":
		return setBool(&cfg.Trace.Enabled, key, value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
