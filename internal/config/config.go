package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all quill configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Remote  RemoteConfig  `yaml:"remote"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxRequestTimeout time.Duration `yaml:"max_request_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxConcurrent     int           `yaml:"max_concurrent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	ExposeErrors      bool          `yaml:"expose_errors"`
}

// EngineConfig holds correction engine settings.
type EngineConfig struct {
	Backend         string `yaml:"backend"` // "onnx", "gemini", "openai"
	ModelDir        string `yaml:"model_dir"`
	ORTLib          string `yaml:"ort_lib"`
	Threads         int    `yaml:"threads"`
	Serialize       bool   `yaml:"serialize"` // one correction at a time inside the engine
	NumBeams        int    `yaml:"num_beams"`
	MaxInputLength  int    `yaml:"max_input_length"`
	MaxOutputLength int    `yaml:"max_output_length"`
}

// RemoteConfig holds credentials for the hosted backends.
type RemoteConfig struct {
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	GeminiModel   string `yaml:"gemini_model"`
	GeminiBaseURL string `yaml:"gemini_base_url"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":5000",
			RequestTimeout:    60 * time.Second,
			MaxRequestTimeout: 300 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxConcurrent:     1,
			MaxBodyBytes:      64 << 10,
		},
		Engine: EngineConfig{
			Backend:         "onnx",
			ModelDir:        "models",
			Threads:         4,
			Serialize:       true,
			NumBeams:        4,
			MaxInputLength:  512,
			MaxOutputLength: 512,
		},
		Remote: RemoteConfig{
			GeminiModel: "gemini-2.0-flash",
			OpenAIModel: "gpt-4o-mini",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// QUILL_CONFIG (if any), then QUILL_* environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("QUILL_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	s := &cfg.Server
	s.Addr = getenv("QUILL_ADDR", s.Addr)
	s.RequestTimeout = getenvDuration("QUILL_REQUEST_TIMEOUT", s.RequestTimeout)
	s.MaxRequestTimeout = getenvDuration("QUILL_MAX_REQUEST_TIMEOUT", s.MaxRequestTimeout)
	s.ShutdownTimeout = getenvDuration("QUILL_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxConcurrent = getenvInt("QUILL_MAX_CONCURRENT", s.MaxConcurrent)
	s.MaxBodyBytes = int64(getenvInt("QUILL_MAX_BODY_BYTES", int(s.MaxBodyBytes)))
	s.ExposeErrors = getenvBool("QUILL_EXPOSE_ERRORS", s.ExposeErrors)

	e := &cfg.Engine
	e.Backend = getenv("QUILL_BACKEND", e.Backend)
	e.ModelDir = getenv("QUILL_MODEL_DIR", e.ModelDir)
	e.ORTLib = getenv("QUILL_ORT_LIB", e.ORTLib)
	e.Threads = getenvInt("QUILL_THREADS", e.Threads)
	e.Serialize = getenvBool("QUILL_SERIALIZE_ENGINE", e.Serialize)
	e.NumBeams = getenvInt("QUILL_NUM_BEAMS", e.NumBeams)
	e.MaxInputLength = getenvInt("QUILL_MAX_INPUT_LENGTH", e.MaxInputLength)
	e.MaxOutputLength = getenvInt("QUILL_MAX_OUTPUT_LENGTH", e.MaxOutputLength)

	r := &cfg.Remote
	r.GeminiAPIKey = getenv("QUILL_GEMINI_API_KEY", r.GeminiAPIKey)
	r.GeminiModel = getenv("QUILL_GEMINI_MODEL", r.GeminiModel)
	r.GeminiBaseURL = getenv("QUILL_GEMINI_BASE_URL", r.GeminiBaseURL)
	r.OpenAIAPIKey = getenv("QUILL_OPENAI_API_KEY", r.OpenAIAPIKey)
	r.OpenAIModel = getenv("QUILL_OPENAI_MODEL", r.OpenAIModel)
	r.OpenAIBaseURL = getenv("QUILL_OPENAI_BASE_URL", r.OpenAIBaseURL)

	l := &cfg.Logging
	l.Level = getenv("QUILL_LOG_LEVEL", l.Level)
	l.Format = getenv("QUILL_LOG_FORMAT", l.Format)
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Engine.Backend {
	case "onnx", "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Engine.Backend))
	}
	if c.Server.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent must be >= 1, got %d", c.Server.MaxConcurrent))
	}
	if c.Server.MaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be >= 1, got %d", c.Server.MaxBodyBytes))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %v", c.Server.RequestTimeout))
	}
	if c.Server.MaxRequestTimeout < c.Server.RequestTimeout {
		errs = append(errs, fmt.Errorf("max_request_timeout %v is below request_timeout %v",
			c.Server.MaxRequestTimeout, c.Server.RequestTimeout))
	}
	if c.Engine.NumBeams < 1 {
		errs = append(errs, fmt.Errorf("num_beams must be >= 1, got %d", c.Engine.NumBeams))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getenvDuration accepts Go durations ("90s") or bare seconds ("90").
func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
