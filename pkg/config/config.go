package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig represents server configuration
type ServerConfig struct {
	Address string        `yaml:"address"`
	TLS     TLSConfig     `yaml:"tls"`
	Web     WebConfig     `yaml:"web"`
	Store   StoreConfig   `yaml:"store"`
	Stats   StatsConfig   `yaml:"stats"`
	Logging LoggingConfig `yaml:"logging"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// TLSConfig represents TLS settings
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// WebConfig represents the plain HTTP surface (landing page and assets)
type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig represents the shared key-value store settings
type StoreConfig struct {
	Type     string `yaml:"type"` // redis | sqlite | memory
	Addr     string `yaml:"addr"` // redis address
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Path     string `yaml:"path"` // sqlite file path
}

// StatsConfig represents the ancillary stats fetch settings
type StatsConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LimitsConfig represents per-connection limits
type LimitsConfig struct {
	FramesPerSecond float64 `yaml:"frames_per_second"`
	FrameBurst      int     `yaml:"frame_burst"`
	SendBuffer      int     `yaml:"send_buffer"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Address: ":8080",
		TLS: TLSConfig{
			Enabled:  false,
			CertFile: "",
			KeyFile:  "",
		},
		Web: WebConfig{
			StaticDir: "./web/static",
		},
		Store: StoreConfig{
			Type: "redis",
			Addr: "localhost:6379",
			DB:   0,
			Path: "./gomoku.db",
		},
		Stats: StatsConfig{
			URL: "http://localhost:8000/api/player/top",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			FramesPerSecond: 50,
			FrameBurst:      100,
			SendBuffer:      256,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*ServerConfig, error) {
	config := DefaultConfig()

	// Load from file if provided
	if configPath != "" {
		if err := loadFromFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	applyEnvOverrides(config)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(path string, config *ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(config *ServerConfig) {
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		config.Address = addr
	}

	if storeType := os.Getenv("STORE_TYPE"); storeType != "" {
		config.Store.Type = storeType
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		config.Store.Addr = redisAddr
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Store.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if val, err := strconv.Atoi(redisDB); err == nil {
			config.Store.DB = val
		}
	}

	if storePath := os.Getenv("STORE_PATH"); storePath != "" {
		config.Store.Path = storePath
	}

	if statsURL := os.Getenv("STATS_URL"); statsURL != "" {
		config.Stats.URL = statsURL
	}

	if staticDir := os.Getenv("STATIC_DIR"); staticDir != "" {
		config.Web.StaticDir = staticDir
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}

	if tlsEnabled := os.Getenv("TLS_ENABLED"); tlsEnabled != "" {
		config.TLS.Enabled = tlsEnabled == "true"
	}

	if certFile := os.Getenv("TLS_CERT_FILE"); certFile != "" {
		config.TLS.CertFile = certFile
	}

	if keyFile := os.Getenv("TLS_KEY_FILE"); keyFile != "" {
		config.TLS.KeyFile = keyFile
	}
}

// Validate validates the configuration
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	switch c.Store.Type {
	case "redis":
		if c.Store.Addr == "" {
			return fmt.Errorf("redis store requires an address")
		}
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite store requires a path")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert/key files not provided")
		}

		if _, err := os.Stat(c.TLS.CertFile); err != nil {
			return fmt.Errorf("certificate file not found: %w", err)
		}

		if _, err := os.Stat(c.TLS.KeyFile); err != nil {
			return fmt.Errorf("key file not found: %w", err)
		}
	}

	if c.Limits.FramesPerSecond <= 0 {
		return fmt.Errorf("frames per second must be positive")
	}

	if c.Limits.FrameBurst < 1 {
		return fmt.Errorf("frame burst must be at least 1")
	}

	if c.Limits.SendBuffer < 1 {
		return fmt.Errorf("send buffer must be at least 1")
	}

	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	valid := []string{"debug", "info", "warn", "error"}
	level = strings.ToLower(level)
	for _, v := range valid {
		if level == v {
			return true
		}
	}
	return false
}

// String returns a string representation of the configuration (for logging)
func (c *ServerConfig) String() string {
	return fmt.Sprintf("Config{Address: %s, Store: %s, TLS: %v, LogLevel: %s}",
		c.Address, c.Store.Type, c.TLS.Enabled, c.Logging.Level)
}
