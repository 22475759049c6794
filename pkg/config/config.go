package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort matches the port the service has always listened on
	DefaultPort = 10000

	// DefaultYouTubeBaseURL is the YouTube Data API v3 root
	DefaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"
)

// Config holds all configuration options for mediagate
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	YouTube   YouTubeConfig   `yaml:"youtube" json:"youtube"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Media     MediaConfig     `yaml:"media" json:"media"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	CORSOrigins       []string      `yaml:"cors_origins" json:"cors_origins"`
	TrustForwardedFor bool          `yaml:"trust_forwarded_for" json:"trust_forwarded_for"`
	RequireAPIKey     bool          `yaml:"require_api_key" json:"require_api_key"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// YouTubeConfig holds the upstream Data API settings
type YouTubeConfig struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds the per-client admission settings
type RateLimitConfig struct {
	Backend     string        `yaml:"backend" json:"backend"`
	StateFile   string        `yaml:"state_file" json:"state_file"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Window      time.Duration `yaml:"window" json:"window"`
	Redis       RedisConfig   `yaml:"redis" json:"redis"`
}

// RedisConfig is used when the rate limit backend is redis
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// MediaConfig holds the media extraction settings
type MediaConfig struct {
	OutputDir      string        `yaml:"output_dir" json:"output_dir"`
	YtDlpPath      string        `yaml:"ytdlp_path" json:"ytdlp_path"`
	Format         string        `yaml:"format" json:"format"`
	OutputTemplate string        `yaml:"output_template" json:"output_template"`
	Workers        int           `yaml:"workers" json:"workers"`
	Retention      time.Duration `yaml:"retention" json:"retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Rate limit backends
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultConfig returns a Config instance with the service defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            DefaultPort,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		YouTube: YouTubeConfig{
			BaseURL: DefaultYouTubeBaseURL,
			Timeout: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Backend:     BackendFile,
			StateFile:   "rate_limit.json",
			MaxAttempts: 5,
			Window:      24 * time.Hour,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "mediagate:ratelimit",
			},
		},
		Media: MediaConfig{
			OutputDir:      "./downloads",
			YtDlpPath:      "yt-dlp",
			Format:         "bestvideo+bestaudio/best",
			OutputTemplate: "%(id)s.%(ext)s",
			Workers:        2,
			Retention:      5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// API_KEY and PORT keep their historical unprefixed names.
func (c *Config) LoadFromEnv() error {
	var errs []error

	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		c.YouTube.APIKey = apiKey
	}
	if port := os.Getenv("PORT"); port != "" {
		val, err := strconv.Atoi(port)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid PORT %q: %w", port, err))
		} else {
			c.Server.Port = val
		}
	}
	if host := os.Getenv("MEDIAGATE_HOST"); host != "" {
		c.Server.Host = host
	}
	if origins := os.Getenv("MEDIAGATE_CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}
	if trust := os.Getenv("MEDIAGATE_TRUST_FORWARDED_FOR"); trust != "" {
		c.Server.TrustForwardedFor = strings.ToLower(trust) == "true"
	}
	if require := os.Getenv("MEDIAGATE_REQUIRE_API_KEY"); require != "" {
		c.Server.RequireAPIKey = strings.ToLower(require) == "true"
	}

	if baseURL := os.Getenv("MEDIAGATE_YOUTUBE_BASE_URL"); baseURL != "" {
		c.YouTube.BaseURL = baseURL
	}

	if backend := os.Getenv("MEDIAGATE_RATE_LIMIT_BACKEND"); backend != "" {
		c.RateLimit.Backend = strings.ToLower(backend)
	}
	if stateFile := os.Getenv("MEDIAGATE_RATE_LIMIT_FILE"); stateFile != "" {
		c.RateLimit.StateFile = stateFile
	}
	if addr := os.Getenv("MEDIAGATE_REDIS_ADDR"); addr != "" {
		c.RateLimit.Redis.Addr = addr
	}
	if password := os.Getenv("MEDIAGATE_REDIS_PASSWORD"); password != "" {
		c.RateLimit.Redis.Password = password
	}
	if db := os.Getenv("MEDIAGATE_REDIS_DB"); db != "" {
		val, err := strconv.Atoi(db)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid MEDIAGATE_REDIS_DB %q: %w", db, err))
		} else {
			c.RateLimit.Redis.DB = val
		}
	}

	if dir := os.Getenv("MEDIAGATE_MEDIA_DIR"); dir != "" {
		c.Media.OutputDir = dir
	}
	if ytdlp := os.Getenv("MEDIAGATE_YTDLP_PATH"); ytdlp != "" {
		c.Media.YtDlpPath = ytdlp
	}
	if workers := os.Getenv("MEDIAGATE_WORKERS"); workers != "" {
		val, err := strconv.Atoi(workers)
		if err != nil || val <= 0 {
			errs = append(errs, fmt.Errorf("invalid MEDIAGATE_WORKERS %q: must be a positive integer", workers))
		} else {
			c.Media.Workers = val
		}
	}

	if logLevel := os.Getenv("MEDIAGATE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("MEDIAGATE_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // no config file is not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	locations := []string{
		".mediagate.yaml",
		".mediagate.yml",
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		locations = append(locations, filepath.Join(xdg, "mediagate", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".config", "mediagate", "config.yaml"),
			filepath.Join(home, ".mediagate.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.YouTube.APIKey) == "" {
		errs = append(errs, errors.New("API Key not found! Set API_KEY in the environment or .env file"))
	}
	if c.YouTube.BaseURL == "" {
		errs = append(errs, errors.New("youtube base url is required"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Server.Port))
	}

	switch c.RateLimit.Backend {
	case BackendFile:
		if c.RateLimit.StateFile == "" {
			errs = append(errs, errors.New("rate limit state file is required for the file backend"))
		}
	case BackendMemory:
	case BackendRedis:
		if c.RateLimit.Redis.Addr == "" {
			errs = append(errs, errors.New("redis address is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend))
	}
	if c.RateLimit.MaxAttempts <= 0 {
		errs = append(errs, errors.New("rate limit max attempts must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}

	if c.Media.OutputDir == "" {
		errs = append(errs, errors.New("media output directory is required"))
	}
	if c.Media.YtDlpPath == "" {
		errs = append(errs, errors.New("yt-dlp path is required"))
	}
	if c.Media.Workers <= 0 {
		errs = append(errs, errors.New("media workers must be positive"))
	}
	if c.Media.Retention < 0 {
		errs = append(errs, errors.New("media retention cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Server.Host = host
	}
	if stateFile, ok := flags["state-file"].(string); ok && stateFile != "" {
		c.RateLimit.StateFile = stateFile
	}
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.RateLimit.Backend = backend
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Media.OutputDir = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment > .env file > config file > defaults.
// Validation is left to the caller so that operator commands can run
// without the upstream credential.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	return config, nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaskedAPIKey returns the API key with all but the edges hidden
func (c *Config) MaskedAPIKey() string {
	key := c.YouTube.APIKey
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
