package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults
const (
	DefaultAPIBase           = "https://u.icq.net/api/v14"
	DefaultPollTimeout       = 30 * time.Second
	DefaultRetryDelay        = 5 * time.Second
	DefaultDisconnectedDelay = 5 * time.Second
)

// Config represents application configuration
type Config struct {
	// ICQ account and endpoint
	ICQ ICQConfig

	// Event poller timing
	Poll PollConfig

	// Local storage
	Storage StorageConfig

	// Prompts shown to the user (loaded from YAML)
	Prompts *PromptsConfig

	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// Debug mode
	Debug bool
}

// ICQConfig contains ICQ configuration
type ICQConfig struct {
	Phone   string
	APIBase string
	DevID   string // Empty means the web client key
}

// PollConfig contains long-poll timing
type PollConfig struct {
	Timeout           time.Duration // Sent to the service as the long-poll timeout
	RetryDelay        time.Duration // Flat delay after a failed poll
	DisconnectedDelay time.Duration // Delay between checks while the account is disconnected
}

// StorageConfig contains storage configuration
type StorageConfig struct {
	DBPath string
}

// LoadFromEnv loads configuration from the YAML file, then environment variables
func LoadFromEnv() *Config {
	file, _ := LoadFile(os.Getenv("ICQ_CONFIG_PATH"))

	dbPath := os.Getenv("ICQ_DB_PATH")
	if dbPath == "" {
		dbPath = file.Storage.DBPath
	}
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".icq-bridge", "icq.db")
	}

	apiBase := firstNonEmpty(os.Getenv("ICQ_API_BASE"), file.ICQ.APIBase, DefaultAPIBase)

	pollTimeout := envDuration("ICQ_POLL_TIMEOUT_MS", time.Millisecond, file.Poll.TimeoutMS, DefaultPollTimeout)
	retryDelay := envDuration("ICQ_RETRY_DELAY_SEC", time.Second, file.Poll.RetryDelaySec, DefaultRetryDelay)
	disconnectedDelay := envDuration("ICQ_DISCONNECTED_DELAY_SEC", time.Second, file.Poll.DisconnectedDelaySec, DefaultDisconnectedDelay)

	return &Config{
		ICQ: ICQConfig{
			Phone:   firstNonEmpty(os.Getenv("ICQ_PHONE"), file.ICQ.Phone),
			APIBase: apiBase,
			DevID:   firstNonEmpty(os.Getenv("ICQ_DEV_ID"), file.ICQ.DevID),
		},
		Poll: PollConfig{
			Timeout:           pollTimeout,
			RetryDelay:        retryDelay,
			DisconnectedDelay: disconnectedDelay,
		},
		Storage: StorageConfig{
			DBPath: dbPath,
		},
		Prompts:  &file.Prompts,
		LogLevel: firstNonEmpty(os.Getenv("LOG_LEVEL"), file.LogLevel, "info"),
		Debug:    os.Getenv("DEBUG") == "true",
	}
}

// envDuration reads an integer env var in the given unit, then the file value, then the default
func envDuration(key string, unit time.Duration, fileValue int, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	if fileValue > 0 {
		return time.Duration(fileValue) * unit
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ICQ.Phone == "" {
		return &ConfigError{Field: "ICQ_PHONE", Message: "required"}
	}
	if c.Storage.DBPath == "" {
		return &ConfigError{Field: "ICQ_DB_PATH", Message: "required"}
	}
	if c.Poll.RetryDelay <= 0 || c.Poll.DisconnectedDelay <= 0 {
		return &ConfigError{Field: "ICQ_RETRY_DELAY_SEC/ICQ_DISCONNECTED_DELAY_SEC", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
