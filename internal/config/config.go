package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goodtune/breakbot/internal/breaks"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Telegram      TelegramConfig      `mapstructure:"telegram" yaml:"telegram"`
	Breaks        BreaksConfig        `mapstructure:"breaks" yaml:"breaks"`
	Fines         FinesConfig         `mapstructure:"fines" yaml:"fines"`
	Schedule      ScheduleConfig      `mapstructure:"schedule" yaml:"schedule"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
	Storage       StorageConfig       `mapstructure:"storage" yaml:"storage"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
}

// TelegramConfig defines the chat transport
type TelegramConfig struct {
	Token            string `mapstructure:"token" yaml:"token"`
	SupervisorChatID int64  `mapstructure:"supervisor_chat_id" yaml:"supervisor_chat_id"`
	PollTimeout      string `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	MessageCacheSize int    `mapstructure:"message_cache_size" yaml:"message_cache_size"`
	Debug            bool   `mapstructure:"debug" yaml:"debug"`
}

// BreaksConfig defines the break rules
type BreaksConfig struct {
	AllowedDuration string                     `mapstructure:"allowed_duration" yaml:"allowed_duration"`
	Types           map[string]BreakTypeConfig `mapstructure:"types" yaml:"types"`
}

// BreakTypeConfig defines the limits of one break type
type BreakTypeConfig struct {
	Limit      int `mapstructure:"limit" yaml:"limit"`
	DailyLimit int `mapstructure:"daily_limit" yaml:"daily_limit"`
}

// FinesConfig defines the fine proposed for a late return
type FinesConfig struct {
	Amount   int    `mapstructure:"amount" yaml:"amount"`
	Currency string `mapstructure:"currency" yaml:"currency"`
}

// ScheduleConfig defines when daily state is cleared
type ScheduleConfig struct {
	DailyResetTime string `mapstructure:"daily_reset_time" yaml:"daily_reset_time"`
}

// NotificationsConfig defines the outbound notification queue
type NotificationsConfig struct {
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// ServerConfig defines the health and metrics listener
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`
	Port        int    `mapstructure:"port" yaml:"port"`
}

// StorageConfig defines the journal backend
type StorageConfig struct {
	Type          string      `mapstructure:"type" yaml:"type"`
	Path          string      `mapstructure:"path" yaml:"path"`
	RetentionDays int         `mapstructure:"retention_days" yaml:"retention_days"`
	Redis         RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Password     string `mapstructure:"password" yaml:"password"`
	DB           int    `mapstructure:"db" yaml:"db"`
	PoolSize     int    `mapstructure:"pool_size" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Storage backends
const (
	StorageMemory = "memory"
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
)

// Load loads configuration from file and environment variables. An empty
// path searches the default locations; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration with nothing but default values
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// UnknownKeys lists keys in the config file that no setting reads
func UnknownKeys(configPath string) ([]string, error) {
	if configPath == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	defaults := viper.New()
	setDefaults(defaults)
	valid := make(map[string]bool)
	for _, key := range defaults.AllKeys() {
		valid[key] = true
	}

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if valid[key] {
			continue
		}
		// Break types are validated by name, their fields here
		if rest, ok := strings.CutPrefix(key, "breaks.types."); ok {
			if _, field, ok := strings.Cut(rest, "."); ok && (field == "limit" || field == "daily_limit") {
				continue
			}
		}
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)

	return unknown, nil
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("breakbot")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/breakbot")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("BREAKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by earlier deployments
	_ = v.BindEnv("telegram.token", "BREAKBOT_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.supervisor_chat_id", "BREAKBOT_TELEGRAM_SUPERVISOR_CHAT_ID", "ADMIN_CHAT_ID")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	return v, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Telegram defaults
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.supervisor_chat_id", 0)
	v.SetDefault("telegram.poll_timeout", "60s")
	v.SetDefault("telegram.message_cache_size", 1024)
	v.SetDefault("telegram.debug", false)

	// Break defaults
	v.SetDefault("breaks.allowed_duration", "15m")
	for t, l := range breaks.DefaultLimits() {
		v.SetDefault(fmt.Sprintf("breaks.types.%s.limit", t), l.Concurrency)
		v.SetDefault(fmt.Sprintf("breaks.types.%s.daily_limit", t), l.Daily)
	}

	// Fine defaults
	v.SetDefault("fines.amount", breaks.DefaultFineAmount)
	v.SetDefault("fines.currency", breaks.DefaultFineCurrency)

	// Schedule defaults
	v.SetDefault("schedule.daily_reset_time", "00:00")

	// Notification defaults
	v.SetDefault("notifications.queue_size", 256)

	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.port", 10000)

	// Storage defaults
	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.path", "/var/lib/breakbot/journal.bolt")
	v.SetDefault("storage.retention_days", 90)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if _, err := cfg.BreakRules(); err != nil {
		return err
	}

	if _, err := time.Parse("15:04", cfg.Schedule.DailyResetTime); err != nil {
		return fmt.Errorf("invalid daily_reset_time %q (want HH:MM)", cfg.Schedule.DailyResetTime)
	}

	if _, err := time.ParseDuration(cfg.Telegram.PollTimeout); err != nil {
		return fmt.Errorf("invalid poll_timeout %q: %w", cfg.Telegram.PollTimeout, err)
	}

	if cfg.Notifications.QueueSize <= 0 {
		return fmt.Errorf("notification queue_size must be positive, got %d", cfg.Notifications.QueueSize)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", cfg.Logging.Level)
	}

	switch cfg.Storage.Type {
	case StorageMemory:
	case StorageBolt:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for bolt storage")
		}
	case StorageRedis:
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required for redis storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s (memory, bolt or redis)", cfg.Storage.Type)
	}

	if cfg.Storage.RetentionDays <= 0 {
		return fmt.Errorf("storage retention_days must be positive, got %d", cfg.Storage.RetentionDays)
	}

	return nil
}

// RequireTelegram checks the settings only the bot itself needs
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (telegram.token or TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.SupervisorChatID == 0 {
		return fmt.Errorf("supervisor chat id is required (telegram.supervisor_chat_id or ADMIN_CHAT_ID)")
	}
	return nil
}

// BreakRules converts the break, fine and duration settings into the
// rules the break service enforces.
func (c *Config) BreakRules() (breaks.Config, error) {
	allowed, err := time.ParseDuration(c.Breaks.AllowedDuration)
	if err != nil {
		return breaks.Config{}, fmt.Errorf("invalid allowed_duration %q: %w", c.Breaks.AllowedDuration, err)
	}

	limits := make(map[breaks.BreakType]breaks.Limits, len(c.Breaks.Types))
	for name, tc := range c.Breaks.Types {
		t := breaks.ParseBreakType(name)
		if !t.Valid() {
			return breaks.Config{}, fmt.Errorf("break type %q: %w", name, breaks.ErrUnknownBreakType)
		}
		limits[t] = breaks.Limits{Concurrency: tc.Limit, Daily: tc.DailyLimit}
	}

	rules := breaks.Config{
		Limits:          limits,
		AllowedDuration: allowed,
		FineAmount:      c.Fines.Amount,
		FineCurrency:    c.Fines.Currency,
	}
	if err := rules.Validate(); err != nil {
		return breaks.Config{}, err
	}

	return rules, nil
}

// PollTimeout returns the long-polling timeout
func (c *Config) PollTimeout() time.Duration {
	d, err := time.ParseDuration(c.Telegram.PollTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ListenAddr is the health and metrics listen address
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// Retention is how long journal entries are kept
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}
