package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. UQ_JWT_SECRET
const EnvPrefix = "UQ"

// Config holds all configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Auth      AuthConfig      `mapstructure:"auth"`
	AI        AIConfig        `mapstructure:"ai"`
	Presence  PresenceConfig  `mapstructure:"presence"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	Mode           string   `mapstructure:"mode"`
	MachineId      uint16   `mapstructure:"machine_id"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AutoMigrate    bool     `mapstructure:"auto_migrate"`
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN returns the MySQL data source name
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	MaxConnNum       int64         `mapstructure:"max_conn_num"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	PushChannelSize  int           `mapstructure:"push_channel_size"`
	PushWorkerNum    int           `mapstructure:"push_worker_num"`
	WriteChannelSize int           `mapstructure:"write_channel_size"`
	OnlineTTL        time.Duration `mapstructure:"online_ttl"`
}

// AuthConfig holds magic link login configuration
type AuthConfig struct {
	MagicLinkTTL      time.Duration `mapstructure:"magic_link_ttl"`
	MagicLinkCooldown time.Duration `mapstructure:"magic_link_cooldown"`
	MagicLinkURL      string        `mapstructure:"magic_link_url"`

	// MaxVerifyAttempts wrong codes burn the pending code
	MaxVerifyAttempts int     `mapstructure:"max_verify_attempts"`
	VerifyRPS         float64 `mapstructure:"verify_rps"`
	VerifyBurst       int     `mapstructure:"verify_burst"`
}

// AIConfig holds the text completion provider configuration.
// AI features are disabled when APIKey is empty.
type AIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	APIVersion string        `mapstructure:"api_version"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateRPS    float64       `mapstructure:"rate_rps"`
	RateBurst  int           `mapstructure:"rate_burst"`
}

// Enabled reports whether AI calls should be made
func (c *AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// PresenceConfig holds the away sweeper configuration
type PresenceConfig struct {
	Cron      string        `mapstructure:"cron"`
	AwayAfter time.Duration `mapstructure:"away_after"`
}

// Global config instance
var GlobalConfig *Config

// secrets are usually only present in the environment, so they are bound explicitly
var envBindings = []string{
	"jwt.secret",
	"mysql.password",
	"redis.password",
	"ai.api_key",
}

// Load loads configuration from file, then .env and UQ_* environment overrides
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envBindings {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Server.MachineId == 0 {
		cfg.Server.MachineId = 1
	}
	if cfg.MySQL.Charset == "" {
		cfg.MySQL.Charset = "utf8mb4"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "uq:"
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 168 // 7 days
	}
	if cfg.WebSocket.MaxConnNum == 0 {
		cfg.WebSocket.MaxConnNum = 10000
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 51200
	}
	if cfg.WebSocket.WriteWait == 0 {
		cfg.WebSocket.WriteWait = 10 * time.Second
	}
	if cfg.WebSocket.PongWait == 0 {
		cfg.WebSocket.PongWait = 30 * time.Second
	}
	if cfg.WebSocket.PingPeriod == 0 {
		cfg.WebSocket.PingPeriod = 27 * time.Second
	}
	if cfg.WebSocket.PushChannelSize == 0 {
		cfg.WebSocket.PushChannelSize = 10000
	}
	if cfg.WebSocket.PushWorkerNum == 0 {
		cfg.WebSocket.PushWorkerNum = 10
	}
	if cfg.WebSocket.WriteChannelSize == 0 {
		cfg.WebSocket.WriteChannelSize = 256
	}
	if cfg.WebSocket.OnlineTTL == 0 {
		cfg.WebSocket.OnlineTTL = 60 * time.Second
	}
	if cfg.Auth.MagicLinkTTL == 0 {
		cfg.Auth.MagicLinkTTL = 15 * time.Minute
	}
	if cfg.Auth.MagicLinkCooldown == 0 {
		cfg.Auth.MagicLinkCooldown = time.Minute
	}
	if cfg.Auth.MaxVerifyAttempts == 0 {
		cfg.Auth.MaxVerifyAttempts = 5
	}
	if cfg.Auth.VerifyRPS == 0 {
		cfg.Auth.VerifyRPS = 0.2
	}
	if cfg.Auth.VerifyBurst == 0 {
		cfg.Auth.VerifyBurst = 5
	}
	if cfg.Auth.MagicLinkURL == "" {
		cfg.Auth.MagicLinkURL = fmt.Sprintf("http://localhost:%d/auth/verify", cfg.Server.HTTPPort)
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.anthropic.com"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.AI.APIVersion == "" {
		cfg.AI.APIVersion = "2023-06-01"
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30 * time.Second
	}
	if cfg.AI.RateRPS == 0 {
		cfg.AI.RateRPS = 0.5
	}
	if cfg.AI.RateBurst == 0 {
		cfg.AI.RateBurst = 5
	}
	if cfg.Presence.Cron == "" {
		cfg.Presence.Cron = "* * * * *"
	}
	if cfg.Presence.AwayAfter == 0 {
		cfg.Presence.AwayAfter = 10 * time.Minute
	}
}

// Validate checks values that defaults cannot repair
func (cfg *Config) Validate() error {
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is required (set UQ_JWT_SECRET)")
	}
	if cfg.WebSocket.PingPeriod >= cfg.WebSocket.PongWait {
		return fmt.Errorf("websocket.ping_period %s must be shorter than pong_wait %s",
			cfg.WebSocket.PingPeriod, cfg.WebSocket.PongWait)
	}
	if !gronx.IsValid(cfg.Presence.Cron) {
		return fmt.Errorf("invalid presence cron expression: %s", cfg.Presence.Cron)
	}
	return nil
}
