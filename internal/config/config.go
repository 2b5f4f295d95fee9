// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"` // used for deep links (t.me/<username>?start=...)
	Workers  int    `yaml:"workers"`  // polling workers
}

// ChatConfig describes the shared group the posts go to.
// Topics maps a theme name onto the forum thread id of its sub-channel.
type ChatConfig struct {
	ID     int64            `yaml:"id"`
	Topics map[string]int64 `yaml:"topics"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // draft cache lifetime
}

type YooKassaConfig struct {
	ShopID    string `yaml:"shop_id"`
	SecretKey string `yaml:"secret_key"`
	ReturnURL string `yaml:"return_url"`
	BaseURL   string `yaml:"base_url"`
}

type PaymentConfig struct {
	Provider string         `yaml:"provider"` // yookassa | noop
	PriceRUB int64          `yaml:"price_rub"`
	YooKassa YooKassaConfig `yaml:"yookassa"`
}

type PublishConfig struct {
	Lifetime     time.Duration `yaml:"lifetime"`
	RequireTheme bool          `yaml:"require_theme"`
}

type SchedulerConfig struct {
	Mode     string        `yaml:"mode"` // inline | queue
	Interval time.Duration `yaml:"interval"`
	Backoff  time.Duration `yaml:"backoff"`
	QueueKey string        `yaml:"queue_key"`
}

type AntiSpamConfig struct {
	MinInterval   time.Duration `yaml:"min_interval"`
	MaxViolations int           `yaml:"max_violations"`
	BanTime       time.Duration `yaml:"ban_time"`
}

type MessengerConfig struct {
	MaxInFlight int64         `yaml:"max_in_flight"`
	MinSpacing  time.Duration `yaml:"min_spacing"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Chat      ChatConfig      `yaml:"chat"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Publish   PublishConfig   `yaml:"publish"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	AntiSpam  AntiSpamConfig  `yaml:"antispam"`
	Messenger MessengerConfig `yaml:"messenger"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses the -config and -dev flags, loads an optional .env file
// and reads the YAML config with ${VAR} references expanded from the environment.
func LoadConfig() (*Config, error) {
	var configPath string
	var envPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.StringVar(&envPath, "env", ".env", "path to optional .env file")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env: %w", err)
	}

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse expands environment references in raw YAML, applies defaults and validates.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "yookassa"
	}
	if cfg.Payment.PriceRUB <= 0 {
		cfg.Payment.PriceRUB = 150
	}
	if cfg.Payment.YooKassa.BaseURL == "" {
		cfg.Payment.YooKassa.BaseURL = "https://api.yookassa.ru/v3"
	}
	if cfg.Payment.YooKassa.ReturnURL == "" && cfg.Bot.Username != "" {
		cfg.Payment.YooKassa.ReturnURL = "https://t.me/" + cfg.Bot.Username
	}

	if cfg.Publish.Lifetime <= 0 {
		cfg.Publish.Lifetime = 30 * 24 * time.Hour
	}

	if cfg.Scheduler.Mode == "" {
		cfg.Scheduler.Mode = "inline"
	}
	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = 12 * time.Hour
	}
	if cfg.Scheduler.Backoff <= 0 {
		cfg.Scheduler.Backoff = 5 * time.Minute
	}
	if cfg.Scheduler.QueueKey == "" {
		cfg.Scheduler.QueueKey = "task_queue"
	}

	if cfg.AntiSpam.MinInterval <= 0 {
		cfg.AntiSpam.MinInterval = time.Second
	}
	if cfg.AntiSpam.MaxViolations <= 0 {
		cfg.AntiSpam.MaxViolations = 3
	}
	if cfg.AntiSpam.BanTime <= 0 {
		cfg.AntiSpam.BanTime = 10 * time.Second
	}

	if cfg.Messenger.MaxInFlight <= 0 {
		cfg.Messenger.MaxInFlight = 20
	}
	if cfg.Messenger.MinSpacing <= 0 {
		cfg.Messenger.MinSpacing = 50 * time.Millisecond
	}
	if cfg.Messenger.CallTimeout <= 0 {
		cfg.Messenger.CallTimeout = 10 * time.Second
	}
}

func (cfg *Config) validate() error {
	// Minimal validation
	if cfg.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if cfg.Chat.ID == 0 {
		return errors.New("chat.id is required")
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	switch cfg.Payment.Provider {
	case "yookassa", "noop":
	default:
		return fmt.Errorf("payment.provider %q is not supported", cfg.Payment.Provider)
	}
	switch cfg.Scheduler.Mode {
	case "inline", "queue":
	default:
		return fmt.Errorf("scheduler.mode %q is not supported", cfg.Scheduler.Mode)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Minute
	}
	return d
}
