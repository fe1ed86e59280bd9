// Package config provides configuration management using viper.
// It supports loading from YAML files, a local .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Bot         BotConfig         `mapstructure:"bot"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Whitelist   WhitelistConfig   `mapstructure:"whitelist"`
	Assets      AssetsConfig      `mapstructure:"assets"`
	Render      RenderConfig      `mapstructure:"render"`
	Round       RoundConfig       `mapstructure:"round"`
	Store       StoreConfig       `mapstructure:"store"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds the player store connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// AssetsConfig points at the paired image directories and the render templates.
type AssetsConfig struct {
	Dir        string `mapstructure:"dir"`
	AIDir      string `mapstructure:"ai_dir"`
	HumanDir   string `mapstructure:"human_dir"`
	Background string `mapstructure:"background"`
	Font       string `mapstructure:"font"`
}

// Point is a pixel position on the canvas.
type Point struct {
	X int `mapstructure:"x"`
	Y int `mapstructure:"y"`
}

// RenderConfig holds the composite layout. Slots[0] is the left image, Slots[1] the right one.
type RenderConfig struct {
	Width         int     `mapstructure:"width"`
	Height        int     `mapstructure:"height"`
	SquareSize    int     `mapstructure:"square_size"`
	WideCropRatio float64 `mapstructure:"wide_crop_ratio"`
	Slots         []Point `mapstructure:"slots"`
	LabelX        int     `mapstructure:"label_x"`
	LabelY        int     `mapstructure:"label_y"`
	LabelFormat   string  `mapstructure:"label_format"`
	FontSize      float64 `mapstructure:"font_size"`
	JPEGQuality   int     `mapstructure:"jpeg_quality"`
	Workers       int     `mapstructure:"workers"`
}

// RoundConfig holds round lifecycle configuration.
type RoundConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig holds the per-call timeout applied at the store boundary.
type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LeaderboardConfig holds leaderboard configuration.
type LeaderboardConfig struct {
	Size int `mapstructure:"size"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// AIPath returns the directory holding AI-generated images.
func (a *AssetsConfig) AIPath() string {
	return filepath.Join(a.Dir, a.AIDir)
}

// HumanPath returns the directory holding the human originals.
func (a *AssetsConfig) HumanPath() string {
	return filepath.Join(a.Dir, a.HumanDir)
}

// BackgroundPath returns the background template path. Relative paths resolve against Dir.
func (a *AssetsConfig) BackgroundPath() string {
	if filepath.IsAbs(a.Background) {
		return a.Background
	}
	return filepath.Join(a.Dir, a.Background)
}

// FontPath returns the configured TTF path, or "" for the embedded default.
func (a *AssetsConfig) FontPath() string {
	if a.Font == "" || filepath.IsAbs(a.Font) {
		return a.Font
	}
	return filepath.Join(a.Dir, a.Font)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., BOT_TOKEN, DATABASE_DRIVER, ROUND_IDLE_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the round engine cannot run without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if len(c.Render.Slots) != 2 {
		return fmt.Errorf("render.slots must hold exactly 2 positions, got %d", len(c.Render.Slots))
	}
	if c.Render.SquareSize <= 0 || c.Render.WideCropRatio <= 0 || c.Render.WideCropRatio > 1 {
		return fmt.Errorf("invalid square crop settings: size=%d ratio=%v", c.Render.SquareSize, c.Render.WideCropRatio)
	}
	if c.Round.IdleTimeout <= 0 {
		return fmt.Errorf("round.idle_timeout must be positive")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")

	// Database defaults
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "spotai")
	v.SetDefault("database.name", "spotai")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.sqlite_path", "spotai.db")

	// Asset defaults
	v.SetDefault("assets.dir", "assets")
	v.SetDefault("assets.ai_dir", "ai")
	v.SetDefault("assets.human_dir", "human")
	v.SetDefault("assets.background", "background.png")

	// Layout defaults match the 1920x1080 background template
	v.SetDefault("render.width", 1920)
	v.SetDefault("render.height", 1080)
	v.SetDefault("render.square_size", 874)
	v.SetDefault("render.wide_crop_ratio", 0.874)
	v.SetDefault("render.slots", []map[string]any{
		{"x": 18, "y": 171},
		{"x": 1091, "y": 175},
	})
	v.SetDefault("render.label_x", 1650)
	v.SetDefault("render.label_y", 100)
	v.SetDefault("render.label_format", "LEVEL %s")
	v.SetDefault("render.font_size", 45)
	v.SetDefault("render.jpeg_quality", 90)
	v.SetDefault("render.workers", 4)

	v.SetDefault("round.idle_timeout", "60s")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("leaderboard.size", 10)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
