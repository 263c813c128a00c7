package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Default branding, overridable by env and by the setname command.
const (
	DefaultBotName   = "FY'S PROPERTY"
	DefaultPromoLink = "https://iili.io/374CjBj.jpg"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Admin configuration
	Admin AdminConfig

	// Bot branding configuration
	Bot BotConfig

	// Store configuration
	Store StoreConfig

	// Web status page configuration
	Web WebConfig

	// Sweep interval for the scheduled-delivery queue
	SweepInterval time.Duration

	// Timeout for one outbound send attempt
	SendTimeout time.Duration

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// AdminConfig identifies the single operator
type AdminConfig struct {
	// OpenID is the administrator's sender identifier
	OpenID string
}

// BotConfig contains branding configuration
type BotConfig struct {
	Name           string
	PromoLink      string
	PromoImagePath string // optional; empty disables rich sends
}

// StoreConfig contains persistence configuration
type StoreConfig struct {
	DBPath string
}

// WebConfig contains the status page configuration
type WebConfig struct {
	Addr    string
	Enabled bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// State DB path
	dbPath := os.Getenv("STORE_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".feishu-promo-bot", "bot.db")
	}

	// Sweep interval
	sweepSeconds := 60
	if val := os.Getenv("SWEEP_INTERVAL_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			sweepSeconds = parsed
		}
	}

	// Per-send timeout
	sendSeconds := 10
	if val := os.Getenv("SEND_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			sendSeconds = parsed
		}
	}

	botName := os.Getenv("BOT_NAME")
	if botName == "" {
		botName = DefaultBotName
	}

	promoLink := os.Getenv("PROMO_LINK")
	if promoLink == "" {
		promoLink = DefaultPromoLink
	}

	webAddr := os.Getenv("WEB_ADDR")
	if webAddr == "" {
		webAddr = ":3000"
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Admin: AdminConfig{
			OpenID: os.Getenv("ADMIN_OPEN_ID"),
		},
		Bot: BotConfig{
			Name:           botName,
			PromoLink:      promoLink,
			PromoImagePath: os.Getenv("PROMO_IMAGE_PATH"),
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		Web: WebConfig{
			Addr:    webAddr,
			Enabled: os.Getenv("WEB_DISABLED") != "true",
		},
		SweepInterval: time.Duration(sweepSeconds) * time.Second,
		SendTimeout:   time.Duration(sendSeconds) * time.Second,
		Debug:         os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Admin.OpenID == "" {
		return &ConfigError{Field: "ADMIN_OPEN_ID", Message: "required"}
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
