package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Bot struct {
		Token        string
		PollTimeout  int // seconds passed to getUpdates
		AdminChatIDs []int64
		Debug        bool
	}

	Pricing struct {
		ContactCost    int64 // wallet units charged for a contact reveal
		ReferralPct    int64 // referrer bonus as percent of the first purchase
		SuggestionPool int   // random-order pool cap for candidate selection
	}

	App struct {
		ENV string
	}
}

func New() *Config {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "bot")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "datingbot")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// Telegram
	cfg.Bot.Token = os.Getenv("BOT_TOKEN")
	cfg.Bot.PollTimeout = getEnvInt("BOT_POLL_TIMEOUT", 30)
	cfg.Bot.Debug = isTruthy(os.Getenv("BOT_DEBUG"))
	for _, part := range strings.Split(os.Getenv("BOT_ADMIN_CHAT_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			cfg.Bot.AdminChatIDs = append(cfg.Bot.AdminChatIDs, id)
		}
	}

	// Pricing
	cfg.Pricing.ContactCost = int64(getEnvInt("CONTACT_COST", 50000))
	cfg.Pricing.ReferralPct = int64(getEnvInt("REFERRAL_PERCENT", 10))
	cfg.Pricing.SuggestionPool = getEnvInt("SUGGESTION_POOL", 50)

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	return cfg
}

// IsAdmin reports whether the chat id belongs to a configured admin.
func (c *Config) IsAdmin(chatID int64) bool {
	for _, id := range c.Bot.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
