package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string
	BaseURL     string // 基础URL，用于邮件中的链接

	// 数据库配置
	DatabaseDriver string // "postgres" 或 "sqlite"
	PostgresDSN    string
	SQLitePath     string

	// 缓存配置
	RedisURL string
	CacheTTL time.Duration

	// JWT配置
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// 邮件配置
	Email EmailConfig

	// CORS配置
	AllowedOrigins []string

	// 调试配置
	Debug bool
}

// EmailConfig 邮件发送配置
type EmailConfig struct {
	FromEmail    string
	ResendAPIKey string
	ResendURL    string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

const defaultJWTSecret = "your-secret-key-change-in-production"

// LoadConfig 加载配置（支持本地和Vercel环境）
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 按优先级加载环境文件，已存在的环境变量不会被覆盖
	switch env {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}
	loadEnvFile(".env")

	config := &Config{
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		Port:            getEnvWithDefault("PORT", "3000"),
		BaseURL:         strings.TrimSpace(getEnvWithDefault("BASE_URL", "http://localhost:3000")),
		DatabaseDriver:  strings.ToLower(getEnvWithDefault("DATABASE_DRIVER", "")),
		SQLitePath:      getEnvWithDefault("SQLITE_PATH", "data/taskboard.db"),
		RedisURL:        strings.TrimSpace(os.Getenv("REDIS_URL")),
		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		JWTSecret:       getEnvWithDefault("JWT_SECRET", defaultJWTSecret),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		Debug:           getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	if config.DatabaseDriver == "" {
		if config.PostgresDSN != "" {
			config.DatabaseDriver = "postgres"
		} else {
			config.DatabaseDriver = "sqlite"
		}
	}

	// 邮件配置
	config.Email = EmailConfig{
		FromEmail:    getEnvWithDefault("EMAIL_FROM", "Taskboard <no-reply@taskboard.local>"),
		ResendAPIKey: strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		ResendURL:    getEnvWithDefault("RESEND_URL", "https://api.resend.com/emails"),
		SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:     getEnvWithDefault("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
	}

	// CORS配置
	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(allowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	// 生产环境关闭调试
	if config.Environment == "production" {
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		slog.Warn("using default JWT secret (not recommended for production)")
	}

	switch c.DatabaseDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DATABASE_DRIVER=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_DRIVER=sqlite")
		}
		if c.IsProduction() {
			slog.Warn("production environment is using SQLite; configure POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	return nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsServerless 检查是否在Vercel/Lambda环境中运行
func IsServerless() bool {
	return os.Getenv("VERCEL_ENV") != "" || os.Getenv("VERCEL_URL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// NewLogger 根据环境创建日志记录器
func (c *Config) NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// 辅助函数

// getEnvWithDefault 获取环境变量，如果不存在则使用默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型的环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration 获取时长类型的环境变量，例如 "15m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// loadEnvFile 加载 .env 文件到环境变量（文件不存在时静默返回）
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); err != nil {
		return
	}
	if err := godotenv.Load(filename); err != nil {
		slog.Warn("failed to load env file", slog.String("file", filename), slog.String("error", err.Error()))
	}
}
