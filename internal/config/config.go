package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string `mapstructure:"PORT"`   // サーバーポート（8080）
	GoEnv string `mapstructure:"GO_ENV"` // dev/prod

	// postgres | memory
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	DatabaseURL      string `mapstructure:"DATABASE_URL"` // あればPOSTGRES_*より優先
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     int    `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`
	PostgresSSLMode  string `mapstructure:"POSTGRES_SSLMODE"`

	JWTSecret      string        `mapstructure:"JWT_SECRET"` // JWT署名シークレット
	AccessTokenTTL time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	BcryptCost     int           `mapstructure:"BCRYPT_COST"`

	// 空なら商品キャッシュを使わない
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ProductCacheTTL time.Duration `mapstructure:"PRODUCT_CACHE_TTL"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	FEURL    string `mapstructure:"FE_URL"` // フロントURL（CORSで使う）
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var keys = []string{
	"PORT", "GO_ENV", "STORE_DRIVER",
	"DATABASE_URL", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
	"JWT_SECRET", "ACCESS_TOKEN_TTL", "BCRYPT_COST",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "PRODUCT_CACHE_TTL",
	"LOG_LEVEL", "FE_URL",
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// Loadは .env（あれば）と環境変数から読む
func Load() (Config, error) {
	// .envは無くてもよい
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "dev")
	v.SetDefault("STORE_DRIVER", StorePostgres)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "reweave")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("ACCESS_TOKEN_TTL", 15*time.Minute)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PRODUCT_CACHE_TTL", 60*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("FE_URL", "http://localhost:5173")

	v.AutomaticEnv()
	// Unmarshalで環境変数だけのキーも拾うため
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//必須チェック
func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver != StorePostgres && c.StoreDriver != StoreMemory {
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StorePostgres, StoreMemory)
	}
	if c.JWTSecret == "" {
		if c.IsProd() {
			return errors.New("JWT_SECRET is required")
		}
		c.JWTSecret = "dev_secret_change_me"
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// DSN はDATABASE_URLがあればそれを使う
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr はecho.Startに渡す形
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
