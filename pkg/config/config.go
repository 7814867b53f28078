package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Store         StoreConfig
	Checkouts     CheckoutsConfig
	Cron          CronConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CARTRESCUE_APP_ENV" required:"true"`
	Port         string   `envconfig:"CARTRESCUE_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"CARTRESCUE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CARTRESCUE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"CARTRESCUE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CARTRESCUE_DB_DSN" required:"true"`
	Driver string `envconfig:"CARTRESCUE_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"CARTRESCUE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTRESCUE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTRESCUE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTRESCUE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTRESCUE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARTRESCUE_REDIS_ADDR"`
	Password     string        `envconfig:"CARTRESCUE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTRESCUE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTRESCUE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTRESCUE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTRESCUE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTRESCUE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTRESCUE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARTRESCUE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARTRESCUE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARTRESCUE_JWT_EXPIRATION_MINUTES" default:"15"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARTRESCUE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARTRESCUE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARTRESCUE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARTRESCUE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARTRESCUE_ARGON_KEY_LEN" default:"32"`
}

// StoreConfig describes the storefront this service sits behind.
type StoreConfig struct {
	HomeURL      string `envconfig:"CARTRESCUE_STORE_HOME_URL" required:"true"`
	CartURL      string `envconfig:"CARTRESCUE_STORE_CART_URL" required:"true"`
	CurrencyCode string `envconfig:"CARTRESCUE_STORE_CURRENCY_CODE" default:"USD"`
}

type CheckoutsConfig struct {
	RetentionDays   int           `envconfig:"CARTRESCUE_CHECKOUT_RETENTION_DAYS" default:"30"`
	SessionTTL      time.Duration `envconfig:"CARTRESCUE_CHECKOUT_SESSION_TTL" default:"48h"`
	GuestNonceTTL   time.Duration `envconfig:"CARTRESCUE_CHECKOUT_GUEST_NONCE_TTL" default:"15m"`
	RecoveryParam   string        `envconfig:"CARTRESCUE_CHECKOUT_RECOVERY_PARAM" default:"recover-checkout"`
	DeleteOnEmptied bool          `envconfig:"CARTRESCUE_CHECKOUT_DELETE_ON_EMPTIED" default:"true"`
}

// Retention returns the expiry sweep window.
func (c CheckoutsConfig) Retention() time.Duration {
	days := c.RetentionDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CARTRESCUE_CRON_INTERVAL" default:"24h"`
	LockKey  string        `envconfig:"CARTRESCUE_CRON_LOCK_KEY" default:"cron:leader"`
	LockTTL  time.Duration `envconfig:"CARTRESCUE_CRON_LOCK_TTL" default:"25h"`
}

type AuthRateLimitConfig struct {
	TokenWindow        time.Duration `envconfig:"CARTRESCUE_AUTH_RATE_LIMIT_TOKEN_WINDOW" default:"1m"`
	TokenUsernameLimit int           `envconfig:"CARTRESCUE_AUTH_RATE_LIMIT_TOKEN_USERNAME_LIMIT" default:"5"`
	TokenIPLimit       int           `envconfig:"CARTRESCUE_AUTH_RATE_LIMIT_TOKEN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTRESCUE_AUTO_MIGRATE" default:"false"`
}
