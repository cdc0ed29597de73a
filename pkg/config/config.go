package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	Telegram      TelegramConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ELEKTROMART_APP_ENV" required:"true"`
	Port         string `envconfig:"ELEKTROMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ELEKTROMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ELEKTROMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ELEKTROMART_DB_DSN"`
	Driver string `envconfig:"ELEKTROMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ELEKTROMART_DB_HOST"`
	LegacyPort     int    `envconfig:"ELEKTROMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ELEKTROMART_DB_USER"`
	LegacyPassword string `envconfig:"ELEKTROMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"ELEKTROMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"ELEKTROMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ELEKTROMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ELEKTROMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ELEKTROMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ELEKTROMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ELEKTROMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ELEKTROMART_REDIS_ADDR"`
	Password     string        `envconfig:"ELEKTROMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"ELEKTROMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ELEKTROMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ELEKTROMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ELEKTROMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ELEKTROMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ELEKTROMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ELEKTROMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ELEKTROMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ELEKTROMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ELEKTROMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ELEKTROMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ELEKTROMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ELEKTROMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ELEKTROMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ELEKTROMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ELEKTROMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ELEKTROMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ELEKTROMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ELEKTROMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ELEKTROMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ELEKTROMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ELEKTROMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ELEKTROMART_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	PlaceholderEmail  string        `envconfig:"ELEKTROMART_CHECKOUT_PLACEHOLDER_EMAIL" default:"noemail@example.com"`
	SubmissionLockTTL time.Duration `envconfig:"ELEKTROMART_CHECKOUT_SUBMISSION_LOCK_TTL" default:"30s"`
}

type TelegramConfig struct {
	BotToken string        `envconfig:"ELEKTROMART_TELEGRAM_BOT_TOKEN"`
	ChatID   string        `envconfig:"ELEKTROMART_TELEGRAM_CHAT_ID"`
	BaseURL  string        `envconfig:"ELEKTROMART_TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
	Timeout  time.Duration `envconfig:"ELEKTROMART_TELEGRAM_TIMEOUT" default:"10s"`
}

// Enabled reports whether the side-channel has enough configuration to send.
func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.BotToken) != "" && strings.TrimSpace(t.ChatID) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
