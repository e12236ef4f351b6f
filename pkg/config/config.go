package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Upstream     UpstreamConfig
	POS          POSConfig
	Replay       ReplayConfig
	Idempotency  IdempotencyConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREMATE_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREMATE_APP_PORT" required:"true"`
	StoreID      string `envconfig:"STOREMATE_STORE_ID" required:"true"`
	TerminalID   string `envconfig:"STOREMATE_TERMINAL_ID" default:"term-1"`
	LogLevel     string `envconfig:"STOREMATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREMATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREMATE_DB_DSN"`
	Driver string `envconfig:"STOREMATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREMATE_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREMATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREMATE_DB_USER"`
	LegacyPassword string `envconfig:"STOREMATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREMATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREMATE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"STOREMATE_DB_SQLITE_PATH" default:"storemate-terminal.db"`

	MaxOpenConns    int           `envconfig:"STOREMATE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREMATE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREMATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREMATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREMATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREMATE_REDIS_ADDR"`
	Password     string        `envconfig:"STOREMATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREMATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREMATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREMATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREMATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREMATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREMATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// UpstreamConfig points at the remote StoreMate sales API.
type UpstreamConfig struct {
	BaseURL  string        `envconfig:"STOREMATE_UPSTREAM_BASE_URL" required:"true"`
	APIToken string        `envconfig:"STOREMATE_UPSTREAM_API_TOKEN"`
	Timeout  time.Duration `envconfig:"STOREMATE_UPSTREAM_TIMEOUT" default:"10s"`
}

type POSConfig struct {
	TaxRate       float64 `envconfig:"STOREMATE_POS_TAX_RATE" default:"0.15"`
	Currency      string  `envconfig:"STOREMATE_POS_CURRENCY" default:"USD"`
	ReasonMinLen  int     `envconfig:"STOREMATE_POS_REASON_MIN_LEN" default:"5"`
	DefaultDocTyp string  `envconfig:"STOREMATE_POS_DEFAULT_DOC_TYPE" default:"receipt"`
}

type ReplayConfig struct {
	BatchSize      int           `envconfig:"STOREMATE_REPLAY_BATCH_SIZE" default:"25"`
	PollInterval   time.Duration `envconfig:"STOREMATE_REPLAY_POLL_INTERVAL" default:"30s"`
	LockTTL        time.Duration `envconfig:"STOREMATE_REPLAY_LOCK_TTL" default:"2m"`
	RequestTimeout time.Duration `envconfig:"STOREMATE_REPLAY_REQUEST_TIMEOUT" default:"15s"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"STOREMATE_IDEMPOTENCY_TTL" default:"168h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREMATE_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREMATE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREMATE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		db.Driver = DriverSQLite
		return nil
	}
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
