package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Credit       CreditConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Breaker      BreakerConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Credit.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TRADELEDGER_APP_ENV" required:"true"`
	Port         string   `envconfig:"TRADELEDGER_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"TRADELEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TRADELEDGER_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TRADELEDGER_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRADELEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRADELEDGER_DB_DSN"`
	Driver string `envconfig:"TRADELEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADELEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADELEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADELEDGER_DB_USER"`
	LegacyPassword string `envconfig:"TRADELEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADELEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADELEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADELEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADELEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADELEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADELEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADELEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADELEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"TRADELEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADELEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADELEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADELEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADELEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADELEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADELEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies bearer tokens minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"TRADELEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADELEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADELEDGER_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TRADELEDGER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TRADELEDGER_AUTO_MIGRATE" default:"false"`
}

// CreditConfig holds defaults applied when an admin opens a credit line without explicit terms.
type CreditConfig struct {
	DefaultMaxCartPercentage string `envconfig:"TRADELEDGER_CREDIT_DEFAULT_MAX_CART_PERCENTAGE" default:"50"`
	MovementPageSize         int    `envconfig:"TRADELEDGER_CREDIT_MOVEMENT_PAGE_SIZE" default:"50"`
}

// DefaultPercentage parses DefaultMaxCartPercentage. Load has already validated it.
func (c CreditConfig) DefaultPercentage() decimal.Decimal {
	pct, err := decimal.NewFromString(c.DefaultMaxCartPercentage)
	if err != nil {
		return decimal.Zero
	}
	return pct
}

func (c CreditConfig) validate() error {
	pct, err := decimal.NewFromString(c.DefaultMaxCartPercentage)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvCreditDefaultPct, err)
	}
	if pct.IsNegative() || pct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be in [0, 100)", EnvCreditDefaultPct)
	}
	return nil
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"TRADELEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TRADELEDGER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TRADELEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TRADELEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"TRADELEDGER_PUBSUB_ORDERS_TOPIC" default:"tl-order-events"`
	NotificationTopic string `envconfig:"TRADELEDGER_PUBSUB_NOTIFICATION_TOPIC" default:"tl-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRADELEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRADELEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRADELEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"TRADELEDGER_OUTBOX_RETENTION_DAYS" default:"30"`
}

// BreakerConfig tunes the circuit breaker around Pub/Sub publishing.
type BreakerConfig struct {
	MaxRequests         uint32        `envconfig:"TRADELEDGER_BREAKER_MAX_REQUESTS" default:"1"`
	Interval            time.Duration `envconfig:"TRADELEDGER_BREAKER_INTERVAL" default:"60s"`
	Timeout             time.Duration `envconfig:"TRADELEDGER_BREAKER_TIMEOUT" default:"30s"`
	ConsecutiveFailures uint32        `envconfig:"TRADELEDGER_BREAKER_CONSECUTIVE_FAILURES" default:"5"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"TRADELEDGER_CRON_INTERVAL" default:"15m"`
	LockTTL    time.Duration `envconfig:"TRADELEDGER_CRON_LOCK_TTL" default:"10m"`
	AuditBatch int           `envconfig:"TRADELEDGER_CRON_AUDIT_BATCH" default:"200"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if sqlite {
		db.Driver = DriverSQLite
	}
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = DefaultSQLiteDSN
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
