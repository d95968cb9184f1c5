package config

const EnvPrefix = "TRADELEDGER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "TRADELEDGER_APP_ENV"
	EnvPort             = "TRADELEDGER_APP_PORT"
	EnvDBDSN            = "TRADELEDGER_DB_DSN"
	EnvDBHost           = "TRADELEDGER_DB_HOST"
	EnvDBUser           = "TRADELEDGER_DB_USER"
	EnvDBName           = "TRADELEDGER_DB_NAME"
	EnvRedisURL         = "TRADELEDGER_REDIS_URL"
	EnvJWTSecret        = "TRADELEDGER_JWT_SECRET"
	EnvJWTIssuer        = "TRADELEDGER_JWT_ISSUER"
	EnvUseSQLite        = "TRADELEDGER_USE_SQLITE"
	EnvCreditDefaultPct = "TRADELEDGER_CREDIT_DEFAULT_MAX_CART_PERCENTAGE"
	EnvOutboxRetention  = "TRADELEDGER_OUTBOX_RETENTION_DAYS"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const DefaultSQLiteDSN = "file:tradeledger.db?cache=shared&_fk=1"

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
