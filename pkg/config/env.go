package config

const (
	EnvPrefix = "RENTALKIT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	CatalogSourceDB          = "db"
	CatalogSourceRecordStore = "recordstore"
)

const (
	EnvAppEnv         = "RENTALKIT_APP_ENV"
	EnvPort           = "RENTALKIT_APP_PORT"
	EnvDBDSN          = "RENTALKIT_DB_DSN"
	EnvDBHost         = "RENTALKIT_DB_HOST"
	EnvDBUser         = "RENTALKIT_DB_USER"
	EnvDBName         = "RENTALKIT_DB_NAME"
	EnvRedisURL       = "RENTALKIT_REDIS_URL"
	EnvJWTSecret      = "RENTALKIT_JWT_SECRET"
	EnvJWTIssuer      = "RENTALKIT_JWT_ISSUER"
	EnvUseSQLite      = "RENTALKIT_USE_SQLITE"
	EnvCatalogSource  = "RENTALKIT_CATALOG_SOURCE"
	EnvRecordStoreURL = "RENTALKIT_RECORDSTORE_URL"
	EnvSyncDebounce   = "RENTALKIT_CART_SYNC_DEBOUNCE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
