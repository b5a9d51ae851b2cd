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
	JWT          JWTConfig
	RecordStore  RecordStoreConfig
	Catalog      CatalogConfig
	Kit          KitConfig
	Cart         CartConfig
	Cron         CronConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
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
	if err := cfg.Catalog.validate(cfg.RecordStore); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RENTALKIT_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTALKIT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RENTALKIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTALKIT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"RENTALKIT_DB_DSN"`
	Driver string `envconfig:"RENTALKIT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTALKIT_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTALKIT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTALKIT_DB_USER"`
	LegacyPassword string `envconfig:"RENTALKIT_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTALKIT_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTALKIT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"RENTALKIT_DB_SQLITE_PATH" default:"rentalkit.db"`

	MaxOpenConns    int           `envconfig:"RENTALKIT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTALKIT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTALKIT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTALKIT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTALKIT_REDIS_URL"`
	Address      string        `envconfig:"RENTALKIT_REDIS_ADDR"`
	Password     string        `envconfig:"RENTALKIT_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTALKIT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTALKIT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTALKIT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTALKIT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTALKIT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTALKIT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RENTALKIT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RENTALKIT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RENTALKIT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RecordStoreConfig points at the hosted record store that owns the catalog collections.
type RecordStoreConfig struct {
	BaseURL    string        `envconfig:"RENTALKIT_RECORDSTORE_URL" default:"http://127.0.0.1:8090"`
	Token      string        `envconfig:"RENTALKIT_RECORDSTORE_TOKEN"`
	Timeout    time.Duration `envconfig:"RENTALKIT_RECORDSTORE_TIMEOUT" default:"10s"`
	FilesURL   string        `envconfig:"RENTALKIT_RECORDSTORE_FILES_URL"`
	PerPage    int           `envconfig:"RENTALKIT_RECORDSTORE_PER_PAGE" default:"200"`
	Collection CollectionNames
}

// CollectionNames maps the logical catalog collections onto record store names.
type CollectionNames struct {
	Products     string `envconfig:"RENTALKIT_RECORDSTORE_PRODUCTS" default:"equipment"`
	Categories   string `envconfig:"RENTALKIT_RECORDSTORE_CATEGORIES" default:"categories"`
	KitTemplates string `envconfig:"RENTALKIT_RECORDSTORE_KIT_TEMPLATES" default:"kit_templates"`
	KitItems     string `envconfig:"RENTALKIT_RECORDSTORE_KIT_ITEMS" default:"kit_items"`
}

type CatalogConfig struct {
	Source   string        `envconfig:"RENTALKIT_CATALOG_SOURCE" default:"db"`
	CacheTTL time.Duration `envconfig:"RENTALKIT_CATALOG_CACHE_TTL" default:"5m"`
}

// UsesRecordStore reports whether catalog reads go to the hosted record store.
func (c CatalogConfig) UsesRecordStore() bool {
	return strings.EqualFold(strings.TrimSpace(c.Source), CatalogSourceRecordStore)
}

func (c CatalogConfig) validate(rs RecordStoreConfig) error {
	source := strings.ToLower(strings.TrimSpace(c.Source))
	switch source {
	case CatalogSourceDB:
		return nil
	case CatalogSourceRecordStore:
		if strings.TrimSpace(rs.BaseURL) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvRecordStoreURL, EnvCatalogSource, CatalogSourceRecordStore)
		}
		return nil
	}
	return fmt.Errorf("invalid %s %q", EnvCatalogSource, c.Source)
}

type KitConfig struct {
	SelectionTTL time.Duration `envconfig:"RENTALKIT_KIT_SELECTION_TTL" default:"24h"`
}

type CartConfig struct {
	GuestTTL       time.Duration `envconfig:"RENTALKIT_CART_GUEST_TTL" default:"720h"`
	SyncDebounce   time.Duration `envconfig:"RENTALKIT_CART_SYNC_DEBOUNCE" default:"1s"`
	AbandonedAfter time.Duration `envconfig:"RENTALKIT_CART_ABANDONED_AFTER" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RENTALKIT_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"RENTALKIT_CRON_LOCK_KEY" default:"cron-worker"`
	LockTTL  time.Duration `envconfig:"RENTALKIT_CRON_LOCK_TTL" default:"55m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"RENTALKIT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type RateLimitConfig struct {
	CartWindow time.Duration `envconfig:"RENTALKIT_RATE_LIMIT_CART_WINDOW" default:"1m"`
	CartLimit  int           `envconfig:"RENTALKIT_RATE_LIMIT_CART_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RENTALKIT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RENTALKIT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
	}
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
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
