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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Square       SquareConfig
	Cron         CronConfig
	Reports      ReportsConfig
	RateLimit    AuthRateLimitConfig
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
	Env          string   `envconfig:"BAZAAR_APP_ENV" required:"true"`
	Port         string   `envconfig:"BAZAAR_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BAZAAR_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BAZAAR_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BAZAAR_DB_DSN"`

	LegacyHost     string `envconfig:"BAZAAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery logs statements slower than this at warn. Zero disables it.
	SlowQuery time.Duration `envconfig:"BAZAAR_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAAR_REDIS_URL"`
	Address      string        `envconfig:"BAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BAZAAR_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BAZAAR_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BAZAAR_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZAAR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZAAR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZAAR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZAAR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZAAR_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZAAR_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BAZAAR_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BAZAAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BAZAAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"BAZAAR_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL   string        `envconfig:"BAZAAR_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	DocumentLinkTTL time.Duration `envconfig:"BAZAAR_GCS_DOCUMENT_LINK_TTL" default:"30m"`
	MaxUploadMB     int           `envconfig:"BAZAAR_GCS_MAX_UPLOAD_MB" default:"10"`
	SignsPerSecond  float64       `envconfig:"BAZAAR_GCS_SIGNS_PER_SECOND" default:"50"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"BAZAAR_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"BAZAAR_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"BAZAAR_SQUARE_LOCATION_ID"`
	Currency    string `envconfig:"BAZAAR_SQUARE_CURRENCY" default:"USD"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether gateway payments can be initiated.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != "" && strings.TrimSpace(s.LocationID) != ""
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"BAZAAR_CRON_INTERVAL" default:"15m"`
	LockKey            string        `envconfig:"BAZAAR_CRON_LOCK_KEY" default:"bz:cron:lock"`
	LockTTL            time.Duration `envconfig:"BAZAAR_CRON_LOCK_TTL" default:"10m"`
	ReconcileBatchSize int           `envconfig:"BAZAAR_CRON_RECONCILE_BATCH_SIZE" default:"200"`
	PendingOrderTTL    time.Duration `envconfig:"BAZAAR_CRON_PENDING_ORDER_TTL" default:"72h"`
	JobTimeout         time.Duration `envconfig:"BAZAAR_CRON_JOB_TIMEOUT" default:"5m"`
}

type ReportsConfig struct {
	DefaultPageSize int    `envconfig:"BAZAAR_REPORTS_DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize     int    `envconfig:"BAZAAR_REPORTS_MAX_PAGE_SIZE" default:"100"`
	UnknownSeller   string `envconfig:"BAZAAR_REPORTS_UNKNOWN_SELLER" default:"Unknown Seller"`
	UnknownProduct  string `envconfig:"BAZAAR_REPORTS_UNKNOWN_PRODUCT" default:"Unknown Product"`
	UnknownUser     string `envconfig:"BAZAAR_REPORTS_UNKNOWN_USER" default:"Unknown User"`
}

// AuthRateLimitConfig throttles login and signup attempts per client IP and per email.
type AuthRateLimitConfig struct {
	Window     time.Duration `envconfig:"BAZAAR_AUTH_RATE_LIMIT_WINDOW" default:"15m"`
	IPLimit    int           `envconfig:"BAZAAR_AUTH_RATE_LIMIT_IP" default:"30"`
	EmailLimit int           `envconfig:"BAZAAR_AUTH_RATE_LIMIT_EMAIL" default:"10"`
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
