package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Commission   CommissionConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOJINHA_APP_ENV" required:"true"`
	Port         string `envconfig:"LOJINHA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LOJINHA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOJINHA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LOJINHA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LOJINHA_DB_DSN"`
	Driver string `envconfig:"LOJINHA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOJINHA_DB_HOST"`
	LegacyPort     int    `envconfig:"LOJINHA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOJINHA_DB_USER"`
	LegacyPassword string `envconfig:"LOJINHA_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOJINHA_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOJINHA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOJINHA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOJINHA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOJINHA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOJINHA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOJINHA_REDIS_URL"`
	Address      string        `envconfig:"LOJINHA_REDIS_ADDR"`
	Password     string        `envconfig:"LOJINHA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOJINHA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOJINHA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOJINHA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOJINHA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOJINHA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOJINHA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CommissionConfig carries the tunables of the commission engine. The
// values are threaded explicitly into the pure computations, never read
// from ambient state at calculation time.
type CommissionConfig struct {
	DefaultMaturityDays int    `envconfig:"LOJINHA_COMMISSION_DEFAULT_MATURITY_DAYS" default:"7"`
	MaxMaturityDays     int    `envconfig:"LOJINHA_COMMISSION_MAX_MATURITY_DAYS" default:"90"`
	FixedSplitPolicy    string `envconfig:"LOJINHA_COMMISSION_FIXED_SPLIT_POLICY" default:"proportional"`
}

func (c CommissionConfig) validate() error {
	if c.DefaultMaturityDays < 0 || c.DefaultMaturityDays > c.MaxMaturityDays {
		return fmt.Errorf("default maturity days must be within 0..%d", c.MaxMaturityDays)
	}
	if _, err := enums.ParseFixedSplitPolicy(c.FixedSplitPolicy); err != nil {
		return err
	}
	return nil
}

// SplitPolicy returns the parsed fixed-discount split policy.
func (c CommissionConfig) SplitPolicy() enums.FixedSplitPolicy {
	policy, err := enums.ParseFixedSplitPolicy(c.FixedSplitPolicy)
	if err != nil {
		return enums.FixedSplitProportional
	}
	return policy
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"LOJINHA_CRON_INTERVAL" default:"24h"`
	LockTTL              time.Duration `envconfig:"LOJINHA_CRON_LOCK_TTL" default:"25h"`
	CouponExpiryEnabled  bool          `envconfig:"LOJINHA_CRON_COUPON_EXPIRY_ENABLED" default:"true"`
	MaturityReportWindow time.Duration `envconfig:"LOJINHA_CRON_MATURITY_REPORT_WINDOW" default:"720h"`
}

type OutboxConfig struct {
	RetentionDays  int `envconfig:"LOJINHA_OUTBOX_RETENTION_DAYS" default:"30"`
	BatchSize      int `envconfig:"LOJINHA_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LOJINHA_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LOJINHA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOJINHA_AUTO_MIGRATE" default:"false"`
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
