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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	FeatureFlags FeatureFlagsConfig
	Mail         MailConfig
	Storage      StorageConfig
	Dispatcher   DispatcherConfig
	Scoring      ScoringConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Scoring.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RECRUITMENT_APP_ENV" required:"true"`
	Port         string `envconfig:"RECRUITMENT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RECRUITMENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECRUITMENT_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"RECRUITMENT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RECRUITMENT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RECRUITMENT_DB_DSN"`
	Driver string `envconfig:"RECRUITMENT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RECRUITMENT_DB_HOST"`
	LegacyPort     int    `envconfig:"RECRUITMENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RECRUITMENT_DB_USER"`
	LegacyPassword string `envconfig:"RECRUITMENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"RECRUITMENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"RECRUITMENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECRUITMENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECRUITMENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECRUITMENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECRUITMENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional; without a URL or address the cron worker falls back to an in-process lock.
type RedisConfig struct {
	URL          string        `envconfig:"RECRUITMENT_REDIS_URL"`
	Address      string        `envconfig:"RECRUITMENT_REDIS_ADDR"`
	Password     string        `envconfig:"RECRUITMENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECRUITMENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECRUITMENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECRUITMENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECRUITMENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECRUITMENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECRUITMENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// AuthConfig verifies admin tokens minted by the external auth service.
type AuthConfig struct {
	JWTSecret string `envconfig:"RECRUITMENT_AUTH_JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"RECRUITMENT_AUTH_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RECRUITMENT_AUTO_MIGRATE" default:"false"`
	MailDryRun  bool `envconfig:"RECRUITMENT_MAIL_DRY_RUN" default:"false"`
}

type MailConfig struct {
	Host        string        `envconfig:"RECRUITMENT_SMTP_HOST"`
	Port        int           `envconfig:"RECRUITMENT_SMTP_PORT" default:"587"`
	Username    string        `envconfig:"RECRUITMENT_SMTP_USERNAME"`
	Password    string        `envconfig:"RECRUITMENT_SMTP_PASSWORD"`
	FromAddress string        `envconfig:"RECRUITMENT_MAIL_FROM" default:"no-reply@recruitment.local"`
	FromName    string        `envconfig:"RECRUITMENT_MAIL_FROM_NAME" default:"Recruitment Cell"`
	TLSPolicy   string        `envconfig:"RECRUITMENT_SMTP_TLS" default:"opportunistic"`
	SendTimeout time.Duration `envconfig:"RECRUITMENT_MAIL_SEND_TIMEOUT" default:"30s"`
}

type StorageConfig struct {
	DocumentRoot string `envconfig:"RECRUITMENT_DOCUMENT_ROOT" default:"./uploads"`
}

type DispatcherConfig struct {
	Interval   time.Duration `envconfig:"RECRUITMENT_DISPATCH_INTERVAL" default:"5m"`
	MaxRetries int           `envconfig:"RECRUITMENT_DISPATCH_MAX_RETRIES" default:"3"`
	LockTTL    time.Duration `envconfig:"RECRUITMENT_DISPATCH_LOCK_TTL" default:"1h"`
	StaleAfter time.Duration `envconfig:"RECRUITMENT_DISPATCH_STALE_AFTER" default:"6h"`
}

// ScoringConfig is translated into a merit.ScoringPolicy at wiring time.
type ScoringConfig struct {
	AgePreference    string `envconfig:"RECRUITMENT_SCORING_AGE_PREFERENCE" default:"OLDER"`
	EducationRankCap int    `envconfig:"RECRUITMENT_SCORING_EDUCATION_RANK_CAP" default:"999"`
}

func (s ScoringConfig) validate() error {
	switch strings.ToUpper(strings.TrimSpace(s.AgePreference)) {
	case "OLDER", "YOUNGER":
	default:
		return fmt.Errorf("%s must be OLDER or YOUNGER, got %q", EnvScoringAgePreference, s.AgePreference)
	}
	if s.EducationRankCap <= 0 {
		return fmt.Errorf("%s must be positive", EnvScoringEducationRankCap)
	}
	return nil
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
