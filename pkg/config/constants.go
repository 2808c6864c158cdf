package config

const (
	EnvPrefix = "RECRUITMENT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "RECRUITMENT_APP_ENV"
	EnvPort     = "RECRUITMENT_APP_PORT"
	EnvLogLevel = "RECRUITMENT_LOG_LEVEL"

	EnvDBDSN  = "RECRUITMENT_DB_DSN"
	EnvDBHost = "RECRUITMENT_DB_HOST"
	EnvDBUser = "RECRUITMENT_DB_USER"
	EnvDBName = "RECRUITMENT_DB_NAME"

	EnvRedisURL = "RECRUITMENT_REDIS_URL"

	EnvJWTSecret = "RECRUITMENT_AUTH_JWT_SECRET"
	EnvJWTIssuer = "RECRUITMENT_AUTH_JWT_ISSUER"

	EnvDispatchInterval   = "RECRUITMENT_DISPATCH_INTERVAL"
	EnvDispatchMaxRetries = "RECRUITMENT_DISPATCH_MAX_RETRIES"

	EnvScoringAgePreference    = "RECRUITMENT_SCORING_AGE_PREFERENCE"
	EnvScoringEducationRankCap = "RECRUITMENT_SCORING_EDUCATION_RANK_CAP"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
