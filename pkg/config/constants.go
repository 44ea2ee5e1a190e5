package config

const (
	// EnvPrefix is passed to envconfig; explicit tags already carry the
	// VIRTUCLOUD_ prefix, so this stays empty.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "VIRTUCLOUD_APP_ENV"
	EnvPort       = "VIRTUCLOUD_APP_PORT"
	EnvDBDSN      = "VIRTUCLOUD_DB_DSN"
	EnvDBHost     = "VIRTUCLOUD_DB_HOST"
	EnvDBUser     = "VIRTUCLOUD_DB_USER"
	EnvDBName     = "VIRTUCLOUD_DB_NAME"
	EnvRedisURL   = "VIRTUCLOUD_REDIS_URL"
	EnvJWTSecret  = "VIRTUCLOUD_JWT_SECRET"
	EnvJWTIssuer  = "VIRTUCLOUD_JWT_ISSUER"
	EnvJWTExpMins = "VIRTUCLOUD_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
