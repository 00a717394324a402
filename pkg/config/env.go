package config

const (
	EnvPrefix = "BAZAAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "BAZAAR_APP_ENV"
	EnvPort                   = "BAZAAR_APP_PORT"
	EnvDBDSN                  = "BAZAAR_DB_DSN"
	EnvDBHost                 = "BAZAAR_DB_HOST"
	EnvDBUser                 = "BAZAAR_DB_USER"
	EnvDBName                 = "BAZAAR_DB_NAME"
	EnvDBPassword             = "BAZAAR_DB_PASSWORD"
	EnvRedisURL               = "BAZAAR_REDIS_URL"
	EnvJWTSecret              = "BAZAAR_JWT_SECRET"
	EnvJWTIssuer              = "BAZAAR_JWT_ISSUER"
	EnvJWTExpMins             = "BAZAAR_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BAZAAR_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "BAZAAR_GCP_PROJECT_ID"
	EnvGCSBucket              = "BAZAAR_GCS_BUCKET_NAME"
	EnvGCSDocumentLinkTTL     = "BAZAAR_GCS_DOCUMENT_LINK_TTL"
	EnvSquareEnv              = "BAZAAR_SQUARE_ENV"
	EnvReportsUnknownSeller   = "BAZAAR_REPORTS_UNKNOWN_SELLER"
	EnvCronReconcileBatchSize = "BAZAAR_CRON_RECONCILE_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
