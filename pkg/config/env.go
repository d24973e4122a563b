package config

const (
	EnvPrefix = "VOLTLINE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "VOLTLINE_APP_ENV"
	EnvPort   = "VOLTLINE_APP_PORT"

	EnvDBDSN    = "VOLTLINE_DB_DSN"
	EnvDBDriver = "VOLTLINE_DB_DRIVER"
	EnvDBHost   = "VOLTLINE_DB_HOST"
	EnvDBUser   = "VOLTLINE_DB_USER"
	EnvDBName   = "VOLTLINE_DB_NAME"

	EnvRedisURL = "VOLTLINE_REDIS_URL"

	EnvJWTSecret  = "VOLTLINE_JWT_SECRET"
	EnvJWTIssuer  = "VOLTLINE_JWT_ISSUER"
	EnvJWTExpMins = "VOLTLINE_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "VOLTLINE_USE_SQLITE"

	EnvGCPProjectID = "VOLTLINE_GCP_PROJECT_ID"

	EnvPubSubDomainTopic     = "VOLTLINE_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub = "VOLTLINE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub    = "VOLTLINE_PUBSUB_ANALYTICS_SUBSCRIPTION"

	EnvCommissionDefaultRate = "VOLTLINE_COMMISSION_DEFAULT_RATE"
	EnvOrdersTaxRate         = "VOLTLINE_ORDERS_TAX_RATE"
	EnvAvailabilityMinSlot   = "VOLTLINE_AVAILABILITY_MIN_SLOT_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
