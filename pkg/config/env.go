package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "FULFILLMENT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "FULFILLMENT_APP_ENV"
	EnvPort         = "FULFILLMENT_APP_PORT"
	EnvLogLevel     = "FULFILLMENT_LOG_LEVEL"
	EnvLogWarnStack = "FULFILLMENT_LOG_WARN_STACK"
	EnvServiceKind  = "FULFILLMENT_SERVICE_KIND"

	EnvDBDSN      = "FULFILLMENT_DB_DSN"
	EnvDBHost     = "FULFILLMENT_DB_HOST"
	EnvDBPort     = "FULFILLMENT_DB_PORT"
	EnvDBUser     = "FULFILLMENT_DB_USER"
	EnvDBPassword = "FULFILLMENT_DB_PASSWORD"
	EnvDBName     = "FULFILLMENT_DB_NAME"
	EnvDBSSLMode  = "FULFILLMENT_DB_SSLMODE"

	EnvRedisURL = "FULFILLMENT_REDIS_URL"

	EnvOrderLockEnabled    = "FULFILLMENT_ORDER_LOCK_ENABLED"
	EnvOrderLockTTL        = "FULFILLMENT_ORDER_LOCK_TTL"
	EnvOrderLockRetryLimit = "FULFILLMENT_ORDER_LOCK_RETRY_LIMIT"
	EnvOrderLockRetryDelay = "FULFILLMENT_ORDER_LOCK_RETRY_DELAY"

	EnvGCPProjectID            = "FULFILLMENT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic       = "FULFILLMENT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubBillingTopic      = "FULFILLMENT_PUBSUB_BILLING_TOPIC"
	EnvPubSubNotificationTopic = "FULFILLMENT_PUBSUB_NOTIFICATION_TOPIC"

	EnvOutboxBatchSize   = "FULFILLMENT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS      = "FULFILLMENT_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts = "FULFILLMENT_OUTBOX_MAX_ATTEMPTS"

	EnvCronInterval          = "FULFILLMENT_CRON_INTERVAL"
	EnvCronOutboxRetention   = "FULFILLMENT_CRON_OUTBOX_RETENTION"
	EnvCronOutboxMinAttempts = "FULFILLMENT_CRON_OUTBOX_MIN_ATTEMPTS"
	EnvCronReminderBatchSize = "FULFILLMENT_CRON_REMINDER_BATCH_SIZE"

	EnvUseSQLite   = "FULFILLMENT_USE_SQLITE"
	EnvAutoMigrate = "FULFILLMENT_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
