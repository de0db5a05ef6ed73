package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvSearchRadiusKm    = "SEARCH_RADIUS_KM"
	EnvMaxSearchRadiusKm = "MAX_SEARCH_RADIUS_KM"

	EnvNotifyThreshold  = "CONSULT_NOTIFY_THRESHOLD"
	EnvJoinGateLead     = "CONSULT_JOIN_GATE_LEAD"
	EnvGateTickInterval = "CONSULT_TICK_INTERVAL"
	EnvGateLookahead    = "CONSULT_LOOKAHEAD"
)
