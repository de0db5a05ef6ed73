package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medibook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultSearchRadiusKm    = 50.0
	DefaultMaxSearchRadiusKm = 500.0

	// Video consultation gating: "starting soon" fires inside the notify
	// threshold, the waiting room opens at the join gate lead, the live
	// call affordance unlocks at the scheduled instant.
	DefaultNotifyThreshold  = 15 * time.Minute
	DefaultJoinGateLead     = 5 * time.Minute
	DefaultGateTickInterval = 1 * time.Second
	DefaultGateLookahead    = 30 * time.Minute

	DefaultPaginationLimit = 100
)
