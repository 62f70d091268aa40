package model

// Shared defaults used by the CLI and the library packages.
const (
	DefaultResolution    = 1.0
	DefaultLookback      = 60 // seconds
	DefaultMaxThickness  = 5.0
	DefaultProgressEvery = 500
	DefaultReadBuffer    = 32 * 1024 * 1024
	DefaultMaxLatency    = 600.0 // seconds; slower client requests are treated as outliers
	DefaultBatchSize     = 1024
)

// Series names produced by the aggregator.
const (
	SeriesClient    = "Client Requests"
	SeriesInternal  = "Internal Requests"
	SeriesContainer = "Container Requests"
	SeriesObject    = "Object Requests"
	SeriesAccount   = "Account Requests"
)
