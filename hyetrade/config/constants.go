package config

import "time"

// Database and performance constants
const (
	DefaultQueryTimeout = 30 * time.Second
	SearchTimeout       = 10 * time.Second
	BatchQueryTimeout   = 30 * time.Second
	NetworkDialTimeout  = 5 * time.Second

	// Cache settings
	CacheExpiration = 5 * time.Minute
	CacheSize       = 10000

	MaxRetries = 3
)

// Search constants
const (
	MaxSearchResults = 100
)
