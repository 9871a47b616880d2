// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchThreshold is the minimum similarity (0-100) for a selfie match
	DefaultMatchThreshold = 90.0

	// DefaultGroupThreshold is the minimum similarity (0-100) for joining a gallery group
	DefaultGroupThreshold = 80.0

	// DefaultBatchSize is the number of concurrent comparisons per batch
	DefaultBatchSize = 5
)

// Oracle names
const (
	OracleRekognition = "rekognition"
	OracleInsightFace = "insightface"
)

// Storage backend names
const (
	StorageS3    = "s3"
	StorageMinio = "minio"
	StorageLocal = "local"
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) of images sent to the embedding server
	MaxImageSize = 1920

	// DefaultSelfieRole is the role segment of selfie keys when none is given
	DefaultSelfieRole = "user"
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Web constants
const (
	// MaxRequestBodySize limits JSON request bodies (1MB)
	MaxRequestBodySize = 1 << 20

	// JobRetention is how long finished jobs stay queryable
	JobRetention = time.Hour

	// JobPruneInterval is how often finished jobs are pruned
	JobPruneInterval = 10 * time.Minute

	// SSEHeartbeatInterval is the idle time after which an event stream gets a keepalive comment
	SSEHeartbeatInterval = 15 * time.Second
)
