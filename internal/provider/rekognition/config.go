package rekognition

// Config configures the Rekognition-backed detector.
type Config struct {
	Region string
	// MaxAttempts bounds the SDK's own retries of throttled DetectFaces calls.
	// Zero keeps the SDK default.
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		Region:      "us-east-1",
		MaxAttempts: 2,
	}
}
