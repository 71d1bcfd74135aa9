package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`
	Environment string `envconfig:"ENV" default:"development" validate:"oneof=development staging production test"`

	// Database (optional, usage counters are disabled without it)
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	UsageRetention time.Duration `envconfig:"USAGE_RETENTION" default:"8760h" validate:"gt=0"`

	// Detector
	DetectorProvider string        `envconfig:"DETECTOR_PROVIDER" default:"faceapi" validate:"oneof=faceapi rekognition mock"`
	FaceAPIURL       string        `envconfig:"FACEAPI_URL" default:"http://localhost:5005" validate:"required,url"`
	ModelURL         string        `envconfig:"MODEL_URL" default:"/models" validate:"required"`
	AWSRegion        string        `envconfig:"AWS_REGION" default:"us-east-1"`
	MinConfidence    float64       `envconfig:"DETECTOR_MIN_CONFIDENCE" default:"0.5" validate:"gte=0,lte=1"`
	InputSize        int           `envconfig:"DETECTOR_INPUT_SIZE" default:"416" validate:"min=32,multipleof32"`
	DetectionTimeout time.Duration `envconfig:"DETECTION_TIMEOUT" default:"15s" validate:"gt=0"`

	// Analysis
	GoldenRatio   float64       `envconfig:"GOLDEN_RATIO" default:"1.618" validate:"gt=0"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"30m" validate:"gt=0"`
	MaxImageBytes  int64         `envconfig:"MAX_IMAGE_BYTES" default:"10485760" validate:"min=1024"`
	MaxImagePixels int64         `envconfig:"MAX_IMAGE_PIXELS" default:"40000000" validate:"min=1024"`
	CameraDevice   int           `envconfig:"CAMERA_DEVICE" default:"0" validate:"min=0"`

	// Rate limiting, requests per minute per IP
	RateLimitMax int `envconfig:"RATE_LIMIT_MAX" default:"120" validate:"min=1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of c.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("multipleof32", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%32 == 0
	}); err != nil {
		return fmt.Errorf("register validation: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ImageLimits bounds every uploaded or captured image.
func (c *Config) ImageLimits() imagesrc.Limits {
	return imagesrc.Limits{MaxBytes: c.MaxImageBytes, MaxPixels: c.MaxImagePixels}
}

// UsageEnabled reports whether daily usage counters should be persisted.
func (c *Config) UsageEnabled() bool {
	return c.DatabaseURL != ""
}
