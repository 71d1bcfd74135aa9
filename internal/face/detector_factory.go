package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/config"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider/faceapi"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider/rekognition"
)

// DetectorType defines supported face detector backends
type DetectorType string

const (
	// DetectorTypeFaceAPI is the landmark sidecar (local, default)
	DetectorTypeFaceAPI DetectorType = "faceapi"
	// DetectorTypeRekognition is the AWS Rekognition backend (cloud)
	DetectorTypeRekognition DetectorType = "rekognition"
	// DetectorTypeMock is the deterministic in-process detector (dev/test)
	DetectorTypeMock DetectorType = "mock"
)

// NewDetector creates a FaceDetector based on configuration. Models are not
// loaded here; the detection.ModelLoader owns that step.
//
// Environment variables:
//   - DETECTOR_PROVIDER: "faceapi", "rekognition" or "mock" (default: "faceapi")
//   - FACEAPI_URL: sidecar URL (default: "http://localhost:5005")
//   - MODEL_URL: model asset location handed to the sidecar (default: "/models")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
func NewDetector(cfg *config.Config, auditLogger audit.Logger) (provider.FaceDetector, error) {
	switch DetectorType(cfg.DetectorProvider) {
	case DetectorTypeFaceAPI, "":
		return createFaceAPIDetector(cfg, auditLogger), nil

	case DetectorTypeRekognition:
		return rekognition.NewDetector(
			rekognition.Config{Region: cfg.AWSRegion, MaxAttempts: rekognition.DefaultConfig().MaxAttempts},
			rekognition.WithAuditLogger(auditLogger),
		), nil

	case DetectorTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.DetectorProvider, DetectorTypeFaceAPI, DetectorTypeRekognition, DetectorTypeMock)
	}
}

func createFaceAPIDetector(cfg *config.Config, auditLogger audit.Logger) provider.FaceDetector {
	faceapiConfig := faceapi.DefaultConfig()
	if cfg.FaceAPIURL != "" {
		faceapiConfig.BaseURL = cfg.FaceAPIURL
	}
	if cfg.ModelURL != "" {
		faceapiConfig.ModelURL = cfg.ModelURL
	}

	return faceapi.NewDetector(faceapiConfig, auditLogger)
}
