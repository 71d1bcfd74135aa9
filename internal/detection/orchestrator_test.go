package detection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage() *imagesrc.Image {
	return &imagesrc.Image{Data: []byte{0xff, 0xd8}, Format: "jpeg", Width: 400, Height: 400}
}

func newOrchestrator(d provider.FaceDetector, timeout time.Duration) *Orchestrator {
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	return NewOrchestrator(d, NewModelLoader(d, testLogger(), time.Second), cfg, testLogger())
}

func requireFailure(t *testing.T, err error, kind domain.FailureKind) *domain.Failure {
	t.Helper()
	var f *domain.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, kind, f.Kind)
	return f
}

func TestDetect_Success(t *testing.T) {
	d := mock.New()
	det, err := newOrchestrator(d, time.Second).Detect(context.Background(), testImage())

	require.NoError(t, err)
	require.NotNil(t, det.Landmarks)
	assert.Len(t, det.BoundingBoxes, 1)
	assert.Equal(t, mock.SampleLandmarks(), *det.Landmarks)
	assert.Equal(t, 1, d.FindAllCalls())
	assert.Equal(t, 1, d.LandmarkCalls())
}

func TestDetect_Classification(t *testing.T) {
	tests := []struct {
		name          string
		opts          []mock.Option
		wantKind      domain.FailureKind
		wantLandmarks int
	}{
		{
			name:          "no face skips landmark pass",
			opts:          []mock.Option{mock.WithFaces(0)},
			wantKind:      domain.FailureNoFace,
			wantLandmarks: 0,
		},
		{
			name:          "two faces skip landmark pass",
			opts:          []mock.Option{mock.WithFaces(2)},
			wantKind:      domain.FailureMultipleFaces,
			wantLandmarks: 0,
		},
		{
			name:          "landmark pass settles empty",
			opts:          []mock.Option{mock.WithLandmarks(nil)},
			wantKind:      domain.FailureLandmarksNotFound,
			wantLandmarks: 1,
		},
		{
			name:          "coarse pass error",
			opts:          []mock.Option{mock.WithDetectError(errors.New("sidecar exploded"))},
			wantKind:      domain.FailureAnalysisUnexpected,
			wantLandmarks: 0,
		},
		{
			name:          "landmark pass error",
			opts:          []mock.Option{mock.WithLandmarkError(errors.New("bad tensor"))},
			wantKind:      domain.FailureAnalysisUnexpected,
			wantLandmarks: 1,
		},
		{
			name:          "model load failure",
			opts:          []mock.Option{mock.WithLoadError(errors.New("weights missing"))},
			wantKind:      domain.FailureModelLoad,
			wantLandmarks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mock.New(tt.opts...)
			_, err := newOrchestrator(d, time.Second).Detect(context.Background(), testImage())

			requireFailure(t, err, tt.wantKind)
			assert.Equal(t, tt.wantLandmarks, d.LandmarkCalls())
		})
	}
}

func TestDetect_MultipleFacesCarriesCount(t *testing.T) {
	_, err := newOrchestrator(mock.New(mock.WithFaces(2)), time.Second).Detect(context.Background(), testImage())

	f := requireFailure(t, err, domain.FailureMultipleFaces)
	assert.Equal(t, 2, f.FaceCount)
}

func TestDetect_ModelLoadFailureSkipsDetector(t *testing.T) {
	d := mock.New(mock.WithLoadError(errors.New("404 /models")))
	_, err := newOrchestrator(d, time.Second).Detect(context.Background(), testImage())

	requireFailure(t, err, domain.FailureModelLoad)
	assert.Zero(t, d.FindAllCalls())
}

func TestDetect_TimeoutWinsRace(t *testing.T) {
	gate := make(chan struct{})
	d := mock.New(mock.WithGate(gate))

	start := time.Now()
	_, err := newOrchestrator(d, 30*time.Millisecond).Detect(context.Background(), testImage())
	elapsed := time.Since(start)

	requireFailure(t, err, domain.FailureDetectionTimeout)
	assert.Less(t, elapsed, time.Second)

	assert.Equal(t, 1, d.LandmarkCalls())

	// the landmark call is still parked on the gate; release it so it settles
	// into the buffered channel and exits
	close(gate)
}

func TestDetect_CallerCancellation(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	d := mock.New(mock.WithGate(gate))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newOrchestrator(d, time.Minute).Detect(ctx, testImage())

	f := requireFailure(t, err, domain.FailureAnalysisUnexpected)
	assert.ErrorIs(t, f, context.DeadlineExceeded)
}

// panicky panics inside the landmark pass.
type panicky struct {
	*mock.Detector
}

func (p panicky) FindSingleFaceWithLandmarks(ctx context.Context, img *imagesrc.Image, opts provider.Options) (*provider.LandmarkedFace, error) {
	panic("index out of range")
}

func TestDetect_LandmarkPanicIsUnexpected(t *testing.T) {
	_, err := newOrchestrator(panicky{mock.New()}, time.Second).Detect(context.Background(), testImage())

	f := requireFailure(t, err, domain.FailureAnalysisUnexpected)
	assert.ErrorContains(t, f.Err, "panicked")
	assert.NotContains(t, f.Message(), "index out of range")
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	d := mock.New()
	o := NewOrchestrator(d, NewModelLoader(d, testLogger(), 0), Config{}, testLogger())

	assert.Equal(t, 15*time.Second, o.config.Timeout)
	assert.Equal(t, 416, o.config.InputSize)
}
