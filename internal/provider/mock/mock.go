package mock

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
)

// Detector implementa provider.FaceDetector para testes e desenvolvimento
type Detector struct {
	faces       int
	landmarks   *provider.Landmarks68
	delay       time.Duration
	gate        <-chan struct{}
	loadErr     error
	detectErr   error
	landmarkErr error

	mu     sync.Mutex
	loaded bool

	loadCalls     atomic.Int32
	findAllCalls  atomic.Int32
	landmarkCalls atomic.Int32
}

type Option func(*Detector)

// WithFaces sets how many faces the coarse pass reports.
func WithFaces(n int) Option {
	return func(d *Detector) { d.faces = n }
}

// WithLandmarks sets the landmark set returned; nil means the landmark pass
// settles without a face.
func WithLandmarks(lm *provider.Landmarks68) Option {
	return func(d *Detector) { d.landmarks = lm }
}

// WithDelay makes the landmark pass take d before settling.
func WithDelay(d time.Duration) Option {
	return func(m *Detector) { m.delay = d }
}

// WithGate blocks the landmark pass until gate is closed, simulating a
// detector call that cannot be interrupted.
func WithGate(gate <-chan struct{}) Option {
	return func(d *Detector) { d.gate = gate }
}

func WithLoadError(err error) Option {
	return func(d *Detector) { d.loadErr = err }
}

func WithDetectError(err error) Option {
	return func(d *Detector) { d.detectErr = err }
}

func WithLandmarkError(err error) Option {
	return func(d *Detector) { d.landmarkErr = err }
}

// New cria um detector determinístico. Por padrão encontra uma face com
// SampleLandmarks.
func New(opts ...Option) *Detector {
	lm := SampleLandmarks()
	d := &Detector{faces: 1, landmarks: &lm}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) LoadModels(ctx context.Context) error {
	d.loadCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.loadErr != nil {
		return d.loadErr
	}
	d.mu.Lock()
	d.loaded = true
	d.mu.Unlock()
	return nil
}

func (d *Detector) isLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

func (d *Detector) FindAllFaces(ctx context.Context, img *imagesrc.Image, opts provider.Options) ([]provider.BoundingBox, error) {
	d.findAllCalls.Add(1)
	if !d.isLoaded() {
		return nil, provider.ErrModelsNotLoaded
	}
	if d.detectErr != nil {
		return nil, d.detectErr
	}

	boxes := make([]provider.BoundingBox, 0, d.faces)
	for i := 0; i < d.faces; i++ {
		boxes = append(boxes, provider.BoundingBox{
			X:      float64(90 + i*260),
			Y:      100,
			Width:  220,
			Height: 240,
		})
	}
	return boxes, nil
}

func (d *Detector) FindSingleFaceWithLandmarks(ctx context.Context, img *imagesrc.Image, opts provider.Options) (*provider.LandmarkedFace, error) {
	d.landmarkCalls.Add(1)
	if !d.isLoaded() {
		return nil, provider.ErrModelsNotLoaded
	}

	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.delay > 0 {
		t := time.NewTimer(d.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if d.landmarkErr != nil {
		return nil, d.landmarkErr
	}
	if d.landmarks == nil || d.faces == 0 {
		return nil, nil
	}
	return &provider.LandmarkedFace{
		Box:       provider.BoundingBox{X: 90, Y: 100, Width: 220, Height: 240},
		Landmarks: *d.landmarks,
		Score:     0.97,
	}, nil
}

func (d *Detector) LoadCalls() int     { return int(d.loadCalls.Load()) }
func (d *Detector) FindAllCalls() int  { return int(d.findAllCalls.Load()) }
func (d *Detector) LandmarkCalls() int { return int(d.landmarkCalls.Load()) }

// SampleLandmarks returns a frontal face on a 400x400 canvas. Its ratios are
// Face Shape 1.05, Nose 2.045 and Lip-Chin/Nose-Lip 2.0.
func SampleLandmarks() provider.Landmarks68 {
	var lm provider.Landmarks68
	p := func(x, y float64) domain.Point { return domain.Point{X: x, Y: y} }

	// jaw: half ellipse from the left temple through the chin to the right
	for i := 0; i <= 16; i++ {
		theta := math.Pi * float64(i) / 16
		lm[i] = p(200-100*math.Cos(theta), 180+140*math.Sin(theta))
	}
	// eyebrows
	for i := 0; i < 5; i++ {
		lm[17+i] = p(120+float64(i)*15, 130-float64(i%3)*4)
		lm[22+i] = p(220+float64(i)*15, 126+float64(i%3)*4)
	}
	// nose bridge and tip
	lm[27] = p(200, 110)
	lm[28] = p(200, 140)
	lm[29] = p(200, 170)
	lm[30] = p(200, 200)
	// nostrils
	lm[31] = p(178, 210)
	lm[32] = p(189, 212)
	lm[33] = p(200, 214)
	lm[34] = p(211, 212)
	lm[35] = p(222, 210)
	// eyes
	eye := func(start int, cx float64) {
		xs := []float64{-20, -10, 10, 20, 10, -10}
		ys := []float64{0, -6, -6, 0, 6, 6}
		for i := range xs {
			lm[start+i] = p(cx+xs[i], 150+ys[i])
		}
	}
	eye(36, 155)
	eye(42, 245)
	// outer lip 48..59, inner lip 60..67
	lm[48] = p(165, 254)
	lm[49] = p(178, 244)
	lm[50] = p(190, 241)
	lm[51] = p(200, 240)
	lm[52] = p(210, 241)
	lm[53] = p(222, 244)
	lm[54] = p(235, 254)
	lm[55] = p(222, 263)
	lm[56] = p(210, 267)
	lm[57] = p(200, 268)
	lm[58] = p(190, 267)
	lm[59] = p(178, 263)
	lm[60] = p(170, 254)
	lm[61] = p(188, 250)
	lm[62] = p(200, 250)
	lm[63] = p(212, 250)
	lm[64] = p(230, 254)
	lm[65] = p(212, 258)
	lm[66] = p(200, 258)
	lm[67] = p(188, 258)
	return lm
}
