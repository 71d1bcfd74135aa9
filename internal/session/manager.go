package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/camera"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/metrics"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session manager closed")
)

// Analyzer runs one image through the analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, img *imagesrc.Image) (*domain.AnalysisResult, error)
}

// Notifier receives every committed session change. Publish is called with
// the session lock held and must not block.
type Notifier interface {
	Publish(sessionID uuid.UUID, snapshot Snapshot)
}

type Config struct {
	TTL time.Duration
	// ImageLimits bounds camera stills; zero fields use the imagesrc defaults.
	ImageLimits imagesrc.Limits
}

func DefaultConfig() Config {
	return Config{
		TTL:         30 * time.Minute,
		ImageLimits: imagesrc.DefaultLimits(),
	}
}

// Manager owns the live sessions. Operations on one session are serialized;
// detection runs in the background and its outcome is applied only while the
// session is still on the generation the detection started with.
type Manager struct {
	store    *Store
	analyzer Analyzer
	camera   camera.Source
	notifier Notifier
	metrics  *metrics.PipelineMetrics
	config   Config
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// lifecycle orders wg.Add against the closed flag, so no detection
	// goroutine can be added once Close is waiting.
	lifecycle sync.Mutex
	closed    atomic.Bool
}

func NewManager(analyzer Analyzer, source camera.Source, cfg Config, logger *slog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if source == nil {
		source = camera.Unavailable{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		analyzer: analyzer,
		camera:   source,
		config:   cfg,
		logger:   logger.With("component", "session"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	m.store = NewStore(cfg.TTL, m.onRemove)
	return m
}

func (m *Manager) WithNotifier(n Notifier) *Manager {
	m.notifier = n
	return m
}

func (m *Manager) WithMetrics(pm *metrics.PipelineMetrics) *Manager {
	m.metrics = pm
	return m
}

func (m *Manager) Create(_ context.Context) (Session, error) {
	if m.closed.Load() {
		return Session{}, ErrClosed
	}

	s := New(uuid.New())
	s.UpdatedAt = m.now()

	e := &entry{session: s}
	e.ctx, e.cancel = context.WithCancel(m.ctx)
	m.store.add(e)

	m.logger.Debug("session created", "session_id", s.ID)
	return s, nil
}

func (m *Manager) Get(_ context.Context, id uuid.UUID) (Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()
	return e.session, nil
}

// Delete removes the session, releasing its camera and abandoning any
// detection in flight.
func (m *Manager) Delete(_ context.Context, id uuid.UUID) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if _, ok := m.store.get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.store.remove(id)
	return nil
}

// StartCamera opens a camera stream and enters CameraLive. A rejected stream
// request leaves the session in source selection with a
// CAMERA_PERMISSION_DENIED failure; a host without a camera returns
// camera.ErrNoDevice and leaves the session unchanged.
func (m *Manager) StartCamera(ctx context.Context, id uuid.UUID) (Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()

	next, err := e.session.StartCamera()
	if err != nil {
		return e.session, err
	}

	stream, err := m.camera.Open(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNoDevice) || ctx.Err() != nil {
			return e.session, err
		}
		denied, derr := e.session.CameraDenied(err)
		if derr != nil {
			return e.session, derr
		}
		m.logger.Info("camera denied", "session_id", id, "error", err)
		m.commit(e, denied)
		return e.session, nil
	}

	e.stream = stream
	m.metrics.CameraOpened()
	m.commit(e, next)
	return e.session, nil
}

// Capture takes a still from the live camera, releases the stream and starts
// detection on the still.
func (m *Manager) Capture(ctx context.Context, id uuid.UUID) (Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()

	if e.session.Mode != ModeCameraLive || e.stream == nil {
		return e.session, invalid("capture", e.session)
	}

	still, err := e.stream.Capture(ctx)
	if err != nil {
		return e.session, fmt.Errorf("capture still: %w", err)
	}
	img, err := imagesrc.Decode(ctx, still, m.config.ImageLimits)
	if err != nil {
		return e.session, fmt.Errorf("decode still: %w", err)
	}

	next, err := e.session.LoadImage(img, OriginCamera)
	if err != nil {
		return e.session, err
	}
	m.release(e)
	m.commit(e, next)
	m.startDetection(e)
	return e.session, nil
}

func (m *Manager) CancelCamera(_ context.Context, id uuid.UUID) (Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()

	next, err := e.session.CancelCamera()
	if err != nil {
		return e.session, err
	}
	m.release(e)
	m.commit(e, next)
	return e.session, nil
}

// LoadImage replaces the session image from any state and starts detection
// on it. A detection still in flight for the previous image is superseded.
func (m *Manager) LoadImage(_ context.Context, id uuid.UUID, img *imagesrc.Image) (Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()

	next, err := e.session.LoadImage(img, OriginUpload)
	if err != nil {
		return e.session, err
	}
	m.release(e)
	m.commit(e, next)
	m.startDetection(e)
	return e.session, nil
}

func (m *Manager) Reset(_ context.Context, id uuid.UUID) (Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()

	m.release(e)
	m.commit(e, e.session.Reset())
	return e.session, nil
}

// ActiveSessions returns the number of stored sessions.
func (m *Manager) ActiveSessions() int {
	return m.store.Count()
}

// Close abandons in-flight detections, waits for their goroutines and
// releases every camera stream. The manager rejects further operations.
func (m *Manager) Close() {
	m.lifecycle.Lock()
	if m.closed.Load() {
		m.lifecycle.Unlock()
		return
	}
	m.closed.Store(true)
	m.lifecycle.Unlock()

	m.cancel()
	m.wg.Wait()

	for _, e := range m.store.drain() {
		e.mu.Lock()
		e.removed = true
		m.release(e)
		e.mu.Unlock()
	}
	m.logger.Info("session manager closed")
}

// acquire returns the live entry for id with its lock held.
func (m *Manager) acquire(id uuid.UUID) (*entry, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	e, ok := m.store.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.store.touch(e)
	return e, nil
}

// startDetection moves the session to Detecting and analyzes its image in
// the background. Callers hold e.mu.
func (m *Manager) startDetection(e *entry) {
	next, err := e.session.BeginDetection()
	if err != nil {
		m.logger.Error("cannot start detection", "session_id", e.session.ID, "error", err)
		return
	}

	id, gen, img := next.ID, next.Generation, next.Image
	ctx := audit.WithSessionID(e.ctx, id)

	// completeDetection takes e.mu, so the Detecting commit below is always
	// published before the outcome.
	started := m.goTracked(func() {
		result, err := m.analyzer.Analyze(ctx, img)
		m.completeDetection(e, gen, result, err)
	})
	if !started {
		m.logger.Debug("detection not started, manager closing", "session_id", id)
		return
	}
	m.commit(e, next)
}

// goTracked runs fn on a goroutine Close waits for. It refuses once Close
// has started.
func (m *Manager) goTracked(fn func()) bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.closed.Load() {
		return false
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
	return true
}

func (m *Manager) completeDetection(e *entry, gen uint64, result *domain.AnalysisResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return
	}

	next, applied := e.session.CompleteDetection(gen, result, err)
	if !applied {
		m.metrics.IncrementStaleResults()
		m.logger.Debug("stale detection result dropped",
			"session_id", e.session.ID,
			"generation", gen,
			"current_generation", e.session.Generation,
		)
		return
	}
	m.commit(e, next)
}

// commit stores s as the entry's session and publishes it. Callers hold e.mu.
func (m *Manager) commit(e *entry, s Session) {
	s.Revision = e.session.Revision + 1
	s.UpdatedAt = m.now()
	e.session = s
	if m.notifier != nil {
		m.notifier.Publish(s.ID, s.Snapshot())
	}
}

// release stops the entry's camera stream, if any. Callers hold e.mu.
func (m *Manager) release(e *entry) {
	if e.releaseStream() {
		m.metrics.CameraReleased()
	}
}

func (m *Manager) onRemove(e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return
	}
	e.removed = true
	m.release(e)
	if e.cancel != nil {
		e.cancel()
	}
	m.logger.Debug("session removed", "session_id", e.session.ID)
}
