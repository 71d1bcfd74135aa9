package detection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
)

const (
	loadKey            = "models"
	defaultLoadTimeout = 2 * time.Minute
)

// ModelLoader loads the detector models once. Concurrent waiters share one
// load, a caller giving up does not abort it, and a failure sticks until
// Reload.
type ModelLoader struct {
	detector provider.FaceDetector
	logger   *slog.Logger
	timeout  time.Duration
	group    singleflight.Group

	mu    sync.Mutex
	ready bool
	err   error
}

// NewModelLoader creates a loader for detector. timeout <= 0 uses a two
// minute budget per load attempt.
func NewModelLoader(detector provider.FaceDetector, logger *slog.Logger, timeout time.Duration) *ModelLoader {
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	return &ModelLoader{
		detector: detector,
		logger:   logger.With("component", "model_loader"),
		timeout:  timeout,
	}
}

// Start kicks off the load in the background and returns immediately.
func (l *ModelLoader) Start(ctx context.Context) {
	go func() {
		if err := l.Ready(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("model load failed", "error", err)
		}
	}()
}

// Ready blocks until the models are loaded, the load failed, or ctx is done.
func (l *ModelLoader) Ready(ctx context.Context) error {
	if ready, err := l.Status(); ready || err != nil {
		return err
	}

	ch := l.group.DoChan(loadKey, func() (interface{}, error) {
		if ready, err := l.Status(); ready || err != nil {
			return nil, err
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		start := time.Now()
		err := l.detector.LoadModels(loadCtx)

		l.mu.Lock()
		if err != nil {
			l.err = err
		} else {
			l.ready = true
		}
		l.mu.Unlock()

		if err == nil {
			l.logger.Info("detector models loaded", "duration", time.Since(start))
		}
		return nil, err
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Reload clears a sticky failure and loads again.
func (l *ModelLoader) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.err = nil
	l.mu.Unlock()
	return l.Ready(ctx)
}

// Status reports whether the models are loaded and the sticky load error, if any.
func (l *ModelLoader) Status() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready, l.err
}

// ModelsReady reports whether the models are loaded.
func (l *ModelLoader) ModelsReady() bool {
	ready, _ := l.Status()
	return ready
}
