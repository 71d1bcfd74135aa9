package handler

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/phiface/internal/camera"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/session"
)

// MockSessionManager is a mock implementation of SessionManager
type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) Create(ctx context.Context) (session.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *MockSessionManager) Get(ctx context.Context, id uuid.UUID) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *MockSessionManager) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionManager) StartCamera(ctx context.Context, id uuid.UUID) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *MockSessionManager) Capture(ctx context.Context, id uuid.UUID) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *MockSessionManager) CancelCamera(ctx context.Context, id uuid.UUID) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *MockSessionManager) LoadImage(ctx context.Context, id uuid.UUID, img *imagesrc.Image) (session.Session, error) {
	args := m.Called(ctx, id, img)
	if fn, ok := args.Get(0).(func(context.Context, uuid.UUID, *imagesrc.Image) session.Session); ok {
		return fn(ctx, id, img), args.Error(1)
	}
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *MockSessionManager) Reset(ctx context.Context, id uuid.UUID) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

func newSessionApp(m *MockSessionManager) *fiber.App {
	h := NewSessionHandler(m, imagesrc.DefaultLimits())
	app := createTestApp()
	app.Post("/v1/sessions", h.Create)
	app.Get("/v1/sessions/:id", h.Get)
	app.Delete("/v1/sessions/:id", h.Delete)
	app.Post("/v1/sessions/:id/camera", h.StartCamera)
	app.Post("/v1/sessions/:id/camera/capture", h.Capture)
	app.Delete("/v1/sessions/:id/camera", h.CancelCamera)
	app.Post("/v1/sessions/:id/image", h.LoadImage)
	app.Post("/v1/sessions/:id/reset", h.Reset)
	return app
}

func TestSessionHandler_Create(t *testing.T) {
	m := new(MockSessionManager)
	s := session.New(uuid.New())
	m.On("Create", mock.Anything).Return(s, nil)

	resp, err := newSessionApp(m).Test(httptest.NewRequest("POST", "/v1/sessions", nil))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	snap := decode[session.Snapshot](t, resp.Body)
	assert.Equal(t, s.ID, snap.ID)
	assert.Equal(t, session.ModeSelectingSource, snap.Mode)
	assert.Equal(t, session.StatusIdle, snap.Status)
}

func TestSessionHandler_Actions(t *testing.T) {
	id := uuid.New()
	live, err := session.New(id).StartCamera()
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		mocked string
		ret    session.Session
	}{
		{"get", "GET", "", "Get", session.New(id)},
		{"start camera", "POST", "/camera", "StartCamera", live},
		{"capture", "POST", "/camera/capture", "Capture", session.New(id)},
		{"cancel camera", "DELETE", "/camera", "CancelCamera", session.New(id)},
		{"reset", "POST", "/reset", "Reset", session.New(id)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockSessionManager)
			m.On(tt.mocked, mock.Anything, id).Return(tt.ret, nil)

			req := httptest.NewRequest(tt.method, "/v1/sessions/"+id.String()+tt.path, nil)
			resp, err := newSessionApp(m).Test(req)
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			snap := decode[session.Snapshot](t, resp.Body)
			assert.Equal(t, tt.ret.Mode, snap.Mode)

			m.AssertExpectations(t)
		})
	}
}

func TestSessionHandler_Errors(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		method     string
		path       string
		mocked     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown session", "GET", "", "Get", session.ErrNotFound, 404, "SESSION_NOT_FOUND"},
		{"capture while idle", "POST", "/camera/capture", "Capture", fmt.Errorf("%w: capture in selecting_source", session.ErrInvalidTransition), 409, "INVALID_TRANSITION"},
		{"no camera", "POST", "/camera", "StartCamera", camera.ErrNoDevice, 503, "CAMERA_UNAVAILABLE"},
		{"capture decode error", "POST", "/camera/capture", "Capture", imagesrc.ErrCorruptImage, 422, "INVALID_IMAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockSessionManager)
			m.On(tt.mocked, mock.Anything, id).Return(session.Session{}, tt.err)

			req := httptest.NewRequest(tt.method, "/v1/sessions/"+id.String()+tt.path, nil)
			resp, err := newSessionApp(m).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decode[errorResponse](t, resp.Body)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestSessionHandler_MalformedID(t *testing.T) {
	m := new(MockSessionManager)

	resp, err := newSessionApp(m).Test(httptest.NewRequest("GET", "/v1/sessions/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	m.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSessionHandler_Delete(t *testing.T) {
	id := uuid.New()
	m := new(MockSessionManager)
	m.On("Delete", mock.Anything, id).Return(nil)

	resp, err := newSessionApp(m).Test(httptest.NewRequest("DELETE", "/v1/sessions/"+id.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	m.AssertExpectations(t)
}

func TestSessionHandler_LoadImage(t *testing.T) {
	t.Run("accepts upload and starts detection", func(t *testing.T) {
		id := uuid.New()
		m := new(MockSessionManager)
		m.On("Get", mock.Anything, id).Return(session.New(id), nil)
		m.On("LoadImage", mock.Anything, id, mock.AnythingOfType("*imagesrc.Image")).
			Return(func(_ context.Context, _ uuid.UUID, img *imagesrc.Image) session.Session {
				s, _ := session.New(id).LoadImage(img, session.OriginUpload)
				s, _ = s.BeginDetection()
				return s
			}, nil)

		resp, err := newSessionApp(m).Test(createMultipartRequest(t, "POST", "/v1/sessions/"+id.String()+"/image", "image", testJPEG(t)))
		require.NoError(t, err)
		assert.Equal(t, 202, resp.StatusCode)

		snap := decode[session.Snapshot](t, resp.Body)
		assert.Equal(t, session.ModeImageLoaded, snap.Mode)
		assert.Equal(t, session.StatusDetecting, snap.Status)
		assert.Equal(t, session.OriginUpload, snap.Origin)
		require.NotNil(t, snap.ImageID)
		assert.Equal(t, 16, snap.ImageWidth)

		m.AssertExpectations(t)
	})

	t.Run("unknown session is rejected before decoding", func(t *testing.T) {
		id := uuid.New()
		m := new(MockSessionManager)
		m.On("Get", mock.Anything, id).Return(session.Session{}, session.ErrNotFound)

		resp, err := newSessionApp(m).Test(createMultipartRequest(t, "POST", "/v1/sessions/"+id.String()+"/image", "image", []byte("garbage")))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)

		m.AssertNotCalled(t, "LoadImage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid image keeps the session untouched", func(t *testing.T) {
		id := uuid.New()
		m := new(MockSessionManager)
		m.On("Get", mock.Anything, id).Return(session.New(id), nil)

		resp, err := newSessionApp(m).Test(createMultipartRequest(t, "POST", "/v1/sessions/"+id.String()+"/image", "image", []byte("garbage")))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		m.AssertNotCalled(t, "LoadImage", mock.Anything, mock.Anything, mock.Anything)
	})
}
