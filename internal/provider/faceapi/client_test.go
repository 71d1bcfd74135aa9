package faceapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Timeout = 2 * time.Second
	cfg.BaseBackoff = time.Millisecond
	return cfg
}

func TestClient_Detect(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse interface{}
		serverStatus   int
		wantErr        bool
		wantErrIs      error
		wantErrContain string
		wantCalls      int32
		validateResp   func(*testing.T, *DetectResponse)
	}{
		{
			name: "single face",
			serverResponse: DetectResponse{Faces: []DetectedFace{
				{Box: Box{X: 10, Y: 20, Width: 100, Height: 120}, Score: 0.98},
			}},
			serverStatus: http.StatusOK,
			wantCalls:    1,
			validateResp: func(t *testing.T, resp *DetectResponse) {
				require.Len(t, resp.Faces, 1)
				assert.Equal(t, 100.0, resp.Faces[0].Box.Width)
				assert.Equal(t, 0.98, resp.Faces[0].Score)
			},
		},
		{
			name:           "empty response",
			serverResponse: DetectResponse{Faces: []DetectedFace{}},
			serverStatus:   http.StatusOK,
			wantCalls:      1,
			validateResp: func(t *testing.T, resp *DetectResponse) {
				assert.Empty(t, resp.Faces)
			},
		},
		{
			name:           "server error is retried then reported unavailable",
			serverResponse: map[string]string{"error": "internal server error"},
			serverStatus:   http.StatusInternalServerError,
			wantErr:        true,
			wantErrIs:      ErrServiceUnavailable,
			wantErrContain: "status 500",
			wantCalls:      4,
		},
		{
			name:           "bad request is not retried",
			serverResponse: map[string]string{"error": "invalid image"},
			serverStatus:   http.StatusBadRequest,
			wantErr:        true,
			wantErrContain: "status 400",
			wantCalls:      1,
		},
		{
			name:           "invalid json response",
			serverResponse: "not a valid json",
			serverStatus:   http.StatusOK,
			wantErr:        true,
			wantErrIs:      ErrInvalidResponse,
			wantCalls:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Equal(t, "/detect", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req DetectRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.NotEmpty(t, req.Img)
				assert.Equal(t, 416, req.InputSize)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.serverStatus)
				_ = json.NewEncoder(w).Encode(tt.serverResponse)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			resp, err := client.Detect(context.Background(), DetectRequest{Img: "aGk=", MinConfidence: 0.5, InputSize: 416})

			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
				if tt.wantErrContain != "" {
					assert.Contains(t, err.Error(), tt.wantErrContain)
				}
				return
			}

			require.NoError(t, err)
			tt.validateResp(t, resp)
		})
	}
}

func TestClient_RetryRecovers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(LoadModelsResponse{Loaded: true, Models: []string{"tiny_face_detector", "face_landmark_68"}})
	}))
	defer server.Close()

	resp, err := NewClient(testConfig(server.URL)).LoadModels(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Loaded)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.BaseBackoff = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(cfg).Landmarks(ctx, DetectRequest{Img: "aGk="})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, maxBackoff},
		{20, maxBackoff},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}
