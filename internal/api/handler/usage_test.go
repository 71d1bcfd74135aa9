package handler

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/phiface/internal/usage"
)

type MockUsageService struct {
	mock.Mock
}

func (m *MockUsageService) GetUsage(ctx context.Context, from, to string) (*usage.Summary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.Summary), args.Error(1)
}

func TestUsageHandler_GetUsage(t *testing.T) {
	t.Run("passes the range through", func(t *testing.T) {
		svc := new(MockUsageService)
		svc.On("GetUsage", mock.Anything, "2026-03-01", "2026-03-02").Return(&usage.Summary{
			From:   "2026-03-01",
			To:     "2026-03-02",
			Totals: usage.Totals{Analyses: 10, Succeeded: 8, Failed: 2, SuccessRate: 80},
		}, nil)

		app := createTestApp()
		app.Get("/v1/usage", NewUsageHandler(svc).GetUsage)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/usage?from=2026-03-01&to=2026-03-02", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		summary := decode[usage.Summary](t, resp.Body)
		assert.Equal(t, 10, summary.Totals.Analyses)
		assert.InDelta(t, 80.0, summary.Totals.SuccessRate, 1e-9)

		svc.AssertExpectations(t)
	})

	t.Run("invalid range is a validation error", func(t *testing.T) {
		svc := new(MockUsageService)
		svc.On("GetUsage", mock.Anything, "tomorrow", "").
			Return(nil, fmt.Errorf("%w: from must be YYYY-MM-DD", usage.ErrInvalidRange))

		app := createTestApp()
		app.Get("/v1/usage", NewUsageHandler(svc).GetUsage)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/usage?from=tomorrow", nil))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		body := decode[errorResponse](t, resp.Body)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Contains(t, body.Error.Message, "YYYY-MM-DD")
	})
}
