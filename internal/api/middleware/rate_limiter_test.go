package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newLimitedApp(rl *RateLimiter, paths ...string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(429).JSON(fiber.Map{"error": "rate limit"})
		},
	})
	app.Use(rl.Handler())
	for _, p := range paths {
		app.Get(p, func(c *fiber.Ctx) error {
			return c.SendString("OK")
		})
	}
	return app
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			Max:    5,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return "10.0.0.1"
			},
		})
		defer rl.Stop()

		app := newLimitedApp(rl, "/test")

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "OK", string(body))
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			Max:    2,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return "10.0.0.1"
			},
		})
		defer rl.Stop()

		app := newLimitedApp(rl, "/test")

		// First 2 should succeed
		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}

		// Third should be rate limited
		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 429, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	})

	t.Run("different clients have separate limits", func(t *testing.T) {
		var currentIP string

		rl := NewRateLimiter(RateLimiterConfig{
			Max:    2,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return currentIP
			},
		})
		defer rl.Stop()

		app := newLimitedApp(rl, "/test")

		currentIP = "10.0.0.1"
		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}

		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 429, resp.StatusCode)

		currentIP = "10.0.0.2"
		resp, _ = app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("rate limit headers are set", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{Max: 10, Window: time.Minute})
		defer rl.Stop()

		app := newLimitedApp(rl, "/test")

		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	})

	t.Run("window resets after expiry", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{Max: 1, Window: 50 * time.Millisecond})
		defer rl.Stop()

		app := newLimitedApp(rl, "/test")

		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 200, resp.StatusCode)
		resp, _ = app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 429, resp.StatusCode)

		time.Sleep(60 * time.Millisecond)

		resp, _ = app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()

	assert.Equal(t, 120, config.Max)
	assert.Equal(t, time.Minute, config.Window)
	assert.NotNil(t, config.KeyGenerator)
}

func TestRateLimiter_Stop(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Max: 10, Window: time.Second})

	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Max: 10, Window: time.Minute})
	defer rl.Stop()

	app := newLimitedApp(rl, "/test")
	_, _ = app.Test(httptest.NewRequest("GET", "/test", nil))
	assert.Len(t, rl.limiters, 1)

	rl.evictIdle(time.Now().Add(time.Minute))
	assert.Len(t, rl.limiters, 1)

	rl.evictIdle(time.Now().Add(3 * time.Minute))
	assert.Empty(t, rl.limiters)
}

func TestRateLimiter_PerEndpoint(t *testing.T) {
	t.Run("applies different limits per endpoint", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			Max:    100,
			Window: time.Minute,
			PerEndpoint: map[string]EndpointRateLimit{
				"/v1/analyses": {Requests: 2, Window: time.Minute},
			},
		})
		defer rl.Stop()

		app := newLimitedApp(rl, "/v1/analyses", "/v1/sessions")

		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/analyses", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}

		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/analyses", nil))
		assert.Equal(t, 429, resp.StatusCode)

		// other routes use the default limit
		for i := 0; i < 10; i++ {
			resp, _ = app.Test(httptest.NewRequest("GET", "/v1/sessions", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}
	})

	t.Run("rate limit headers reflect endpoint-specific limits", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			Max:         100,
			Window:      time.Minute,
			PerEndpoint: AnalysisRateLimits(),
		})
		defer rl.Stop()

		app := newLimitedApp(rl, "/v1/analyses", "/health")

		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/analyses", nil))
		assert.Equal(t, "30", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "29", resp.Header.Get("X-RateLimit-Remaining"))

		resp, _ = app.Test(httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, "100", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "99", resp.Header.Get("X-RateLimit-Remaining"))
	})
}
