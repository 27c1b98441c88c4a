package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"driver.schoolfleet.org/internal/app"
)

func TestSecurityHeadersPresent(t *testing.T) {
	api := createTestApi(t)

	resp, _ := serveApiAndRetrieveEndpoint(t, api, http.MethodGet, "/api/fleet/current-time.json", nil)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestPreflightRequestShortCircuits(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/fleet/route", nil)
	assert.NoError(t, err)
	req.Header.Set("Origin", "https://dispatch.schoolfleet.org")

	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestZeroRateLimitBlocksRequests(t *testing.T) {
	api := createTestApiWithConfig(t, app.Config{
		Env:       "test",
		APITokens: []string{testToken},
		RateLimit: 0,

		PickupRadiusMeters:    100,
		MinDisplacementMeters: 10,
		MinInterval:           5 * time.Second,
		AccuracyGateMeters:    50,
	})

	resp, _ := serveApiAndRetrieveEndpoint(t, api, http.MethodGet, "/api/fleet/current-time.json", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
}
