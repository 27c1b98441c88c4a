package restapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentTimeHandler(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, http.MethodGet, "/api/fleet/current-time.json", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusOK, model.Code)
	assert.Equal(t, "OK", model.Text)
	assert.Equal(t, 2, model.Version)

	entry := entryFromModel(t, model)

	readableTime, ok := entry["readableTime"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, readableTime)
	require.NoError(t, err)

	millis, ok := entry["time"].(float64)
	require.True(t, ok)
	assert.InDelta(t, float64(parsed.UnixMilli()), millis, 1000)
}
