package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver.schoolfleet.org/internal/fleet"
	"driver.schoolfleet.org/internal/models"
)

func TestIngestPositionRejectsMalformedSample(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	// Latitude out of range.
	sample := models.LocationSample{
		Coordinate: models.Coordinate{Latitude: 95.0, Longitude: 31.25},
		Timestamp:  time.Now(),
	}
	resp, _ := requestEndpoint(t, server, http.MethodPost, "/api/fleet/positions", sample, testToken)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCurrentPositionUsesCachedFix(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	pushPosition(t, server, 30.0444, 31.2357)

	resp, model := requestEndpoint(t, server, http.MethodGet, "/api/fleet/positions/current", nil, testToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry := entryFromModel(t, model)
	coords, ok := entry["coordinates"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 30.0444, coords["latitude"], 0.0001)
}

func TestPositionsStreamDeliversUpdates(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	startRouteOn(t, server)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/fleet/positions/ws"
	header := http.Header{"Authorization": []string{"Bearer " + testToken}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The handler registers the client after the handshake; wait for it
	// before pushing so the broadcast cannot slip past an empty hub.
	require.Eventually(t, func() bool {
		api.hub.mu.Lock()
		defer api.hub.mu.Unlock()
		return len(api.hub.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	pushPosition(t, server, 30.0500, 31.2500)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var update fleet.Update
	require.NoError(t, json.Unmarshal(payload, &update))
	assert.Equal(t, "route-1", update.Progress.RouteID)
	require.NotNil(t, update.Sample)
	assert.InDelta(t, 30.0500, update.Sample.Coordinate.Latitude, 0.0001)
}

func TestPositionsStreamRequiresToken(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/fleet/positions/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
