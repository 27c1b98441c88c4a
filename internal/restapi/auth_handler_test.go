package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginInstallsSession(t *testing.T) {
	api := createTestApi(t)
	api.ClearDriver()

	resp, model := serveApiAndRetrieveEndpoint(t, api, http.MethodPost, "/api/fleet/auth/login",
		map[string]string{"email": "ahmed@schoolfleet.org", "password": "secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", model.Text)

	entry := entryFromModel(t, model)
	assert.Equal(t, "dispatch-token", entry["token"])

	driver, ok := entry["driver"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "d1", driver["id"])

	// The dispatch token is now installed for subsequent calls.
	assert.Equal(t, "dispatch-token", api.Dispatch.Token())
	_, ok = api.Driver()
	assert.True(t, ok)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, http.MethodPost, "/api/fleet/auth/login",
		map[string]string{"email": "ahmed@schoolfleet.org", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", model.Text)
}

func TestLoginValidatesInput(t *testing.T) {
	api := createTestApi(t)

	resp, _ := serveApiAndRetrieveEndpoint(t, api, http.MethodPost, "/api/fleet/auth/login",
		map[string]string{"email": "not-an-email", "password": "secret"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = serveApiAndRetrieveEndpoint(t, api, http.MethodPost, "/api/fleet/auth/login",
		map[string]string{"email": "ahmed@schoolfleet.org"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginWorksWithoutDeviceToken(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	resp, _ := requestEndpoint(t, server, http.MethodPost, "/api/fleet/auth/login",
		map[string]string{"email": "ahmed@schoolfleet.org", "password": "secret"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutClearsSession(t *testing.T) {
	api := createTestApi(t)
	api.Dispatch.SetToken("dispatch-token")

	resp, _ := serveApiAndRetrieveEndpoint(t, api, http.MethodPost, "/api/fleet/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Empty(t, api.Dispatch.Token())
	_, ok := api.Driver()
	assert.False(t, ok)
}

func TestEndpointsRequireValidToken(t *testing.T) {
	api := createTestApi(t)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	resp, model := requestEndpoint(t, server, http.MethodGet, "/api/fleet/route", nil, "invalid")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "permission denied", model.Text)

	resp, _ = requestEndpoint(t, server, http.MethodGet, "/api/fleet/route", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
