package restapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"driver.schoolfleet.org/internal/app"
	"driver.schoolfleet.org/internal/dispatch"
	"driver.schoolfleet.org/internal/fleet"
	"driver.schoolfleet.org/internal/metrics"
	"driver.schoolfleet.org/internal/models"
	"driver.schoolfleet.org/internal/notify"
	"driver.schoolfleet.org/internal/storage"
	"driver.schoolfleet.org/internal/tracking"
)

const testToken = "TEST"

func testRoute() models.Route {
	return models.Route{
		ID:        "route-1",
		Name:      "Maadi Morning",
		Type:      models.RouteMorning,
		Status:    models.RouteInProgress,
		DriverID:  "d1",
		BusNumber: "BUS-042",
		Students: []models.Student{
			{
				ID: "s1", FirstName: "Omar", LastName: "Hassan", Status: models.StatusPending,
				HomeAddress: models.Address{Coordinates: models.Coordinate{Latitude: 30.0500, Longitude: 31.2500}},
			},
			{
				ID: "s2", FirstName: "Laila", LastName: "Adel", Status: models.StatusPending,
				HomeAddress: models.Address{Coordinates: models.Coordinate{Latitude: 30.2000, Longitude: 31.4000}},
			},
		},
	}
}

// scriptedDispatch is a stand-in dispatch service covering the endpoints the
// handlers exercise.
func scriptedDispatch(t *testing.T) http.Handler {
	t.Helper()

	write := func(w http.ResponseWriter, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{"data": data}))
	}

	driver := models.Driver{ID: "d1", FirstName: "Ahmed", LastName: "Mansour", BusNumber: "BUS-042"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		write(w, dispatch.LoginResult{Token: "dispatch-token", Driver: driver})
	})
	mux.HandleFunc("GET /drivers/d1", func(w http.ResponseWriter, r *http.Request) {
		write(w, driver)
	})
	mux.HandleFunc("GET /drivers/d1/stats", func(w http.ResponseWriter, r *http.Request) {
		write(w, models.DriverStats{TotalTrips: 120, OnTimePercentage: 97.5})
	})
	mux.HandleFunc("GET /drivers/d1/history", func(w http.ResponseWriter, r *http.Request) {
		write(w, []models.TripSummary{{ID: "t1", RouteID: "route-1"}})
	})
	mux.HandleFunc("GET /routes/active/d1", func(w http.ResponseWriter, r *http.Request) {
		write(w, testRoute())
	})
	mux.HandleFunc("GET /routes/route-1", func(w http.ResponseWriter, r *http.Request) {
		write(w, testRoute())
	})
	mux.HandleFunc("POST /routes/route-1/start", func(w http.ResponseWriter, r *http.Request) {
		write(w, testRoute())
	})
	mux.HandleFunc("POST /routes/route-1/complete", func(w http.ResponseWriter, r *http.Request) {
		route := testRoute()
		route.Status = models.RouteCompleted
		write(w, route)
	})
	mux.HandleFunc("PUT /routes/route-1/status", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Status models.RouteStatus `json:"status"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		route := testRoute()
		route.Status = payload.Status
		write(w, route)
	})
	mux.HandleFunc("POST /routes/route-1/incidents", func(w http.ResponseWriter, r *http.Request) {
		var incident models.Incident
		require.NoError(t, json.NewDecoder(r.Body).Decode(&incident))
		incident.ID = "inc-1"
		write(w, incident)
	})
	mux.HandleFunc("PUT /students/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Status models.StudentStatus `json:"status"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		write(w, models.Student{ID: r.PathValue("id"), Status: payload.Status})
	})
	mux.HandleFunc("POST /students/{id}/contact-parent", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	return createTestApiWithConfig(t, app.Config{
		Env:       "test",
		APITokens: []string{testToken},
		RateLimit: 100,

		PickupRadiusMeters:    100,
		MinDisplacementMeters: 10,
		MinInterval:           5 * time.Second,
		AccuracyGateMeters:    50,
	})
}

func createTestApiWithConfig(t *testing.T, cfg app.Config) *RestAPI {
	t.Helper()

	dispatchServer := httptest.NewServer(scriptedDispatch(t))
	t.Cleanup(dispatchServer.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := dispatch.NewClient(dispatchServer.URL)
	provider := tracking.NewPushProvider()
	collector := metrics.NewCollector(cfg.PickupRadiusMeters)
	store := storage.NewMemoryStore()

	manager := fleet.NewManager(logger, client, store, provider, notify.NoopSink{}, nil, collector, fleet.Config{
		PickupRadiusMeters:    cfg.PickupRadiusMeters,
		MinDisplacementMeters: cfg.MinDisplacementMeters,
		MinInterval:           cfg.MinInterval,
		AccuracyGateMeters:    cfg.AccuracyGateMeters,
	})

	application := &app.Application{
		Config:   cfg,
		Logger:   logger,
		Fleet:    manager,
		Store:    store,
		Dispatch: client,
		Provider: provider,
		Metrics:  collector,
	}
	application.SetDriver(models.Driver{ID: "d1", FirstName: "Ahmed", BusNumber: "BUS-042"})

	return NewRestAPI(application)
}

// serveApiAndRetrieveEndpoint spins up the full middleware chain and performs
// one request against it, decoding the envelope.
func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, method, path string, body interface{}) (*http.Response, models.ResponseModel) {
	t.Helper()

	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	return requestEndpoint(t, server, method, path, body, testToken)
}

func requestEndpoint(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string) (*http.Response, models.ResponseModel) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, server.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var model models.ResponseModel
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		// Validation errors use the fieldErrors shape, not the envelope;
		// leave the model zeroed in that case.
		_ = json.Unmarshal(raw, &model)
	}
	return resp, model
}

// entryFromModel digs the entry object out of a decoded envelope.
func entryFromModel(t *testing.T, model models.ResponseModel) map[string]interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok)
	entry, ok := data["entry"].(map[string]interface{})
	require.True(t, ok)
	return entry
}

func listFromModel(t *testing.T, model models.ResponseModel) []interface{} {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok)
	list, ok := data["list"].([]interface{})
	require.True(t, ok)
	return list
}
