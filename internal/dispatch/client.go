// Package dispatch is the typed client for the fleet dispatch REST service:
// authentication, driver profile and stats, routes, student status updates
// and incident reports. All responses arrive in a `{ "data": T }` envelope
// and every authenticated call carries a bearer token.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"driver.schoolfleet.org/internal/models"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrUnauthorized means the token was missing, expired or revoked.
	ErrUnauthorized = errors.New("dispatch: unauthorized")

	// ErrNotFound means the requested resource does not exist; for the
	// active-route lookup it means no route is assigned right now.
	ErrNotFound = errors.New("dispatch: not found")
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken installs the bearer token used on subsequent calls, typically
// restored from storage on startup or obtained from Login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token, empty when not authenticated.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("dispatch: encode %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("dispatch: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("dispatch: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("dispatch: decode %s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("dispatch: decode %s %s: %w", method, path, err)
	}
	return nil
}

// LoginResult is the payload returned by a successful login.
type LoginResult struct {
	Token  string        `json:"token"`
	Driver models.Driver `json:"driver"`
}

// Login authenticates the driver and installs the returned token on the
// client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	payload := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &result); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(result.Token)
	return result, nil
}

// Profile fetches the authenticated driver's profile.
func (c *Client) Profile(ctx context.Context, driverID string) (models.Driver, error) {
	var d models.Driver
	err := c.do(ctx, http.MethodGet, "/drivers/"+driverID, nil, &d)
	return d, err
}

// UpdateProfile pushes profile edits to the dispatch service.
func (c *Client) UpdateProfile(ctx context.Context, driver models.Driver) (models.Driver, error) {
	var d models.Driver
	err := c.do(ctx, http.MethodPut, "/drivers/"+driver.ID, driver, &d)
	return d, err
}

// Stats fetches the driver's aggregate statistics.
func (c *Client) Stats(ctx context.Context, driverID string) (models.DriverStats, error) {
	var s models.DriverStats
	err := c.do(ctx, http.MethodGet, "/drivers/"+driverID+"/stats", nil, &s)
	return s, err
}

// ActiveRoute returns the route currently assigned to the driver, or
// ErrNotFound when there is none.
func (c *Client) ActiveRoute(ctx context.Context, driverID string) (models.Route, error) {
	var r models.Route
	err := c.do(ctx, http.MethodGet, "/routes/active/"+driverID, nil, &r)
	return r, err
}

// RouteByID fetches a route by its identifier.
func (c *Client) RouteByID(ctx context.Context, routeID string) (models.Route, error) {
	var r models.Route
	err := c.do(ctx, http.MethodGet, "/routes/"+routeID, nil, &r)
	return r, err
}

// StartRoute marks the route in progress and returns its refreshed state,
// roster included.
func (c *Client) StartRoute(ctx context.Context, routeID string) (models.Route, error) {
	var r models.Route
	err := c.do(ctx, http.MethodPost, "/routes/"+routeID+"/start", nil, &r)
	return r, err
}

// CompleteRoute marks the route completed.
func (c *Client) CompleteRoute(ctx context.Context, routeID string) (models.Route, error) {
	var r models.Route
	err := c.do(ctx, http.MethodPost, "/routes/"+routeID+"/complete", nil, &r)
	return r, err
}

// UpdateRouteStatus sets an explicit route status (e.g. PAUSED).
func (c *Client) UpdateRouteStatus(ctx context.Context, routeID string, status models.RouteStatus) (models.Route, error) {
	if !status.Valid() {
		return models.Route{}, fmt.Errorf("dispatch: invalid route status %q", status)
	}
	var r models.Route
	err := c.do(ctx, http.MethodPut, "/routes/"+routeID+"/status", map[string]models.RouteStatus{"status": status}, &r)
	return r, err
}

// RouteHistory fetches completed trips for the driver.
func (c *Client) RouteHistory(ctx context.Context, driverID string) ([]models.TripSummary, error) {
	var trips []models.TripSummary
	err := c.do(ctx, http.MethodGet, "/drivers/"+driverID+"/history", nil, &trips)
	return trips, err
}

// UpdateStudentStatus reports a status transition with optional pickup
// metadata. The status is validated locally before the call goes out.
func (c *Client) UpdateStudentStatus(ctx context.Context, studentID string, status models.StudentStatus, pickup *models.StudentPickupData) (models.Student, error) {
	if !status.Valid() {
		return models.Student{}, fmt.Errorf("dispatch: invalid student status %q", status)
	}
	payload := struct {
		Status     models.StudentStatus      `json:"status"`
		PickupData *models.StudentPickupData `json:"pickupData,omitempty"`
	}{Status: status, PickupData: pickup}

	var s models.Student
	err := c.do(ctx, http.MethodPut, "/students/"+studentID+"/status", payload, &s)
	return s, err
}

// ContactParent sends a message to the student's parent via dispatch.
func (c *Client) ContactParent(ctx context.Context, studentID, message string) error {
	return c.do(ctx, http.MethodPost, "/students/"+studentID+"/contact-parent", map[string]string{"message": message}, nil)
}

// ReportIncident files an incident against the active route.
func (c *Client) ReportIncident(ctx context.Context, routeID string, incident models.Incident) (models.Incident, error) {
	var out models.Incident
	err := c.do(ctx, http.MethodPost, "/routes/"+routeID+"/incidents", incident, &out)
	return out, err
}
