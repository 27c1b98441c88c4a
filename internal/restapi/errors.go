package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"driver.schoolfleet.org/internal/dispatch"
	"driver.schoolfleet.org/internal/fleet"
	"driver.schoolfleet.org/internal/models"
	"driver.schoolfleet.org/internal/tracking"
)

// invalidTokenResponse sends a 401 Unauthorized response with the required
// format for invalid device token errors
func (api *RestAPI) invalidTokenResponse(w http.ResponseWriter, r *http.Request) {
	// Create response with the specific format required
	response := struct {
		Code        int    `json:"code"`
		CurrentTime int64  `json:"currentTime"`
		Text        string `json:"text"`
		Version     int    `json:"version"`
	}{
		Code:        http.StatusUnauthorized,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        "permission denied",
		Version:     1, // Note: This is version 1, not 2 as in a successful response. Probably a mistake, but back-compat.
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.Logger.Error("failed to encode invalid token response", "error", err)
	}
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)

	// Send a 500 Internal Server Error response
	response := struct {
		Code        int    `json:"code"`
		CurrentTime int64  `json:"currentTime"`
		Text        string `json:"text"`
		Version     int    `json:"version"`
	}{
		Code:        http.StatusInternalServerError,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        "internal server error",
		Version:     1,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	encoderErr := json.NewEncoder(w).Encode(response)
	if encoderErr != nil {
		api.Logger.Error("failed to encode server error response", "error", encoderErr)
	}
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	// Create response with the required format for validation errors
	response := struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		FieldErrors: fieldErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.Logger.Error("failed to encode validation error response", "error", err)
	}
}

// errorResponse sends an envelope-shaped error with the given status and text.
func (api *RestAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, text string) {
	setJSONResponseType(&w)
	w.WriteHeader(status)

	response := models.ResponseModel{
		Code:        status,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        text,
		Version:     2,
	}

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.Logger.Error("failed to encode error response", "error", err)
	}
}

// fleetErrorResponse maps domain and upstream errors onto HTTP statuses.
func (api *RestAPI) fleetErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fleet.ErrNoActiveRoute):
		api.errorResponse(w, r, http.StatusConflict, "no active route")
	case errors.Is(err, fleet.ErrRouteInProgress):
		api.errorResponse(w, r, http.StatusConflict, "a route is already in progress")
	case errors.Is(err, fleet.ErrStudentNotFound):
		api.sendNotFound(w, r)
	case errors.Is(err, fleet.ErrNotEligible):
		api.errorResponse(w, r, http.StatusConflict, "outside pickup radius; set force to override")
	case errors.Is(err, dispatch.ErrNotFound):
		api.sendNotFound(w, r)
	case errors.Is(err, dispatch.ErrUnauthorized):
		api.errorResponse(w, r, http.StatusUnauthorized, "dispatch rejected credentials")
	case errors.Is(err, tracking.ErrPermissionDenied):
		api.errorResponse(w, r, http.StatusServiceUnavailable, "location permission not granted on device")
	case errors.Is(err, tracking.ErrLocationUnavailable):
		api.errorResponse(w, r, http.StatusServiceUnavailable, "no location fix available")
	case errors.Is(err, tracking.ErrInvalidState):
		api.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		api.serverErrorResponse(w, r, err)
	}
}
