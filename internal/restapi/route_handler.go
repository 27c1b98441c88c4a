package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"driver.schoolfleet.org/internal/dispatch"
	"driver.schoolfleet.org/internal/models"
)

// extractIDFromParams retrieves a parameter value from the request context
// and removes file extensions like ".json".
func extractIDFromParams(r *http.Request, paramName string) string {
	params := httprouter.ParamsFromContext(r.Context())
	rawID := params.ByName(paramName)
	return strings.Split(rawID, ".json")[0]
}

// activeRouteHandler returns the in-progress route when one exists, and
// otherwise asks dispatch for the driver's current assignment.
func (api *RestAPI) activeRouteHandler(w http.ResponseWriter, r *http.Request) {
	if route, ok := api.Fleet.ActiveRoute(); ok {
		api.sendResponse(w, r, models.NewEntryResponse(route))
		return
	}

	driver, ok := api.sessionDriver(w, r)
	if !ok {
		return
	}

	route, err := api.Dispatch.ActiveRoute(r.Context(), driver.ID)
	if err != nil {
		if errors.Is(err, dispatch.ErrNotFound) {
			api.sendNotFound(w, r)
			return
		}
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(route))
}

func (api *RestAPI) routeByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := extractIDFromParams(r, "id")

	route, err := api.Dispatch.RouteByID(r.Context(), id)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(route))
}

func (api *RestAPI) startRouteHandler(w http.ResponseWriter, r *http.Request) {
	id := extractIDFromParams(r, "id")

	route, err := api.Fleet.StartRoute(r.Context(), id)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(route))
}

func (api *RestAPI) completeRouteHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := api.Fleet.CompleteRoute(r.Context())
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(summary))
}

type routeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (api *RestAPI) updateRouteStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req routeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if fieldErrors := api.validateStruct(req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	status := models.RouteStatus(req.Status)
	if !status.Valid() {
		api.errorResponse(w, r, http.StatusUnprocessableEntity, "unknown route status")
		return
	}

	route, err := api.Fleet.UpdateRouteStatus(r.Context(), status)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(route))
}

func (api *RestAPI) progressHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := api.Fleet.ActiveRoute(); !ok {
		api.errorResponse(w, r, http.StatusConflict, "no active route")
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(api.Fleet.Progress()))
}

func (api *RestAPI) historyHandler(w http.ResponseWriter, r *http.Request) {
	driver, ok := api.sessionDriver(w, r)
	if !ok {
		return
	}

	trips, err := api.Fleet.History(r.Context(), driver.ID)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}
	if trips == nil {
		trips = []models.TripSummary{}
	}

	api.sendResponse(w, r, models.NewListResponse(trips))
}
