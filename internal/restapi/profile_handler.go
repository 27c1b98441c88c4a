package restapi

import (
	"encoding/json"
	"net/http"

	"driver.schoolfleet.org/internal/models"
)

// sessionDriver resolves the logged-in driver or writes the error response.
func (api *RestAPI) sessionDriver(w http.ResponseWriter, r *http.Request) (models.Driver, bool) {
	driver, ok := api.Driver()
	if !ok {
		api.errorResponse(w, r, http.StatusUnauthorized, "login required")
		return models.Driver{}, false
	}
	return driver, true
}

func (api *RestAPI) profileHandler(w http.ResponseWriter, r *http.Request) {
	driver, ok := api.sessionDriver(w, r)
	if !ok {
		return
	}

	fresh, err := api.Dispatch.Profile(r.Context(), driver.ID)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}
	api.SetDriver(fresh)

	api.sendResponse(w, r, models.NewEntryResponse(fresh))
}

func (api *RestAPI) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	driver, ok := api.sessionDriver(w, r)
	if !ok {
		return
	}

	var edits models.Driver
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	// The profile being edited is always the logged-in driver's.
	edits.ID = driver.ID

	updated, err := api.Dispatch.UpdateProfile(r.Context(), edits)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}
	api.SetDriver(updated)

	api.sendResponse(w, r, models.NewEntryResponse(updated))
}

func (api *RestAPI) statsHandler(w http.ResponseWriter, r *http.Request) {
	driver, ok := api.sessionDriver(w, r)
	if !ok {
		return
	}

	stats, err := api.Dispatch.Stats(r.Context(), driver.ID)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(stats))
}
