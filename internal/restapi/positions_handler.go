package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"driver.schoolfleet.org/internal/models"
	"driver.schoolfleet.org/internal/tracking"
)

// ingestPositionHandler accepts one GPS fix from the driver device. Malformed
// fixes are rejected at this boundary so nothing downstream sees them.
func (api *RestAPI) ingestPositionHandler(w http.ResponseWriter, r *http.Request) {
	var sample models.LocationSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		api.Metrics.SamplesRejected.Inc()
		api.errorResponse(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := api.Provider.Push(sample); err != nil {
		api.Metrics.SamplesRejected.Inc()
		api.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(nil))
}

// currentPositionHandler performs a one-shot position fetch, independent of
// whether a tracking session is running.
func (api *RestAPI) currentPositionHandler(w http.ResponseWriter, r *http.Request) {
	sample, err := api.Fleet.Session().Current(r.Context(), tracking.PositionOptions{
		Timeout:     5 * time.Second,
		MaxCacheAge: 30 * time.Second,
	})
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(sample))
}
