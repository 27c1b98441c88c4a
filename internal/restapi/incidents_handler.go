package restapi

import (
	"encoding/json"
	"net/http"

	"driver.schoolfleet.org/internal/models"
)

type incidentRequest struct {
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"required"`
}

func (api *RestAPI) reportIncidentHandler(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if fieldErrors := api.validateStruct(req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	incidentType := models.IncidentType(req.Type)
	if !incidentType.Valid() {
		api.errorResponse(w, r, http.StatusUnprocessableEntity, "unknown incident type")
		return
	}

	incident, err := api.Fleet.ReportIncident(r.Context(), incidentType, req.Description)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(incident))
}
