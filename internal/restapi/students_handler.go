package restapi

import (
	"encoding/json"
	"net/http"

	"driver.schoolfleet.org/internal/models"
)

func (api *RestAPI) rosterHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := api.Fleet.Roster()
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewListResponse(entries))
}

type studentStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Notes   string `json:"notes"`
	Confirm bool   `json:"confirm"`
	Force   bool   `json:"force"`
}

// studentStatusHandler applies a status transition. The driver's explicit
// confirmation travels with the request; without it nothing is committed,
// no matter how close the bus is.
func (api *RestAPI) studentStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := extractIDFromParams(r, "id")

	var req studentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if fieldErrors := api.validateStruct(req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	status, err := models.ParseStudentStatus(req.Status)
	if err != nil {
		api.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if !req.Confirm {
		api.errorResponse(w, r, http.StatusUnprocessableEntity, "driver confirmation required")
		return
	}

	student, err := api.Fleet.MarkStudent(r.Context(), id, status, req.Notes, req.Force)
	if err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(student))
}

type contactParentRequest struct {
	Message string `json:"message" validate:"required"`
}

func (api *RestAPI) contactParentHandler(w http.ResponseWriter, r *http.Request) {
	id := extractIDFromParams(r, "id")

	var req contactParentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if fieldErrors := api.validateStruct(req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if err := api.Dispatch.ContactParent(r.Context(), id, req.Message); err != nil {
		api.fleetErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(nil))
}
