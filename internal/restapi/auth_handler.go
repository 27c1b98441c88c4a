package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"driver.schoolfleet.org/internal/dispatch"
	"driver.schoolfleet.org/internal/models"
	"driver.schoolfleet.org/internal/storage"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (api *RestAPI) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.errorResponse(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if fieldErrors := api.validateStruct(req); fieldErrors != nil {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	result, err := api.Dispatch.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnauthorized) {
			api.errorResponse(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		api.serverErrorResponse(w, r, err)
		return
	}

	api.SetDriver(result.Driver)
	api.persistSession(r, result)

	api.sendResponse(w, r, models.NewEntryResponse(result))
}

// persistSession caches the dispatch token and driver record so the service
// can resume an authenticated session after a restart.
func (api *RestAPI) persistSession(r *http.Request, result dispatch.LoginResult) {
	ctx := r.Context()
	if err := api.Store.Set(ctx, storage.KeyAuthToken, result.Token); err != nil {
		api.Logger.Warn("failed to cache auth token", "error", err)
	}
	if err := api.Store.Set(ctx, storage.KeyDriverID, result.Driver.ID); err != nil {
		api.Logger.Warn("failed to cache driver id", "error", err)
	}
	if b, err := json.Marshal(result.Driver); err == nil {
		if err := api.Store.Set(ctx, storage.KeyUserData, string(b)); err != nil {
			api.Logger.Warn("failed to cache driver record", "error", err)
		}
	}
}

func (api *RestAPI) logoutHandler(w http.ResponseWriter, r *http.Request) {
	api.ClearDriver()
	api.Dispatch.SetToken("")

	for _, key := range []string{storage.KeyAuthToken, storage.KeyDriverID, storage.KeyUserData} {
		if err := api.Store.Delete(r.Context(), key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			api.Logger.Warn("failed to clear cached session", "key", key, "error", err)
		}
	}

	api.sendResponse(w, r, models.NewOKResponse(nil))
}
