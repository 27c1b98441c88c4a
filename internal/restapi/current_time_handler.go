package restapi

import (
	"net/http"
	"time"

	"driver.schoolfleet.org/internal/models"
)

func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	response := models.NewEntryResponse(models.NewCurrentTimeData(time.Now()))
	api.sendResponse(w, r, response)
}
