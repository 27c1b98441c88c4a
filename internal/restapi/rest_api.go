package restapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"driver.schoolfleet.org/internal/app"
)

type RestAPI struct {
	*app.Application
	rateLimiter func(http.Handler) http.Handler
	validate    *validator.Validate
	hub         *streamHub
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter,
// request validator and websocket stream hub.
func NewRestAPI(application *app.Application) *RestAPI {
	api := &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(application.Config.RateLimit, time.Second),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		hub:         newStreamHub(application.Logger),
	}
	api.hub.attach(application.Fleet)
	return api
}

// validateStruct runs struct validation and flattens the result into the
// fieldErrors shape the validation error response uses.
func (api *RestAPI) validateStruct(v interface{}) map[string][]string {
	err := api.validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string][]string{"body": {err.Error()}}
	}

	fieldErrors := make(map[string][]string)
	for _, fe := range ve {
		field := fe.Field()
		if field != "" {
			field = strings.ToLower(field[:1]) + field[1:]
		}
		fieldErrors[field] = append(fieldErrors[field], "failed on the '"+fe.Tag()+"' rule")
	}
	return fieldErrors
}
