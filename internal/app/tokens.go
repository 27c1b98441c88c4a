package app

import (
	"net/http"
	"strings"
)

// RequestHasInvalidToken checks the Authorization header of a device request
// against the configured device tokens.
func (app *Application) RequestHasInvalidToken(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return true
	}
	return app.IsInvalidToken(token)
}

func (app *Application) IsInvalidToken(token string) bool {
	if token == "" {
		return true
	}

	for _, validToken := range app.Config.APITokens {
		if token == validToken {
			return false
		}
	}

	return true
}
