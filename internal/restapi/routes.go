package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

// requireToken gates a handler on a valid device bearer token.
func requireToken(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidToken(r) {
			api.invalidTokenResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// Routes assembles the router and the middleware chain around it.
func (api *RestAPI) Routes() http.Handler {
	router := httprouter.New()

	// Login is the only endpoint reachable without a device token.
	router.Handler(http.MethodPost, "/api/fleet/auth/login", http.HandlerFunc(api.loginHandler))
	router.Handler(http.MethodPost, "/api/fleet/auth/logout", requireToken(api, api.logoutHandler))

	router.Handler(http.MethodGet, "/api/fleet/current-time.json", requireToken(api, api.currentTimeHandler))

	router.Handler(http.MethodGet, "/api/fleet/profile", requireToken(api, api.profileHandler))
	router.Handler(http.MethodPut, "/api/fleet/profile", requireToken(api, api.updateProfileHandler))
	router.Handler(http.MethodGet, "/api/fleet/stats", requireToken(api, api.statsHandler))

	router.Handler(http.MethodGet, "/api/fleet/route", requireToken(api, api.activeRouteHandler))
	router.Handler(http.MethodGet, "/api/fleet/route/progress", requireToken(api, api.progressHandler))
	router.Handler(http.MethodPost, "/api/fleet/route/complete", requireToken(api, api.completeRouteHandler))
	router.Handler(http.MethodPut, "/api/fleet/route/status", requireToken(api, api.updateRouteStatusHandler))
	router.Handler(http.MethodGet, "/api/fleet/routes/:id", requireToken(api, api.routeByIDHandler))
	router.Handler(http.MethodPost, "/api/fleet/routes/:id/start", requireToken(api, api.startRouteHandler))
	router.Handler(http.MethodGet, "/api/fleet/history", requireToken(api, api.historyHandler))

	router.Handler(http.MethodGet, "/api/fleet/students", requireToken(api, api.rosterHandler))
	router.Handler(http.MethodPut, "/api/fleet/students/:id/status", requireToken(api, api.studentStatusHandler))
	router.Handler(http.MethodPost, "/api/fleet/students/:id/contact-parent", requireToken(api, api.contactParentHandler))

	router.Handler(http.MethodPost, "/api/fleet/incidents", requireToken(api, api.reportIncidentHandler))

	router.Handler(http.MethodPost, "/api/fleet/positions", requireToken(api, api.ingestPositionHandler))
	router.Handler(http.MethodGet, "/api/fleet/positions/current", requireToken(api, api.currentPositionHandler))
	router.Handler(http.MethodGet, "/api/fleet/positions/ws", requireToken(api, api.positionsStreamHandler))

	var handler http.Handler = router
	handler = CompressionMiddleware(handler)
	handler = api.rateLimiter(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = securityHeaders(handler)
	return handler
}
