// Package api implements the board's HTTP REST API.
//
// New(...) returns an http.Handler that serves:
//
//	GET    /api/v1/health                  — liveness (no auth)
//	POST   /api/v1/login                   — sets the session cookie
//	POST   /api/v1/logout                  — clears the session
//	POST   /api/v1/password                — rotate the caller's password
//	GET    /api/v1/datasources             — list
//	POST   /api/v1/datasources             — create (runs connectivity test)
//	POST   /api/v1/datasources/test        — test without saving
//	GET    /api/v1/datasources/{id}        — fetch
//	PUT    /api/v1/datasources/{id}        — update (runs connectivity test)
//	DELETE /api/v1/datasources/{id}        — remove
//	GET    /api/v1/dashboards              — list
//	POST   /api/v1/dashboards              — create
//	GET    /api/v1/dashboards/{id}         — fetch definition
//	PUT    /api/v1/dashboards/{id}         — update
//	DELETE /api/v1/dashboards/{id}         — remove
//	GET    /api/v1/dashboards/{id}/render  — execute all panels
//
// Everything except health and login requires a valid session cookie.
// All endpoints respond with Content-Type: application/json.
package api
