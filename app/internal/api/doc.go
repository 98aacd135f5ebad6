// Package api implements the demo application's business routes. They exist
// to generate realistic request traffic for the middleware to observe:
//
//	GET /       — hello payload, always 200
//	GET /work   — simulated work with a short random latency
//	GET /boom   — always fails with 500
//
// The /metrics/ route is registered by the caller, not here.
package api
