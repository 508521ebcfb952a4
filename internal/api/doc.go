// Package api implements the HTTP REST API of the Rego 6xx bridge.
//
// This package provides:
//   - Read access to every registered endpoint and its latest value
//   - Write access to number and button endpoints, queued as pending writes
//   - The audit trail of write commands
//   - Link and scheduler statistics, and the Prometheus exposition endpoint
//
// Writes never wait for the serial link. A successful PUT or POST returns
// 202 Accepted with the rounded value; the controller transmits it on the
// endpoint's next turn.
//
// # Routes
//
//	GET  /api/v1/health
//	GET  /api/v1/stats
//	GET  /api/v1/endpoints
//	GET  /api/v1/endpoints/{id}
//	PUT  /api/v1/endpoints/{id}/value   {"value": 22.5}
//	POST /api/v1/endpoints/{id}/press
//	GET  /api/v1/audit?endpoint_id=&status=&limit=&offset=
//	GET  /metrics
package api
