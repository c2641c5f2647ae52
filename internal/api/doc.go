// Package api implements the HTTP REST API for TwinkleTaps Core.
//
// This package provides:
//   - Workspace, roster, device, invitation and audit endpoints
//   - Bearer session authentication (HS256 JWT, subject = user id)
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Mapping of core error kinds to HTTP status codes
//   - TLS support for production deployments
//
// # Error Mapping
//
//	forbidden                    403
//	invalid input                400
//	not found                    404
//	credential pool exhausted    503  code "pool_exhausted"
//	invitation no longer pending 409
//	last admin                   409
//	broker delivery failure      502
//	anything else                500
//
// Every error body has the shape {"status", "code", "message"}.
package api
