// Package httpapi exposes the signature service over HTTP.
//
// Routes:
//
//	GET    /v1/contracts/{id}/signatures         signature state
//	GET    /v1/contracts/{id}/edit-gate          edit-gate decision with state
//	PUT    /v1/contracts/{id}/signatures/{role}  save a signature, body {"payload": ...}
//	DELETE /v1/contracts/{id}/signatures/{role}  remove a signature
//	POST   /v1/contracts/{id}/cache/invalidate   drop one cache entry
//	DELETE /v1/cache                             drop every cache entry
//	GET    /healthz, /readyz, /health            health checks
//
// Mutations answer {"success": bool, "error": "..."}; a mutation the remote
// store rejected answers 502. Other errors use the envelope
// {"request_id": "...", "error": {"code": "...", "message": "..."}}.
package httpapi
