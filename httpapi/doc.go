// Package httpapi exposes the playground over HTTP with gin.
//
// Routes live under /api/playground:
//
//	POST /execute              {code, language, input} -> playground.Response
//	GET  /languages            language catalog of the active backend
//	GET  /health               backend availability and details
//	GET  /templates/:language  starter programs, 404 for unknown languages
//
// Execution failures of any kind are a 200 with success=false; only a
// malformed body or a missing code/language field is a 400.
package httpapi
