// Package httpapi exposes the ask pipeline over HTTP using gin.
//
// Routes:
//
//	POST /api/ask   multipart form with a "file" part and a "question" field
//	GET  /health    liveness probe
//
// Failures are rendered from domain.DescribeError and never include backend
// response bodies.
package httpapi
