// Package server runs the llmstream HTTP relay on Gin, served over HTTP/1.1
// and cleartext HTTP/2 (h2c) on one port.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: Panic recovery with structured logging
//   - RequestID: Request ID generation and propagation
//   - BodySizeLimit: Request body size limits
//   - RequestLogger: Request logging with duration tracking
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /healthz: Liveness and upstream configuration check
//   - /version: Build version information
package server
