// Package api implements the REST gateway in front of the WCF backend.
//
// This package provides:
//   - One endpoint per backend operation, declared in a route table
//   - The {status, error, data} response envelope
//   - Attachment endpoints that drive the download/decrypt pipeline
//   - Raw byte streaming for downloaded images and files
//   - WebSocket relay for captured messages
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Every backend call goes through a wcf.Guard, so requests run concurrently
// but the session sees one call at a time. Handlers translate input into a
// backend call and the result into an envelope; only the attachment and SQL
// handlers do more than one step.
//
// # Status Codes
//
// Envelope endpoints always answer 200 and carry the outcome in the
// envelope status. Malformed input is rejected with 400 before the backend
// is touched. The two download endpoints answer with raw bytes or a 500
// plain-text error.
package api
