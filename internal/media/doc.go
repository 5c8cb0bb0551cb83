// Package media handles image and file bytes around backend calls.
//
// Outbound, a Stager turns base64 payloads and http(s) URLs into local
// files the backend can send, because the session only accepts paths.
// Inbound, ImageContentType and FileContentType pick the Content-Type for
// streamed attachments from the file extension.
package media
