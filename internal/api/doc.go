// Package api exposes the document queue over HTTP. Handlers translate
// multipart uploads and task lookups into DocumentService calls and map
// service errors onto status codes; all responses are JSON.
package api
