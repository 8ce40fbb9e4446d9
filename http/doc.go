// Package http provides the HTTP surface of zipstream.
//
// # Routes
//
//   - GET /              the configured index HTML file, verbatim
//   - GET /archive/{id}/ a zip archive of the directory {id} under the archive root
//
// # Archive responses
//
// The archive handler asks the Service to resolve the identifier and start a compressor
// before anything is written. Failures at that point become a 404 with a short text
// message. Once the compressor runs, the handler sends
//
//	Content-Type: application/zip
//	Content-Disposition: attachment; filename="photos.zip"
//
// flushes the headers, and streams the archive chunk by chunk, flushing after each one.
// The status is already 200 at that point, so a failure or a client disconnect shows up
// only as a truncated body. The request context is the cancellation signal: when the
// client goes away or the server shuts down, the compressor is killed and reaped before
// the handler returns.
//
// # Usage
//
//	handlerCfg := http.HandlerConfig{IndexPath: "index.html"}
//	handler := http.NewHandler(&handlerCfg, service)
//	server := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
//
// # Middleware
//
// RequestLogger tags every request with a uuid (X-Request-ID) and writes one access log
// line per request. Panics are recovered by chi's Recoverer. CORS is enabled through
// CORSConfig.
package http
