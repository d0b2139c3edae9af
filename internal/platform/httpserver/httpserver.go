package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the punch API. Bodies are small JSON
// payloads, so only the read-header timeout is fixed here; per-request
// deadlines belong to the handlers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
