package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server with sane production timeouts. Lifecycle
// (ListenAndServe, Shutdown) is owned by main.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
