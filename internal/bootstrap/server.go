package bootstrap

import (
	"net/http"
	"time"

	"github.com/creamcroissant/vibemall/internal/config"
)

// NewHTTPServer builds the storefront http.Server; invoice and export downloads get a longer write timeout.
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
