package api

import (
	"net/http"

	"github.com/phrazzld/eventhost/internal/config"
)

// RedirectHandler redirects the service root to a configured URL.
type RedirectHandler struct {
	url  string
	code int
}

// NewRedirectHandler creates a RedirectHandler from the redirect settings.
func NewRedirectHandler(cfg config.RedirectConfig) *RedirectHandler {
	code := http.StatusFound
	if cfg.Permanent {
		code = http.StatusMovedPermanently
	}
	return &RedirectHandler{url: cfg.URL, code: code}
}

// ServeHTTP implements http.Handler.
func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.url, h.code)
}
