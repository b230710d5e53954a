package httpapi

import (
	"net/http"

	"caseflow-data/internal/metrics"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux (no third-party router
// dependency). Metrics wrapping happens at registration so labels carry the
// route pattern, not the raw URL.
type Router struct {
	mux     *http.ServeMux
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRouter(logger *zap.Logger, m *metrics.Metrics) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		metrics: m,
	}
}

func (r *Router) Handle(pattern string, h http.Handler) {
	if r.metrics != nil {
		h = r.metrics.Middleware(pattern, h)
	}
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterClientRoutes registers the case-management API surface.
func (r *Router) RegisterClientRoutes(h *ClientHandler) {
	// export must register before the catch-all subtree
	r.Handle("/case/api/v1/clients/export", http.HandlerFunc(h.ExportClients))
	r.Handle("/case/api/v1/clients", h)
	r.Handle("/case/api/v1/clients/", h)
}

// RegisterOps registers health and metrics endpoints.
func (r *Router) RegisterOps(ready func() error) {
	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, Fail(err.Error()))
				return
			}
		}
		writeJSON(w, http.StatusOK, Ok("ok"))
	}))
	if r.metrics != nil {
		r.mux.Handle("/metrics", r.metrics.Handler())
	}
}
