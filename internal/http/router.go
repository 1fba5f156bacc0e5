package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router uses the stdlib http.ServeMux (no third-party routing dependency).
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoute exposes the liveness probe. No auth.
func (r *Router) RegisterHealthRoute() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterCatalogRoutes exposes the static form catalogs.
func (r *Router) RegisterCatalogRoutes(h *CatalogHandler, verifier TokenVerifier) {
	r.Handle("/api/v1/catalogs", RequireAuth(verifier, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Get(w, req)
	}))
}

// RegisterCaseRoutes wires the case CRUD endpoints.
func (r *Router) RegisterCaseRoutes(h *CaseHandler, verifier TokenVerifier) {
	r.Handle("/api/v1/cases", RequireAuth(verifier, func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.List(w, req)
		case http.MethodPost:
			h.Create(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	// /api/v1/cases/{id} and /api/v1/cases/{id}/risk
	r.Handle("/api/v1/cases/", RequireAuth(verifier, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/cases/")
		if rest == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if id, found := strings.CutSuffix(rest, "/risk"); found {
			if req.Method != http.MethodGet || id == "" || strings.Contains(id, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.Risk(w, req, id)
			return
		}
		if strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.Get(w, req, rest)
		case http.MethodPut:
			h.Update(w, req, rest)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

// RegisterAlertRoutes wires the alert listing and aggregation endpoints.
func (r *Router) RegisterAlertRoutes(h *AlertHandler, verifier TokenVerifier) {
	r.Handle("/api/v1/alerts", RequireAuth(verifier, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, req)
	}))
	r.Handle("/api/v1/alerts/summary", RequireAuth(verifier, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Summary(w, req)
	}))
	r.Handle("/api/v1/alerts/open-counts", RequireAuth(verifier, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.OpenCounts(w, req)
	}))
}
