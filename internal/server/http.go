package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/policy-structurer/internal/async"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
)

// NewRouter serves health, extraction and export over HTTP.
func NewRouter(svc Services, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &httpHandlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestContext)

	r.Get("/healthz", h.health)
	r.Route("/documents/{documentID}", func(r chi.Router) {
		r.Post("/extract", h.extract)
		r.Post("/submit", h.submit)
	})
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/policies/{policyID}", h.getPolicy)
		r.Get("/export.xlsx", h.exportXLSX)
	})
	return r
}

// requestContext copies chi's request id into the context key the pipeline logs.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(common.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

type httpHandlers struct {
	svc    Services
	logger *slog.Logger
}

func (h *httpHandlers) health(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.svc.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type extractBody struct {
	TenantID string `json:"tenant_id"`
}

func (h *httpHandlers) extract(w http.ResponseWriter, r *http.Request) {
	if h.svc.Extractor == nil {
		h.fail(w, unavailable("extraction"))
		return
	}
	documentID, err := parseID("document_id", chi.URLParam(r, "documentID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	tenant := r.URL.Query().Get("tenant_id")
	if tenant == "" && r.Body != nil && r.ContentLength != 0 {
		var body extractBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.fail(w, fmt.Errorf("%w: invalid JSON body", common.ErrInvalidInput))
			return
		}
		tenant = body.TenantID
	}
	tenantID, err := parseID("tenant_id", tenant)
	if err != nil {
		h.fail(w, err)
		return
	}

	policyID, err := h.svc.Extractor.ExtractStructuredData(r.Context(), documentID, tenantID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"policy_id": policyID.String()})
}

func (h *httpHandlers) submit(w http.ResponseWriter, r *http.Request) {
	if h.svc.Queue == nil {
		h.fail(w, unavailable("queue"))
		return
	}
	documentID, err := parseID("document_id", chi.URLParam(r, "documentID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	job := async.Job{DocumentID: documentID, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(r.Context())}
	if err := h.svc.Queue.Enqueue(r.Context(), job); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"document_id": documentID, "queued": true})
}

func (h *httpHandlers) getPolicy(w http.ResponseWriter, r *http.Request) {
	if h.svc.Policies == nil {
		h.fail(w, unavailable("policies"))
		return
	}
	policyID, err := parseID("policy_id", chi.URLParam(r, "policyID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	tenantID, err := parseID("tenant_id", chi.URLParam(r, "tenantID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	p, err := h.svc.Policies.GetPolicy(r.Context(), policyID, tenantID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *httpHandlers) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if h.svc.Export == nil {
		h.fail(w, unavailable("export"))
		return
	}
	tenantID, err := parseID("tenant_id", chi.URLParam(r, "tenantID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	from, err := parseDate("from", r.URL.Query().Get("from"))
	if err != nil {
		h.fail(w, err)
		return
	}
	to, err := parseDate("to", r.URL.Query().Get("to"))
	if err != nil {
		h.fail(w, err)
		return
	}
	xlsx, err := h.svc.Export.ExportPoliciesXLSX(r.Context(), tenantID, from, to)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="policies-%s.xlsx"`, tenantID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

func (h *httpHandlers) fail(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("http.request_failed", "status", code, "err", err)
	}
	writeError(w, code, err)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNoChunks):
		return http.StatusConflict
	case errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

