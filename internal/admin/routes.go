package admin

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ziadkadry99/helpdesk/internal/audit"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/kb"
)

// ActorHeader names the staff member performing a request, for the audit
// trail.
const ActorHeader = "X-Admin-User"

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending_info open resolved closed"`
}

type messageRequest struct {
	AdminMessage string `json:"admin_message" validate:"max=2000"`
}

type approveRequest struct {
	SolutionSteps string `json:"solution_steps" validate:"required"`
}

type approveResponse struct {
	Approved   bool   `json:"approved"`
	IncidentID string `json:"incident_id"`
	KBID       string `json:"kb_id,omitempty"`
}

type solutionResponse struct {
	KBID string `json:"kb_id"`
	HTML string `json:"html"`
}

// RegisterRoutes mounts the admin API under /api/admin. A non-empty token
// is required as a bearer token (or X-Admin-Key header) on every request.
func RegisterRoutes(r chi.Router, svc *Service, auditStore *audit.Store, token string) {
	v := validator.New()
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireToken(token))

		r.Get("/stats", handleStats(svc))
		r.Get("/incidents", handleListIncidents(svc))
		r.Get("/incidents/{id}", handleGetIncident(svc))
		r.Delete("/incidents/{id}", handleDeleteIncident(svc))
		r.Put("/incidents/{id}/status", handleUpdateStatus(svc, v))
		r.Put("/incidents/{id}/message", handleUpdateMessage(svc, v))
		r.Post("/incidents/{id}/approve", handleApprove(svc, v))

		r.Get("/kb", handleListKB(svc))
		r.Post("/kb", handleAddKB(svc, v))
		r.Get("/kb/{id}/solution", handleSolution(svc))

		if auditStore != nil {
			audit.RegisterRoutes(r, auditStore)
		}
	})
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get("X-Admin-Key")
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				got = bearer
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actor(r *http.Request) string {
	if a := strings.TrimSpace(r.Header.Get(ActorHeader)); a != "" {
		return a
	}
	return audit.DefaultActor
}

func handleStats(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleListIncidents(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := incident.ListFilter{}
		if v := q.Get("status"); v != "" {
			status, err := incident.ParseStatus(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid status")
				return
			}
			filter.Status = status
		}
		if v := q.Get("needs_kb_approval"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid needs_kb_approval")
				return
			}
			filter.NeedsApproval = &b
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}

		out, err := svc.ListIncidents(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetIncident(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inc, err := svc.GetIncident(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	}
}

func handleDeleteIncident(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteIncident(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUpdateStatus(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if !decode(w, r, v, &req) {
			return
		}
		inc, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), incident.Status(req.Status), actor(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	}
}

func handleUpdateMessage(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if !decode(w, r, v, &req) {
			return
		}
		inc, err := svc.UpdateAdminMessage(r.Context(), chi.URLParam(r, "id"), req.AdminMessage, actor(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	}
}

func handleApprove(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req approveRequest
		if !decode(w, r, v, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		ok, err := svc.ApproveKBEntry(r.Context(), id, req.SolutionSteps, actor(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := approveResponse{Approved: ok, IncidentID: id}
		if inc, err := svc.GetIncident(r.Context(), id); err == nil {
			resp.KBID = inc.KBID
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListKB(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListKB(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleAddKB(svc *Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req kb.Draft
		if !decode(w, r, v, &req) {
			return
		}
		e, err := svc.AddKBEntry(r.Context(), req, actor(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func handleSolution(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.GetKB(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		html, err := kb.RenderSolution(e.SolutionSteps)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, solutionResponse{KBID: e.ID, HTML: html})
	}
}

// decode reads a JSON body into dst and validates it, writing a 400 on
// failure.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, incident.ErrNotFound), errors.Is(err, kb.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, incident.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
