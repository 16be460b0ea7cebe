package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the audit endpoints on r. The caller decides the
// prefix and any authentication.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", handleQuery(store))
		r.Get("/incidents/{target}", handleTrail(store, TargetIncident))
		r.Get("/kb/{target}", handleTrail(store, TargetKBEntry))
		r.Get("/{id}", handleGetByID(store))
	})
}

func handleQuery(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r.URL.Query())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeEntries(w, r, store, filter)
	}
}

// handleTrail lists everything done to one incident or KB entry.
func handleTrail(store *Store, target TargetType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeEntries(w, r, store, QueryFilter{
			TargetType: target,
			TargetID:   chi.URLParam(r, "target"),
		})
	}
}

func writeEntries(w http.ResponseWriter, r *http.Request, store *Store, filter QueryFilter) {
	entries, err := store.Query(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func parseFilter(q url.Values) (QueryFilter, error) {
	filter := QueryFilter{
		Actor:    q.Get("actor"),
		TargetID: q.Get("target_id"),
	}
	if v := q.Get("target_type"); v != "" {
		filter.TargetType = TargetType(v)
		if !filter.TargetType.Valid() {
			return filter, fmt.Errorf("unknown target_type %q", v)
		}
	}
	if v := q.Get("action"); v != "" {
		filter.Action = Action(v)
		if !filter.Action.Valid() {
			return filter, fmt.Errorf("unknown action %q", v)
		}
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"since", &filter.Since}, {"until", &filter.Until}} {
		if v := q.Get(p.key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, fmt.Errorf("%s must be RFC 3339: %w", p.key, err)
			}
			*p.dst = &t
		}
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return filter, fmt.Errorf("%s must be a non-negative integer", p.key)
			}
			*p.dst = n
		}
	}
	return filter, nil
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := store.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if entry == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
