package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// respondServiceError maps the engine's error taxonomy to HTTP statuses.
// Anything outside the taxonomy is an internal error and is logged, not
// leaked.
func respondServiceError(w http.ResponseWriter, err error, op string) {
	switch e := err.(type) {
	case *apperr.ValidationError:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": e.Error()})
	case *apperr.CatalogError:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": e.Error()})
	case *apperr.NotFoundError:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": e.Error()})
	case *apperr.ClosedOrderError:
		writeJSON(w, http.StatusConflict, map[string]string{"error": e.Error()})
	case *apperr.TableConflictError:
		writeJSON(w, http.StatusConflict, map[string]string{"error": e.Error()})
	case *apperr.InsufficientStockError:
		writeJSON(w, http.StatusConflict, map[string]string{"error": e.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func urlUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// parsePagination caps limit at 100 with a default of 20.
func parsePagination(r *http.Request) (limit, offset int32) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = int32(v)
		}
	}
	if limit > 100 {
		limit = 100
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = int32(v)
		}
	}
	return limit, offset
}

// --- response shaping helpers ---

func numStr(n pgtype.Numeric) string {
	return store.NumericToDecimal(n).String()
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
