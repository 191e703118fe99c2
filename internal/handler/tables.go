package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dhaba-pos/api/internal/store"
	"github.com/dhaba-pos/api/internal/tablestate"
)

// TableStore defines the database methods the table read endpoints need.
// Satisfied by *store.Queries.
type TableStore interface {
	ListTables(ctx context.Context, arg store.ListTablesParams) ([]store.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (store.Table, error)
}

// TxBeginner starts a database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TableHandler handles table endpoints. Merge and split are multi-row state
// transitions, so the handler runs them inside their own transaction.
type TableHandler struct {
	store    TableStore
	pool     TxBeginner
	newStore func(db store.DBTX) tablestate.Store
}

func NewTableHandler(store TableStore, pool TxBeginner, newStore func(db store.DBTX) tablestate.Store) *TableHandler {
	return &TableHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers table endpoints. Expected to be mounted inside an
// outlet-scoped subrouter: /outlets/{oid}/tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/merge", h.Merge)
	r.Post("/{id}/split", h.Split)
}

// --- Request / Response types ---

type tableResponse struct {
	ID           uuid.UUID  `json:"id"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	OutletID     uuid.UUID  `json:"outlet_id"`
	Name         string     `json:"name"`
	Seats        int32      `json:"seats"`
	Status       string     `json:"status"`
	CurrentOrder *uuid.UUID `json:"current_order"`
	MergedInto   *uuid.UUID `json:"merged_into"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type mergeTablesRequest struct {
	SecondaryTableID string `json:"secondary_table_id"`
}

type mergeTablesResponse struct {
	Primary   tableResponse `json:"primary"`
	Secondary tableResponse `json:"secondary"`
}

func toTableResponse(t store.Table) tableResponse {
	return tableResponse{
		ID:           t.ID,
		RestaurantID: t.RestaurantID,
		OutletID:     t.OutletID,
		Name:         t.Name,
		Seats:        t.Seats,
		Status:       t.Status,
		CurrentOrder: uuidPtr(t.CurrentOrder),
		MergedInto:   uuidPtr(t.MergedInto),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// --- Handlers ---

// List handles GET /outlets/{oid}/tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, ok := urlUUID(r, "oid")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	tables, err := h.store.ListTables(r.Context(), store.ListTablesParams{OutletID: outletID})
	if err != nil {
		respondServiceError(w, err, "list tables")
		return
	}

	resp := make([]tableResponse, 0, len(tables))
	for _, t := range tables {
		resp = append(resp, toTableResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /outlets/{oid}/tables/{id}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	t, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if err == pgx.ErrNoRows {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		respondServiceError(w, err, "get table")
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(t))
}

// Merge handles POST /outlets/{oid}/tables/{id}/merge; {id} is the primary.
func (h *TableHandler) Merge(w http.ResponseWriter, r *http.Request) {
	primaryID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req mergeTablesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	secondaryID, err := uuid.Parse(req.SecondaryTableID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid secondary_table_id"})
		return
	}

	var primary, secondary store.Table
	err = h.inTx(r.Context(), func(st tablestate.Store) error {
		var err error
		primary, secondary, err = tablestate.Merge(r.Context(), st, primaryID, secondaryID)
		return err
	})
	if err != nil {
		respondServiceError(w, err, "merge tables")
		return
	}
	writeJSON(w, http.StatusOK, mergeTablesResponse{
		Primary:   toTableResponse(primary),
		Secondary: toTableResponse(secondary),
	})
}

// Split handles POST /outlets/{oid}/tables/{id}/split; {id} is the secondary
// table to detach.
func (h *TableHandler) Split(w http.ResponseWriter, r *http.Request) {
	tableID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var table store.Table
	err := h.inTx(r.Context(), func(st tablestate.Store) error {
		var err error
		table, err = tablestate.Split(r.Context(), st, tableID)
		return err
	})
	if err != nil {
		respondServiceError(w, err, "split table")
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

func (h *TableHandler) inTx(ctx context.Context, fn func(st tablestate.Store) error) error {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(h.newStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
