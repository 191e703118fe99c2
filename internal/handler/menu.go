package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dhaba-pos/api/internal/middleware"
	"github.com/dhaba-pos/api/internal/store"
)

// MenuStore defines the database methods the menu read endpoints need.
// Satisfied by *store.Queries.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg store.ListMenuItemsParams) ([]store.MenuItem, error)
}

// MenuHandler serves the read-only menu catalog. There is no write surface:
// catalog management lives outside this service.
type MenuHandler struct {
	store MenuStore
}

func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type menuItemResponse struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	BasePrice string             `json:"base_price"`
	IsActive  bool               `json:"is_active"`
	Variants  []store.Variant    `json:"variants"`
	Modifiers []store.Modifier   `json:"modifiers"`
	Recipe    []store.RecipeRule `json:"recipe"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// List handles GET /outlets/{oid}/menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := parsePagination(r)
	items, err := h.store.ListMenuItems(r.Context(), store.ListMenuItemsParams{
		RestaurantID: claims.RestaurantID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondServiceError(w, err, "list menu items")
		return
	}

	resp := make([]menuItemResponse, 0, len(items))
	for _, m := range items {
		variants := m.Variants
		if variants == nil {
			variants = []store.Variant{}
		}
		modifiers := m.Modifiers
		if modifiers == nil {
			modifiers = []store.Modifier{}
		}
		recipe := m.Recipe
		if recipe == nil {
			recipe = []store.RecipeRule{}
		}
		resp = append(resp, menuItemResponse{
			ID:        m.ID,
			Name:      m.Name,
			BasePrice: numStr(m.BasePrice),
			IsActive:  m.IsActive,
			Variants:  variants,
			Modifiers: modifiers,
			Recipe:    recipe,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
