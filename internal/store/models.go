package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuItem is the catalog row, including the JSONB option and recipe lists.
// Read-only from the engine's point of view: operations take a snapshot at
// validation time and never write back.
type MenuItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	BasePrice    pgtype.Numeric
	IsActive     bool
	Variants     []Variant
	Modifiers    []Modifier
	Recipe       []RecipeRule
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Variant struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

type Modifier struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Required bool            `json:"required"`
}

// RecipeRule is one Bill-of-Materials entry: qty of a stock item consumed
// per serving of the menu item.
type RecipeRule struct {
	StockItemID uuid.UUID       `json:"stock_item_id"`
	Qty         decimal.Decimal `json:"qty"`
	Unit        string          `json:"unit"`
}

type StockItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	OutletID     pgtype.UUID
	Name         string
	Sku          pgtype.Text
	Unit         string
	IsTracked    bool
	CurrentQty   pgtype.Numeric
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StockMovement struct {
	ID           uuid.UUID
	StockItemID  uuid.UUID
	RestaurantID uuid.UUID
	OutletID     pgtype.UUID
	Change       pgtype.Numeric
	Kind         string
	Reference    string
	Note         string
	PerformedBy  uuid.UUID
	CreatedAt    time.Time
}

type Table struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	OutletID     uuid.UUID
	Name         string
	Seats        int32
	Status       string
	CurrentOrder pgtype.UUID
	MergedInto   pgtype.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	OutletID       uuid.UUID
	TableID        pgtype.UUID
	OrderNumber    string
	OrderType      string
	Status         string
	Subtotal       pgtype.Numeric
	TaxTotal       pgtype.Numeric
	DiscountTotal  pgtype.Numeric
	ServiceCharge  pgtype.Numeric
	Total          pgtype.Numeric
	Notes          string
	IdempotencyKey pgtype.Text
	MergedInto     pgtype.UUID
	SplitFrom      pgtype.UUID
	PlacedBy       uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Position    int32
	MenuItemID  pgtype.UUID
	Name        string
	VariantID   pgtype.UUID
	VariantName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Discount    pgtype.Numeric
	Note        string
	Modifiers   []LineModifier
}

// LineModifier is the price snapshot of a modifier chosen on a line.
type LineModifier struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	Reference string
	PaidAt    time.Time
}

type Refund struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Amount     pgtype.Numeric
	Reason     string
	Reference  string
	RefundedAt time.Time
}

type User struct {
	ID           uuid.UUID
	RestaurantID pgtype.UUID
	OutletID     pgtype.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
