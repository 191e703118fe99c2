// Package apperr defines the business error taxonomy shared by the order
// transaction engine and the HTTP boundary. Every error carries a
// machine-checkable kind so handlers can map it to a status code without
// string matching, and the engine can tell business failures (never retried)
// from infrastructure failures (retried a bounded number of times).
package apperr

import (
	"fmt"

	"github.com/google/uuid"
)

// ── Catalog ──

type CatalogKind string

const (
	CatalogUnknown       CatalogKind = "unknown"
	CatalogInactive      CatalogKind = "inactive"
	CatalogInvalidOption CatalogKind = "invalid_option"
)

// CatalogError reports an unresolvable menu item, variant or modifier
// reference. The whole batch fails; callers never proceed with a partial
// catalog.
type CatalogError struct {
	Kind CatalogKind
	Ref  string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog: %s reference %q", e.Kind, e.Ref)
}

// ── Orders ──

// ClosedOrderError is returned when mutating an order whose status is
// completed or cancelled.
type ClosedOrderError struct {
	OrderID uuid.UUID
	Status  string
}

func (e *ClosedOrderError) Error() string {
	return fmt.Sprintf("order %s is %s and can no longer be modified", e.OrderID, e.Status)
}

// ── Inventory ──

// InsufficientStockError is returned when the negative-stock policy forbids
// an operation that would drive a tracked stock item below zero.
type InsufficientStockError struct {
	StockItemID uuid.UUID
	Name        string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (%s)", e.Name, e.StockItemID)
}

// ── Tables ──

type TableConflictKind string

const (
	TableDisabled     TableConflictKind = "disabled"
	TableAlreadyBound TableConflictKind = "already_bound"
	TableMerged       TableConflictKind = "merged"
	TableSameTable    TableConflictKind = "same_table"
)

// TableConflictError reports a table occupancy transition that lost a race
// or was invalid to begin with.
type TableConflictError struct {
	Kind    TableConflictKind
	TableID uuid.UUID
}

func (e *TableConflictError) Error() string {
	return fmt.Sprintf("table %s: %s", e.TableID, e.Kind)
}

// ── Lookups ──

const (
	EntityOrder     = "order"
	EntityTable     = "table"
	EntityStockItem = "stock_item"
)

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ── Payload shape ──

// ValidationError covers malformed operation payloads (empty item lists,
// non-positive quantities, unparsable ids and amounts).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
