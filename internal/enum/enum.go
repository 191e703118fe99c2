package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusInKitchen = "in_kitchen"
	OrderStatusServed    = "served"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// OrderStatusClosed reports whether a status admits no further item,
// payment or table mutations.
func OrderStatusClosed(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsOrderStatus reports whether s is a known order status.
func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusInKitchen, OrderStatusServed,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// ── Table occupancy (CHECK constrained in DB) ──

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusDisabled  = "disabled"
)

// ── Stock movement kinds (CHECK constrained in DB) ──

const (
	MovementPurchase   = "purchase"
	MovementUsage      = "usage"
	MovementAdjustment = "adjustment"
	MovementTransfer   = "transfer"
)

// ── Order types ──

const (
	OrderTypeDineIn  = "dine_in"
	OrderTypeCounter = "counter"
)

// ── Roles (no DB constraint, configurable labels) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Notification event tags ──

const (
	EventOrderCreated       = "order:created"
	EventOrderItemsAdded    = "order:itemsAdded"
	EventOrderUpdated       = "order:updated"
	EventOrderStatusUpdated = "order:statusUpdated"
	EventOrderTableChanged  = "order:tableChanged"
	EventOrderPaymentAdded  = "order:paymentAdded"
	EventOrderRefunded      = "order:refunded"
	EventOrderMerged        = "order:merged"
	EventOrderSplit         = "order:split"
	EventStockMovement      = "stock:movement"
)
