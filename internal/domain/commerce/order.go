package commerce

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfilment status of an order
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// AllOrderStatuses lists every status in display order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// ParseOrderStatus matches a status case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range AllOrderStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return "", false
}

// OrderItem is a line of a materialized order. UnitPrice is captured at sale
// time and never follows later catalog price changes.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Amount returns quantity × unit price
func (i OrderItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a materialized order. TotalAmount is fixed when the items are set
// and is not recomputed afterwards.
type Order struct {
	shared.BaseEntity
	ExternalID   *string
	CustomerRef  string
	Status       OrderStatus
	TotalAmount  decimal.Decimal
	LastSyncedAt time.Time
	Items        []OrderItem
}

// NewOrder creates an order placed at placedAt. CreatedAt carries the
// placement time since reporting buckets orders by it.
func NewOrder(externalID string, customerRef string, status OrderStatus, placedAt, syncedAt time.Time) (*Order, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Invalid order status: "+string(status))
	}
	o := &Order{
		BaseEntity:   shared.NewBaseEntity(placedAt, syncedAt),
		CustomerRef:  customerRef,
		Status:       status,
		TotalAmount:  decimal.Zero,
		LastSyncedAt: syncedAt,
	}
	if externalID != "" {
		o.ExternalID = &externalID
	}
	return o, nil
}

// AddItem appends a line for productID and adds its amount to the total.
func (o *Order) AddItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	for _, it := range o.Items {
		if it.ProductID == productID {
			return shared.NewDomainError("DUPLICATE_ITEM", "Product already present in order")
		}
	}
	item := OrderItem{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	o.Items = append(o.Items, item)
	o.TotalAmount = o.TotalAmount.Add(item.Amount())
	return nil
}

// ItemsTotal sums the current items. Used to check the stored total.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Amount())
	}
	return total
}

// ExternalIDValue returns the external id or an empty string.
func (o *Order) ExternalIDValue() string {
	if o.ExternalID == nil {
		return ""
	}
	return *o.ExternalID
}
