package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product entity.
type ProductModel struct {
	BaseModel
	ExternalID   string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_external_id"`
	Name         string          `gorm:"type:varchar(255);not null"`
	Description  string          `gorm:"type:text"`
	Price        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Unit         string          `gorm:"type:varchar(50)"`
	Category     string          `gorm:"type:varchar(100);index"`
	Brand        string          `gorm:"type:varchar(100)"`
	ImageURL     string          `gorm:"type:varchar(1024)"`
	Rating       decimal.Decimal `gorm:"type:decimal(3,2);not null;default:0"`
	Available    bool            `gorm:"not null;default:true"`
	Discount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastSyncedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *commerce.Product {
	return &commerce.Product{
		BaseEntity:   m.BaseModel.ToDomain(),
		ExternalID:   m.ExternalID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		Unit:         m.Unit,
		Category:     m.Category,
		Brand:        m.Brand,
		ImageURL:     m.ImageURL,
		Rating:       m.Rating,
		Available:    m.Available,
		Discount:     m.Discount,
		LastSyncedAt: m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *commerce.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ExternalID = p.ExternalID
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.Unit = p.Unit
	m.Category = p.Category
	m.Brand = p.Brand
	m.ImageURL = p.ImageURL
	m.Rating = p.Rating
	m.Available = p.Available
	m.Discount = p.Discount
	m.LastSyncedAt = p.LastSyncedAt
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *commerce.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// OrderModel is the persistence model for the Order entity. ExternalID is
// nullable so the unique index admits any number of orders without one.
type OrderModel struct {
	BaseModel
	ExternalID   *string              `gorm:"type:varchar(128);uniqueIndex:idx_orders_external_id"`
	CustomerRef  string               `gorm:"type:varchar(64)"`
	Status       commerce.OrderStatus `gorm:"type:varchar(20);not null;index"`
	TotalAmount  decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	LastSyncedAt time.Time            `gorm:"not null"`
	Items        []OrderItemModel     `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *commerce.Order {
	o := &commerce.Order{
		BaseEntity:   m.BaseModel.ToDomain(),
		ExternalID:   m.ExternalID,
		CustomerRef:  m.CustomerRef,
		Status:       m.Status,
		TotalAmount:  m.TotalAmount,
		LastSyncedAt: m.LastSyncedAt,
		Items:        make([]commerce.OrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		o.Items[i] = item.ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order entity.
// Items are copied as well; repositories decide whether to write them.
func (m *OrderModel) FromDomain(o *commerce.Order) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.ExternalID = o.ExternalID
	m.CustomerRef = o.CustomerRef
	m.Status = o.Status
	m.TotalAmount = o.TotalAmount
	m.LastSyncedAt = o.LastSyncedAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = *OrderItemModelFromDomain(&o.Items[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *commerce.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for the OrderItem entity.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Product   *ProductModel   `gorm:"foreignKey:ProductID;references:ID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() commerce.OrderItem {
	return commerce.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
	}
}

// OrderItemModelFromDomain creates a new persistence model from a domain OrderItem.
func OrderItemModelFromDomain(i *commerce.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		ID:        i.ID,
		OrderID:   i.OrderID,
		ProductID: i.ProductID,
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
	}
}

// CommerceModels lists the models for AutoMigrate in dependency order.
func CommerceModels() []any {
	return []any{&ProductModel{}, &OrderModel{}, &OrderItemModel{}}
}
