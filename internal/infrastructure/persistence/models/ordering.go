package models

import (
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	SupplierID          uuid.UUID                                   `gorm:"type:uuid;not null;index"`
	ProducerID          uuid.UUID                                   `gorm:"type:uuid;not null;index"`
	BuyerUserID         uuid.UUID                                   `gorm:"type:uuid"`
	AllowContact        bool                                        `gorm:"not null"`
	Negotiable          bool                                        `gorm:"not null"`
	Status              string                                      `gorm:"type:varchar(30);not null;index"`
	InteractionDeadline time.Time                                   `gorm:"not null;index"`
	TotalsSnapshot      datatypes.JSONType[ordering.TotalsSnapshot] `gorm:"column:totals_snapshot"`
	LastProposalAction  string                                      `gorm:"type:varchar(20)"`
	ClosedAt            *time.Time
	CancelledAt         *time.Time
	Items               []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *ordering.Order {
	order := &ordering.Order{
		BaseAggregateRoot:   m.toAggregate(),
		SupplierID:          m.SupplierID,
		ProducerID:          m.ProducerID,
		BuyerUserID:         m.BuyerUserID,
		AllowContact:        m.AllowContact,
		Negotiable:          m.Negotiable,
		Status:              ordering.OrderStatus(m.Status),
		InteractionDeadline: m.InteractionDeadline,
		Totals:              m.TotalsSnapshot.Data(),
		LastProposalAction:  ordering.ProposalAction(m.LastProposalAction),
		ClosedAt:            m.ClosedAt,
		CancelledAt:         m.CancelledAt,
		Items:               make([]ordering.OrderItem, len(m.Items)),
	}
	for i := range m.Items {
		order.Items[i] = *m.Items[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order entity.
// Items are copied without their transports.
func (m *OrderModel) FromDomain(o *ordering.Order) {
	m.fromAggregate(&o.BaseAggregateRoot)
	m.SupplierID = o.SupplierID
	m.ProducerID = o.ProducerID
	m.BuyerUserID = o.BuyerUserID
	m.AllowContact = o.AllowContact
	m.Negotiable = o.Negotiable
	m.Status = string(o.Status)
	m.InteractionDeadline = o.InteractionDeadline.UTC()
	m.TotalsSnapshot = datatypes.NewJSONType(o.Totals)
	m.LastProposalAction = string(o.LastProposalAction)
	m.ClosedAt = o.ClosedAt
	m.CancelledAt = o.CancelledAt

	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = *OrderItemModelFromDomain(&o.Items[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *ordering.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order item.
type OrderItemModel struct {
	BaseModel
	OrderID         uuid.UUID                                `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID                                `gorm:"type:uuid;not null;index"`
	ProductName     string                                   `gorm:"type:varchar(200);not null"`
	Quantity        decimal.Decimal                          `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal                          `gorm:"type:decimal(18,4);not null"`
	DiscountPercent decimal.Decimal                          `gorm:"type:decimal(5,2);not null"`
	AuxData         datatypes.JSONType[ordering.ItemAuxData] `gorm:"column:aux_data"`
	Transports      []TransportModel                         `gorm:"foreignKey:OrderItemID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem entity.
func (m *OrderItemModel) ToDomain() *ordering.OrderItem {
	item := &ordering.OrderItem{
		ID:              m.ID,
		OrderID:         m.OrderID,
		ProductID:       m.ProductID,
		ProductName:     m.ProductName,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		DiscountPercent: m.DiscountPercent,
		AuxData:         m.AuxData.Data(),
		Transports:      make([]ordering.Transport, len(m.Transports)),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for i := range m.Transports {
		item.Transports[i] = *m.Transports[i].ToDomain()
	}
	return item
}

// FromDomain populates the persistence model from a domain OrderItem entity.
func (m *OrderItemModel) FromDomain(item *ordering.OrderItem) {
	m.setIdentity(item.ID, item.CreatedAt, item.UpdatedAt)
	m.OrderID = item.OrderID
	m.ProductID = item.ProductID
	m.ProductName = item.ProductName
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.DiscountPercent = item.DiscountPercent
	m.AuxData = datatypes.NewJSONType(item.AuxData)
}

// OrderItemModelFromDomain creates a new persistence model from a domain OrderItem entity.
func OrderItemModelFromDomain(item *ordering.OrderItem) *OrderItemModel {
	m := &OrderItemModel{}
	m.FromDomain(item)
	return m
}

// ProposalModel is the persistence model for the insert-only proposal log.
type ProposalModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Action      string    `gorm:"type:varchar(20);not null"`
	ActorUserID uuid.UUID `gorm:"type:uuid"`
	ActorRole   string    `gorm:"type:varchar(20);not null"`
	Note        string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProposalModel) TableName() string {
	return "order_proposals"
}

// ToDomain converts the persistence model to a domain Proposal.
func (m *ProposalModel) ToDomain() ordering.Proposal {
	return ordering.Proposal{
		ID:          m.ID,
		OrderID:     m.OrderID,
		Action:      ordering.ProposalAction(m.Action),
		ActorUserID: m.ActorUserID,
		ActorRole:   ordering.ActorRole(m.ActorRole),
		Note:        m.Note,
		CreatedAt:   m.CreatedAt,
	}
}

// ProposalModelFromDomain creates a new persistence model from a domain Proposal.
func ProposalModelFromDomain(p ordering.Proposal) ProposalModel {
	return ProposalModel{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Action:      string(p.Action),
		ActorUserID: p.ActorUserID,
		ActorRole:   string(p.ActorRole),
		Note:        p.Note,
		CreatedAt:   p.CreatedAt,
	}
}

// TransportModel is the persistence model for a transport allocation.
type TransportModel struct {
	BaseModel
	OrderItemID   uuid.UUID                                       `gorm:"type:uuid;not null;index"`
	OrderID       uuid.UUID                                       `gorm:"type:uuid;not null;index"`
	Quantity      decimal.Decimal                                 `gorm:"type:decimal(18,4);not null"`
	FreightValue  decimal.Decimal                                 `gorm:"type:decimal(18,4);not null"`
	ScheduledDate time.Time                                       `gorm:"not null"`
	Origin        string                                          `gorm:"type:varchar(200)"`
	Destination   string                                          `gorm:"type:varchar(200)"`
	DistanceKm    decimal.Decimal                                 `gorm:"type:decimal(18,4);not null"`
	TotalWeightKg decimal.Decimal                                 `gorm:"type:decimal(18,4);not null"`
	TotalVolumeM3 decimal.Decimal                                 `gorm:"type:decimal(18,4);not null"`
	Observations  string                                          `gorm:"type:text"`
	AuditInfo     datatypes.JSONType[ordering.TransportAuditInfo] `gorm:"column:audit_info"`
	Version       int                                             `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (TransportModel) TableName() string {
	return "transports"
}

// ToDomain converts the persistence model to a domain Transport entity.
func (m *TransportModel) ToDomain() *ordering.Transport {
	return &ordering.Transport{
		ID:            m.ID,
		OrderItemID:   m.OrderItemID,
		OrderID:       m.OrderID,
		Quantity:      m.Quantity,
		FreightValue:  m.FreightValue,
		ScheduledDate: m.ScheduledDate,
		Origin:        m.Origin,
		Destination:   m.Destination,
		DistanceKm:    m.DistanceKm,
		TotalWeightKg: m.TotalWeightKg,
		TotalVolumeM3: m.TotalVolumeM3,
		Observations:  m.Observations,
		AuditInfo:     m.AuditInfo.Data(),
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Transport entity.
func (m *TransportModel) FromDomain(t *ordering.Transport) {
	m.setIdentity(t.ID, t.CreatedAt, t.UpdatedAt)
	m.OrderItemID = t.OrderItemID
	m.OrderID = t.OrderID
	m.Quantity = t.Quantity
	m.FreightValue = t.FreightValue
	m.ScheduledDate = t.ScheduledDate
	m.Origin = t.Origin
	m.Destination = t.Destination
	m.DistanceKm = t.DistanceKm
	m.TotalWeightKg = t.TotalWeightKg
	m.TotalVolumeM3 = t.TotalVolumeM3
	m.Observations = t.Observations
	m.AuditInfo = datatypes.NewJSONType(t.AuditInfo)
	m.Version = t.Version
}

// TransportModelFromDomain creates a new persistence model from a domain Transport entity.
func TransportModelFromDomain(t *ordering.Transport) *TransportModel {
	m := &TransportModel{}
	m.FromDomain(t)
	return m
}
