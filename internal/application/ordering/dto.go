package ordering

import (
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// CreateOrderRequest opens a negotiation between a producer and a supplier
type CreateOrderRequest struct {
	SupplierID   uuid.UUID `json:"supplier_id" binding:"required"`
	ProducerID   uuid.UUID `json:"producer_id" binding:"required"`
	AllowContact bool      `json:"allow_contact"`
	Negotiable   *bool     `json:"negotiable"`
	DeadlineDays int       `json:"deadline_days" binding:"omitempty,min=1,max=90"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	SupplierID *uuid.UUID `form:"supplier_id"`
	ProducerID *uuid.UUID `form:"producer_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=IN_NEGOTIATION CLOSED CANCELLED_BY_BUYER CANCELLED_BY_DEADLINE"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ExtendDeadlineRequest resets the negotiation deadline to now+days
type ExtendDeadlineRequest struct {
	Days int `json:"days" binding:"required,min=1,max=90"`
}

// OrderSummary represents an order in API responses
type OrderSummary struct {
	ID                  uuid.UUID         `json:"id"`
	SupplierID          uuid.UUID         `json:"supplier_id"`
	ProducerID          uuid.UUID         `json:"producer_id"`
	BuyerUserID         uuid.UUID         `json:"buyer_user_id"`
	Status              string            `json:"status"`
	AllowContact        bool              `json:"allow_contact"`
	Negotiable          bool              `json:"negotiable"`
	InteractionDeadline time.Time         `json:"interaction_deadline"`
	WithinDeadline      bool              `json:"within_deadline"`
	LastProposalAction  string            `json:"last_proposal_action,omitempty"`
	Totals              TotalsResponse    `json:"totals"`
	Items               []OrderItemDetail `json:"items"`
	ClosedAt            *time.Time        `json:"closed_at,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
	Version             int               `json:"version"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// TotalsResponse is the stored totals snapshot of an order
type TotalsResponse struct {
	GrossValue     decimal.Decimal `json:"gross_value"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	NetValue       decimal.Decimal `json:"net_value"`
	ItemCount      int             `json:"item_count"`
	AvgDiscountPct decimal.Decimal `json:"avg_discount_pct"`
}

// ==================== Cart DTOs ====================

// AddItemRequest adds a catalog product to the cart
type AddItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	CatalogID uuid.UUID       `json:"catalog_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	Notes     string          `json:"notes" binding:"max=500"`
}

// UpdateItemQuantityRequest changes the quantity of a cart line
type UpdateItemQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required,gt=0"`
}

// OrderItemDetail represents an order item in API responses
type OrderItemDetail struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	GrossValue        decimal.Decimal `json:"gross_value"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	FinalValue        decimal.Decimal `json:"final_value"`
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	DiscountSegment   string          `json:"discount_segment,omitempty"`
	DiscountGroup     string          `json:"discount_group,omitempty"`
	Region            string          `json:"region,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	TransportCount    int             `json:"transport_count"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ==================== Negotiation DTOs ====================

// SubmitProposalRequest is a negotiation action from the buyer or the supplier
type SubmitProposalRequest struct {
	Action string `json:"action" binding:"omitempty,oneof=STARTED ACCEPTED CANCELLED"`
	Note   string `json:"note" binding:"max=2000"`
}

// ProposalRecord represents a proposal in API responses
type ProposalRecord struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Action      string    `json:"action"`
	ActorUserID uuid.UUID `json:"actor_user_id"`
	ActorRole   string    `json:"actor_role"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NegotiationResult reports the effect of a submitted proposal
type NegotiationResult struct {
	RecordedAction   string       `json:"recorded_action"`
	ProposalAppended bool         `json:"proposal_appended"`
	PreviousStatus   string       `json:"previous_status"`
	Order            OrderSummary `json:"order"`
}

// ==================== Transport DTOs ====================

// ScheduleTransportRequest allocates part of an item's quantity to a shipment
type ScheduleTransportRequest struct {
	Quantity      decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	ScheduledDate time.Time       `json:"scheduled_date" binding:"required"`
	Origin        string          `json:"origin" binding:"max=200"`
	Destination   string          `json:"destination" binding:"max=200"`
	DistanceKm    decimal.Decimal `json:"distance_km" binding:"gte=0"`
	Notes         string          `json:"notes" binding:"max=1000"`
}

// BatchScheduleItem is one entry of a batch validation
type BatchScheduleItem struct {
	OrderItemID uuid.UUID `json:"order_item_id" binding:"required"`
	ScheduleTransportRequest
}

// ValidateBatchRequest validates several schedule requests without persisting them
type ValidateBatchRequest struct {
	Items []BatchScheduleItem `json:"items" binding:"required,min=1,max=200"`
}

// RescheduleTransportRequest moves a transport to a new date
type RescheduleTransportRequest struct {
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	Notes         string    `json:"notes" binding:"max=1000"`
}

// UpdateFreightValueRequest overrides the billed freight of a transport
type UpdateFreightValueRequest struct {
	FreightValue decimal.Decimal `json:"freight_value" binding:"gte=0"`
	Reason       string          `json:"reason" binding:"max=1000"`
}

// CancelTransportRequest removes a transport, releasing its quantity
type CancelTransportRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// TransportRecord represents a transport in API responses
type TransportRecord struct {
	ID            uuid.UUID                   `json:"id"`
	OrderID       uuid.UUID                   `json:"order_id"`
	OrderItemID   uuid.UUID                   `json:"order_item_id"`
	Quantity      decimal.Decimal             `json:"quantity"`
	FreightValue  decimal.Decimal             `json:"freight_value"`
	ScheduledDate time.Time                   `json:"scheduled_date"`
	Origin        string                      `json:"origin,omitempty"`
	Destination   string                      `json:"destination,omitempty"`
	DistanceKm    decimal.Decimal             `json:"distance_km"`
	TotalWeightKg decimal.Decimal             `json:"total_weight_kg"`
	TotalVolumeM3 decimal.Decimal             `json:"total_volume_m3"`
	Observations  string                      `json:"observations"`
	AuditInfo     ordering.TransportAuditInfo `json:"audit_info"`
	Version       int                         `json:"version"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// BatchValidationError describes why one batch entry is invalid
type BatchValidationError struct {
	Index       int       `json:"index"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
}

// BatchValidationResult collects every error of a batch instead of stopping at the first
type BatchValidationResult struct {
	IsValid bool                   `json:"is_valid"`
	Errors  []BatchValidationError `json:"errors"`
}

// ItemAllocation is the allocation state of one order item
type ItemAllocation struct {
	OrderItemID       uuid.UUID       `json:"order_item_id"`
	ProductName       string          `json:"product_name"`
	Quantity          decimal.Decimal `json:"quantity"`
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	TransportCount    int             `json:"transport_count"`
}

// OrderTransportSummary aggregates the transports of an order
type OrderTransportSummary struct {
	OrderID           uuid.UUID        `json:"order_id"`
	ItemCount         int              `json:"item_count"`
	TransportCount    int              `json:"transport_count"`
	AllocatedQuantity decimal.Decimal  `json:"allocated_quantity"`
	TotalWeightKg     decimal.Decimal  `json:"total_weight_kg"`
	TotalVolumeM3     decimal.Decimal  `json:"total_volume_m3"`
	TotalFreight      decimal.Decimal  `json:"total_freight"`
	NextScheduledDate *time.Time       `json:"next_scheduled_date,omitempty"`
	Items             []ItemAllocation `json:"items"`
}

// ==================== Freight DTOs ====================

// FreightQuoteLine is one product line of a freight quote
type FreightQuoteLine struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,gt=0"`
}

// FreightQuoteRequest quotes freight without persisting anything
type FreightQuoteRequest struct {
	DistanceKm decimal.Decimal    `json:"distance_km" binding:"required,gt=0"`
	Lines      []FreightQuoteLine `json:"lines" binding:"required,min=1,max=100,dive"`
}

// FreightQuote is the result of a freight quote. Single carries the result of a one-line quote,
// Consolidated the result of a multi-line quote.
type FreightQuote struct {
	Single       *ordering.FreightCalculationResult  `json:"single,omitempty"`
	Consolidated *ordering.ConsolidatedFreightResult `json:"consolidated,omitempty"`
}

// ==================== Converters ====================

// ToOrderSummary converts a domain Order to an OrderSummary
func ToOrderSummary(o *ordering.Order) OrderSummary {
	items := make([]OrderItemDetail, len(o.Items))
	for i := range o.Items {
		items[i] = ToOrderItemDetail(&o.Items[i])
	}

	return OrderSummary{
		ID:                  o.ID,
		SupplierID:          o.SupplierID,
		ProducerID:          o.ProducerID,
		BuyerUserID:         o.BuyerUserID,
		Status:              string(o.Status),
		AllowContact:        o.AllowContact,
		Negotiable:          o.Negotiable,
		InteractionDeadline: o.InteractionDeadline,
		WithinDeadline:      o.IsWithinDeadline(),
		LastProposalAction:  string(o.LastProposalAction),
		Totals:              ToTotalsResponse(o.Totals),
		Items:               items,
		ClosedAt:            o.ClosedAt,
		CancelledAt:         o.CancelledAt,
		Version:             o.Version,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

// ToOrderSummaries converts a slice of domain Orders
func ToOrderSummaries(orders []ordering.Order) []OrderSummary {
	summaries := make([]OrderSummary, len(orders))
	for i := range orders {
		summaries[i] = ToOrderSummary(&orders[i])
	}
	return summaries
}

// ToTotalsResponse converts a totals snapshot
func ToTotalsResponse(t ordering.TotalsSnapshot) TotalsResponse {
	return TotalsResponse{
		GrossValue:     t.GrossValue,
		DiscountValue:  t.DiscountValue,
		NetValue:       t.NetValue,
		ItemCount:      t.ItemCount,
		AvgDiscountPct: t.AvgDiscountPct,
	}
}

// ToOrderItemDetail converts a domain OrderItem to an OrderItemDetail
func ToOrderItemDetail(item *ordering.OrderItem) OrderItemDetail {
	return OrderItemDetail{
		ID:                item.ID,
		ProductID:         item.ProductID,
		ProductName:       item.ProductName,
		Quantity:          item.Quantity,
		UnitPrice:         item.UnitPrice,
		DiscountPercent:   item.DiscountPercent,
		GrossValue:        item.LineGross(),
		DiscountAmount:    item.DiscountAmount(),
		FinalValue:        item.FinalValue(),
		AllocatedQuantity: item.AllocatedQuantity(),
		AvailableQuantity: item.AvailableQuantity(),
		DiscountSegment:   item.AuxData.DiscountSegment,
		DiscountGroup:     item.AuxData.DiscountGroup,
		Region:            item.AuxData.Region,
		Notes:             item.AuxData.Notes,
		TransportCount:    len(item.Transports),
		CreatedAt:         item.CreatedAt,
	}
}

// ToProposalRecord converts a domain Proposal
func ToProposalRecord(p ordering.Proposal) ProposalRecord {
	return ProposalRecord{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Action:      string(p.Action),
		ActorUserID: p.ActorUserID,
		ActorRole:   string(p.ActorRole),
		Note:        p.Note,
		CreatedAt:   p.CreatedAt,
	}
}

// ToProposalRecords converts a slice of domain Proposals
func ToProposalRecords(proposals []ordering.Proposal) []ProposalRecord {
	records := make([]ProposalRecord, len(proposals))
	for i := range proposals {
		records[i] = ToProposalRecord(proposals[i])
	}
	return records
}

// ToTransportRecord converts a domain Transport
func ToTransportRecord(t *ordering.Transport) TransportRecord {
	return TransportRecord{
		ID:            t.ID,
		OrderID:       t.OrderID,
		OrderItemID:   t.OrderItemID,
		Quantity:      t.Quantity,
		FreightValue:  t.FreightValue,
		ScheduledDate: t.ScheduledDate,
		Origin:        t.Origin,
		Destination:   t.Destination,
		DistanceKm:    t.DistanceKm,
		TotalWeightKg: t.TotalWeightKg,
		TotalVolumeM3: t.TotalVolumeM3,
		Observations:  t.Observations,
		AuditInfo:     t.AuditInfo,
		Version:       t.Version,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
