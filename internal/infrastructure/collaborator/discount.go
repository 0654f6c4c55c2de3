package collaborator

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountClient resolves segmented discounts from the discount service
type DiscountClient struct {
	client *Client
}

// NewDiscountClient creates a new DiscountClient
func NewDiscountClient(client *Client) *DiscountClient {
	return &DiscountClient{client: client}
}

type discountRequest struct {
	ProducerID     uuid.UUID       `json:"producer_id"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	CategoryID     uuid.UUID       `json:"category_id"`
	PlantingAreaHa decimal.Decimal `json:"planting_area_ha"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

type discountResponse struct {
	Percentage     decimal.Decimal `json:"percentage"`
	AppliedSegment string          `json:"applied_segment"`
	AppliedGroup   string          `json:"applied_group"`
	Notes          string          `json:"notes"`
}

// Resolve returns the discount for the cart line. A missing rule is a dependency
// failure, never a silent zero discount.
func (c *DiscountClient) Resolve(ctx context.Context, query ordering.DiscountQuery) (ordering.DiscountResult, error) {
	var resp discountResponse
	err := c.client.postJSON(ctx, "/discounts/resolve", discountRequest{
		ProducerID:     query.ProducerID,
		SupplierID:     query.SupplierID,
		CategoryID:     query.CategoryID,
		PlantingAreaHa: query.PlantingAreaHa,
		LineTotal:      query.LineTotal,
	}, &resp)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return ordering.DiscountResult{}, shared.NewExternalDependencyError(c.client.name,
				fmt.Errorf("no discount rule for producer %s", query.ProducerID))
		}
		return ordering.DiscountResult{}, err
	}

	return ordering.DiscountResult{
		Percentage:     resp.Percentage,
		AppliedSegment: resp.AppliedSegment,
		AppliedGroup:   resp.AppliedGroup,
		Notes:          resp.Notes,
	}, nil
}

var _ ordering.DiscountResolver = (*DiscountClient)(nil)
