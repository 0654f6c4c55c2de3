package collaborator

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogClient reads products, producers and catalog prices from the master-data service
type CatalogClient struct {
	client *Client
}

// NewCatalogClient creates a new CatalogClient
func NewCatalogClient(client *Client) *CatalogClient {
	return &CatalogClient{client: client}
}

type shippingResponse struct {
	NominalWeightKg decimal.Decimal     `json:"nominal_weight_kg"`
	VolumeM3        decimal.Decimal     `json:"volume_m3"`
	DensityKgM3     decimal.NullDecimal `json:"density_kg_m3"`
	WeightMode      string              `json:"weight_mode"`
}

type productResponse struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	CategoryID uuid.UUID        `json:"category_id"`
	Active     bool             `json:"active"`
	Unit       string           `json:"unit"`
	Shipping   shippingResponse `json:"shipping"`
}

type producerResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Region         string          `json:"region"`
	PlantingAreaHa decimal.Decimal `json:"planting_area_ha"`
}

type priceResponse struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// GetProduct returns the product, or a NOT_FOUND error
func (c *CatalogClient) GetProduct(ctx context.Context, productID uuid.UUID) (*ordering.Product, error) {
	var resp productResponse
	if err := c.client.getJSON(ctx, "/products/"+productID.String(), &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, shared.NewNotFoundError("Product", productID)
		}
		return nil, err
	}

	mode := ordering.WeightMode(resp.Shipping.WeightMode)
	if mode == "" {
		mode = ordering.WeightModeNominal
	}
	return &ordering.Product{
		ID:         resp.ID,
		Name:       resp.Name,
		CategoryID: resp.CategoryID,
		Active:     resp.Active,
		Unit:       resp.Unit,
		Shipping: ordering.ShippingProfile{
			NominalWeightKg: resp.Shipping.NominalWeightKg,
			VolumeM3:        resp.Shipping.VolumeM3,
			DensityKgM3:     resp.Shipping.DensityKgM3,
			WeightMode:      mode,
		},
	}, nil
}

// GetProducer returns the producer, or a NOT_FOUND error
func (c *CatalogClient) GetProducer(ctx context.Context, producerID uuid.UUID) (*ordering.Producer, error) {
	var resp producerResponse
	if err := c.client.getJSON(ctx, "/producers/"+producerID.String(), &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, shared.NewNotFoundError("Producer", producerID)
		}
		return nil, err
	}
	return &ordering.Producer{
		ID:             resp.ID,
		Name:           resp.Name,
		Region:         resp.Region,
		PlantingAreaHa: resp.PlantingAreaHa,
	}, nil
}

// LookupPrice returns the catalog unit price for the product on the query date and region
func (c *CatalogClient) LookupPrice(ctx context.Context, query ordering.PriceQuery) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("product_id", query.ProductID.String())
	params.Set("date", query.Date.Format("2006-01-02"))
	if query.Region != "" {
		params.Set("region", query.Region)
	}
	path := fmt.Sprintf("/catalogs/%s/prices?%s", query.CatalogID, params.Encode())

	var resp priceResponse
	if err := c.client.getJSON(ctx, path, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return decimal.Zero, shared.NewDomainError(shared.CodePriceNotFound,
				fmt.Sprintf("No price for product %s in catalog %s", query.ProductID, query.CatalogID))
		}
		return decimal.Zero, err
	}
	if resp.UnitPrice.IsNegative() {
		return decimal.Zero, shared.NewExternalDependencyError(c.client.name,
			fmt.Errorf("negative unit price %s", resp.UnitPrice))
	}
	return resp.UnitPrice, nil
}

var (
	_ ordering.ProductDirectory  = (*CatalogClient)(nil)
	_ ordering.ProducerDirectory = (*CatalogClient)(nil)
	_ ordering.PriceCatalog      = (*CatalogClient)(nil)
)
