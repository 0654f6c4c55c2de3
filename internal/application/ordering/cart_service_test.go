package ordering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	service      *CartService
	orderRepo    *MockOrderRepository
	proposalRepo *MockProposalRepository
	products     *MockProductDirectory
	producers    *MockProducerDirectory
	prices       *MockPriceCatalog
	discounts    *MockDiscountResolver
	publisher    *MockEventPublisher
}

func newCartFixture() *cartFixture {
	scope, orderRepo, proposalRepo, _ := newTestScope()
	f := &cartFixture{
		orderRepo:    orderRepo,
		proposalRepo: proposalRepo,
		products:     new(MockProductDirectory),
		producers:    new(MockProducerDirectory),
		prices:       new(MockPriceCatalog),
		discounts:    new(MockDiscountResolver),
		publisher:    new(MockEventPublisher),
	}
	engine := ordering.NewCartPricingEngine(f.products, f.producers, f.prices, f.discounts)
	f.service = NewCartService(orderRepo, scope, engine, nil)
	f.service.SetEventPublisher(f.publisher)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func (f *cartFixture) stubPricing(product *ordering.Product, price, discountPct decimal.Decimal) {
	f.products.On("GetProduct", mock.Anything, product.ID).Return(product, nil)
	f.producers.On("GetProducer", mock.Anything, testProducerID).Return(&ordering.Producer{
		ID:             testProducerID,
		Name:           "Fazenda Boa Vista",
		Region:         "PR",
		PlantingAreaHa: decimal.NewFromInt(450),
	}, nil)
	f.prices.On("LookupPrice", mock.Anything, mock.AnythingOfType("ordering.PriceQuery")).Return(price, nil)
	f.discounts.On("Resolve", mock.Anything, mock.AnythingOfType("ordering.DiscountQuery")).Return(ordering.DiscountResult{
		Percentage:     discountPct,
		AppliedSegment: "GOLD",
	}, nil)
}

func newTestProduct() *ordering.Product {
	return &ordering.Product{
		ID:         uuid.New(),
		Name:       "Fertilizer NPK 20-05-20",
		CategoryID: uuid.New(),
		Active:     true,
		Unit:       "bag",
		Shipping: ordering.ShippingProfile{
			NominalWeightKg: decimal.NewFromInt(50),
			VolumeM3:        decimal.RequireFromString("0.04"),
			WeightMode:      ordering.WeightModeNominal,
		},
	}
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("prices the line and records the cart change", func(t *testing.T) {
		f := newCartFixture()
		order := newTestOrder()
		product := newTestProduct()
		f.stubPricing(product, decimal.NewFromInt(25), decimal.NewFromInt(5))

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
		f.proposalRepo.On("Append", mock.Anything, mock.MatchedBy(func(ps []ordering.Proposal) bool {
			return len(ps) == 1 && ps[0].Action == ordering.ProposalActionCartChanged && ps[0].ActorRole == ordering.ActorRoleBuyer
		})).Return(nil)

		summary, err := f.service.AddItem(ctx, ordering.Buyer{ID: testBuyerID}, order.ID, AddItemRequest{
			ProductID: product.ID,
			CatalogID: testCatalogID,
			Quantity:  decimal.NewFromInt(40),
		})

		require.NoError(t, err)
		require.Len(t, summary.Items, 1)
		assert.Equal(t, "GOLD", summary.Items[0].DiscountSegment)
		assert.Equal(t, "PR", summary.Items[0].Region)
		assert.True(t, decimal.NewFromInt(1000).Equal(summary.Totals.GrossValue))
		assert.True(t, decimal.NewFromInt(950).Equal(summary.Totals.NetValue))
		assert.Empty(t, order.PendingProposals())
		f.proposalRepo.AssertExpectations(t)
	})

	t.Run("deadline passed", func(t *testing.T) {
		f := newCartFixture()
		order := newTestOrder()
		f.service.SetClock(func() time.Time { return time.Now().AddDate(0, 0, 8) })
		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := f.service.AddItem(ctx, ordering.Buyer{ID: testBuyerID}, order.ID, AddItemRequest{
			ProductID: uuid.New(),
			CatalogID: testCatalogID,
			Quantity:  decimal.NewFromInt(1),
		})

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.products.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
		f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("closed order", func(t *testing.T) {
		f := newCartFixture()
		order := newTestOrder(10)
		require.NoError(t, order.Close())
		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := f.service.AddItem(ctx, ordering.Buyer{ID: testBuyerID}, order.ID, AddItemRequest{
			ProductID: uuid.New(),
			CatalogID: testCatalogID,
			Quantity:  decimal.NewFromInt(1),
		})

		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("discount service failure leaves cart unchanged", func(t *testing.T) {
		f := newCartFixture()
		order := newTestOrder()
		product := newTestProduct()
		f.products.On("GetProduct", mock.Anything, product.ID).Return(product, nil)
		f.producers.On("GetProducer", mock.Anything, testProducerID).Return(&ordering.Producer{ID: testProducerID, Region: "PR"}, nil)
		f.prices.On("LookupPrice", mock.Anything, mock.Anything).Return(decimal.NewFromInt(25), nil)
		f.discounts.On("Resolve", mock.Anything, mock.Anything).Return(ordering.DiscountResult{}, errors.New("timeout"))
		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := f.service.AddItem(ctx, ordering.Buyer{ID: testBuyerID}, order.ID, AddItemRequest{
			ProductID: product.ID,
			CatalogID: testCatalogID,
			Quantity:  decimal.NewFromInt(10),
		})

		assert.ErrorIs(t, err, shared.ErrExternalDependency)
		assert.Empty(t, order.Items)
		f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("stale version", func(t *testing.T) {
		f := newCartFixture()
		order := newTestOrder()
		product := newTestProduct()
		f.stubPricing(product, decimal.NewFromInt(25), decimal.Zero)
		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(shared.ErrConcurrencyConflict)

		_, err := f.service.AddItem(ctx, ordering.Buyer{ID: testBuyerID}, order.ID, AddItemRequest{
			ProductID: product.ID,
			CatalogID: testCatalogID,
			Quantity:  decimal.NewFromInt(10),
		})

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		f.proposalRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	order := newTestOrder()
	product := newTestProduct()
	item, err := ordering.NewOrderItem(order.ID, product.ID, product.Name,
		decimal.NewFromInt(10), decimal.NewFromInt(25), decimal.Zero, ordering.ItemAuxData{})
	require.NoError(t, err)
	require.NoError(t, order.AddItem(item))

	f.stubPricing(product, decimal.NewFromInt(25), decimal.NewFromInt(10))
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
	f.proposalRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.service.UpdateItemQuantity(ctx, ordering.Supplier{ID: testSupplierID}, order.ID, item.ID, decimal.NewFromInt(100))

	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(summary.Items[0].Quantity))
	assert.True(t, decimal.NewFromInt(10).Equal(summary.Items[0].DiscountPercent))
	assert.True(t, decimal.NewFromInt(2250).Equal(summary.Totals.NetValue))
}

func TestCartService_RemoveItem(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the line", func(t *testing.T) {
		f := newCartFixture()
		order := newTestOrder(10, 20)
		itemID := order.Items[0].ID
		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
		f.proposalRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

		summary, err := f.service.RemoveItem(ctx, ordering.Buyer{ID: testBuyerID}, order.ID, itemID)

		require.NoError(t, err)
		assert.Len(t, summary.Items, 1)
		assert.Equal(t, 1, summary.Totals.ItemCount)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newCartFixture()
		order := newTestOrder(10)
		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := f.service.RemoveItem(ctx, ordering.Buyer{ID: testBuyerID}, order.ID, uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
