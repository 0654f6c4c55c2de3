package ordering

import (
	"context"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*ordering.OrderItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) LockItemForAllocation(ctx context.Context, itemID uuid.UUID) (*ordering.OrderItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ordering.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]ordering.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindExpiredNegotiations(ctx context.Context, now time.Time, limit int) ([]ordering.Order, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) FindDeadlineApproaching(ctx context.Context, now, until time.Time, limit int) ([]ordering.Order, error) {
	args := m.Called(ctx, now, until, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockProposalRepository is a mock implementation of ProposalRepository
type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) Append(ctx context.Context, proposals ...ordering.Proposal) error {
	args := m.Called(ctx, proposals)
	return args.Error(0)
}

func (m *MockProposalRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ordering.Proposal, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Proposal), args.Error(1)
}

// MockTransportRepository is a mock implementation of TransportRepository
type MockTransportRepository struct {
	mock.Mock
}

func (m *MockTransportRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Transport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Transport), args.Error(1)
}

func (m *MockTransportRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ordering.Transport, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Transport), args.Error(1)
}

func (m *MockTransportRepository) SumAllocatedQuantity(ctx context.Context, orderItemID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, orderItemID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransportRepository) Create(ctx context.Context, transport *ordering.Transport) error {
	args := m.Called(ctx, transport)
	return args.Error(0)
}

func (m *MockTransportRepository) SaveWithLock(ctx context.Context, transport *ordering.Transport) error {
	args := m.Called(ctx, transport)
	return args.Error(0)
}

func (m *MockTransportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockProductDirectory is a mock implementation of ProductDirectory
type MockProductDirectory struct {
	mock.Mock
}

func (m *MockProductDirectory) GetProduct(ctx context.Context, productID uuid.UUID) (*ordering.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Product), args.Error(1)
}

// MockProducerDirectory is a mock implementation of ProducerDirectory
type MockProducerDirectory struct {
	mock.Mock
}

func (m *MockProducerDirectory) GetProducer(ctx context.Context, producerID uuid.UUID) (*ordering.Producer, error) {
	args := m.Called(ctx, producerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Producer), args.Error(1)
}

// MockPriceCatalog is a mock implementation of PriceCatalog
type MockPriceCatalog struct {
	mock.Mock
}

func (m *MockPriceCatalog) LookupPrice(ctx context.Context, query ordering.PriceQuery) (decimal.Decimal, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockDiscountResolver is a mock implementation of DiscountResolver
type MockDiscountResolver struct {
	mock.Mock
}

func (m *MockDiscountResolver) Resolve(ctx context.Context, query ordering.DiscountQuery) (ordering.DiscountResult, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(ordering.DiscountResult), args.Error(1)
}

// MockNotificationDispatcher is a mock implementation of NotificationDispatcher
type MockNotificationDispatcher struct {
	mock.Mock
}

func (m *MockNotificationDispatcher) Dispatch(ctx context.Context, notification ordering.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// Test helpers
var (
	testSupplierID = uuid.New()
	testProducerID = uuid.New()
	testBuyerID    = uuid.New()
	testCatalogID  = uuid.New()
)

func newTestOrder(quantities ...int64) *ordering.Order {
	order, err := ordering.NewOrder(testSupplierID, testProducerID, testBuyerID, ordering.DefaultDeadlineDays)
	if err != nil {
		panic(err)
	}
	for _, qty := range quantities {
		item, err := ordering.NewOrderItem(order.ID, uuid.New(), "Soybean seed",
			decimal.NewFromInt(qty), decimal.NewFromInt(10), decimal.Zero, ordering.ItemAuxData{})
		if err != nil {
			panic(err)
		}
		if err := order.AddItem(item); err != nil {
			panic(err)
		}
	}
	order.UpdateTotals(ordering.CalculateTotals(order.Items))
	order.PullEvents()
	return order
}

func newTestScope() (*NoOpTransactionScope, *MockOrderRepository, *MockProposalRepository, *MockTransportRepository) {
	orderRepo := new(MockOrderRepository)
	proposalRepo := new(MockProposalRepository)
	transportRepo := new(MockTransportRepository)
	return NewNoOpTransactionScope(orderRepo, proposalRepo, transportRepo), orderRepo, proposalRepo, transportRepo
}
