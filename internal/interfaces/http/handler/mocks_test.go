package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	orderingapp "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/interfaces/http/dto"
	"github.com/agrolink/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testBuyerUserID    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testSupplierUserID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// MockOrderService implements OrderService for testing
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, actor ordering.Actor, req orderingapp.CreateOrderRequest) (*orderingapp.OrderSummary, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderSummary), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*orderingapp.OrderSummary, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderSummary), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, filter orderingapp.OrderListFilter) ([]orderingapp.OrderSummary, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]orderingapp.OrderSummary), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) ListProposals(ctx context.Context, orderID uuid.UUID) ([]orderingapp.ProposalRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orderingapp.ProposalRecord), args.Error(1)
}

func (m *MockOrderService) GetTotals(ctx context.Context, orderID uuid.UUID) (*orderingapp.TotalsResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.TotalsResponse), args.Error(1)
}

func (m *MockOrderService) ExtendDeadline(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req orderingapp.ExtendDeadlineRequest) (*orderingapp.OrderSummary, error) {
	args := m.Called(ctx, actor, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderSummary), args.Error(1)
}

// MockCartService implements CartService for testing
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req orderingapp.AddItemRequest) (*orderingapp.OrderSummary, error) {
	args := m.Called(ctx, actor, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderSummary), args.Error(1)
}

func (m *MockCartService) UpdateItemQuantity(ctx context.Context, actor ordering.Actor, orderID, itemID uuid.UUID, quantity decimal.Decimal) (*orderingapp.OrderSummary, error) {
	args := m.Called(ctx, actor, orderID, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderSummary), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, actor ordering.Actor, orderID, itemID uuid.UUID) (*orderingapp.OrderSummary, error) {
	args := m.Called(ctx, actor, orderID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderSummary), args.Error(1)
}

// MockNegotiationService implements NegotiationService for testing
type MockNegotiationService struct {
	mock.Mock
}

func (m *MockNegotiationService) RecordAction(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req orderingapp.SubmitProposalRequest) (*orderingapp.NegotiationResult, error) {
	args := m.Called(ctx, actor, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.NegotiationResult), args.Error(1)
}

// MockTransportService implements TransportService for testing
type MockTransportService struct {
	mock.Mock
}

func (m *MockTransportService) CreateSchedule(ctx context.Context, actor ordering.Actor, itemID uuid.UUID, req orderingapp.ScheduleTransportRequest) (*orderingapp.TransportRecord, error) {
	args := m.Called(ctx, actor, itemID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.TransportRecord), args.Error(1)
}

func (m *MockTransportService) Reschedule(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req orderingapp.RescheduleTransportRequest) (*orderingapp.TransportRecord, error) {
	args := m.Called(ctx, actor, transportID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.TransportRecord), args.Error(1)
}

func (m *MockTransportService) UpdateFreightValue(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req orderingapp.UpdateFreightValueRequest) (*orderingapp.TransportRecord, error) {
	args := m.Called(ctx, actor, transportID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.TransportRecord), args.Error(1)
}

func (m *MockTransportService) CancelTransport(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req orderingapp.CancelTransportRequest) (*orderingapp.TransportRecord, error) {
	args := m.Called(ctx, actor, transportID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.TransportRecord), args.Error(1)
}

func (m *MockTransportService) ValidateBatch(ctx context.Context, req orderingapp.ValidateBatchRequest) (*orderingapp.BatchValidationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.BatchValidationResult), args.Error(1)
}

func (m *MockTransportService) ComputeOrderTransportSummary(ctx context.Context, orderID uuid.UUID) (*orderingapp.OrderTransportSummary, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.OrderTransportSummary), args.Error(1)
}

func (m *MockTransportService) CalculateFreight(ctx context.Context, req orderingapp.FreightQuoteRequest) (*orderingapp.FreightQuote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderingapp.FreightQuote), args.Error(1)
}

// newTestEngine returns an engine that resolves actor headers the way the server does
func newTestEngine() *gin.Engine {
	middleware.SetupValidator()
	r := gin.New()
	r.Use(middleware.ActorIdentity())
	return r
}

type testRequest struct {
	method string
	path   string
	body   any
	role   ordering.ActorRole
	userID uuid.UUID
}

func asBuyer(method, path string, body any) testRequest {
	return testRequest{method: method, path: path, body: body, role: ordering.ActorRoleBuyer, userID: testBuyerUserID}
}

func asSupplier(method, path string, body any) testRequest {
	return testRequest{method: method, path: path, body: body, role: ordering.ActorRoleSupplier, userID: testSupplierUserID}
}

func anonymous(method, path string, body any) testRequest {
	return testRequest{method: method, path: path, body: body}
}

func serve(t *testing.T, r *gin.Engine, tr testRequest) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := tr.body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(tr.method, tr.path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tr.role != "" {
		req.Header.Set(middleware.HeaderUserID, tr.userID.String())
		req.Header.Set(middleware.HeaderActorRole, string(tr.role))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// decodeData re-decodes the data envelope into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
