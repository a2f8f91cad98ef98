package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/internal/settlement"
	"github.com/tailorline/settlement-api/pkg/errors"
	"github.com/tailorline/settlement-api/pkg/middleware"
)

type noopLogger struct{}

func (noopLogger) Debug(msg string, keyvals ...interface{}) {}
func (noopLogger) Info(msg string, keyvals ...interface{})  {}
func (noopLogger) Warn(msg string, keyvals ...interface{})  {}
func (noopLogger) Error(msg string, keyvals ...interface{}) {}

type fakeOrderService struct {
	createOrder       func(actor models.Actor, designID string, asaID *int64) (*models.Order, error)
	confirmPayment    func(actor models.Actor, orderID string) (*models.Order, error)
	getOrder          func(actor models.Actor, orderID string) (*models.Order, error)
	getOrdersForActor func(actor models.Actor, limit, offset int) ([]*models.Order, error)
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, actor models.Actor, designID string, asaID *int64) (*models.Order, error) {
	return f.createOrder(actor, designID, asaID)
}

func (f *fakeOrderService) ConfirmPayment(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	return f.confirmPayment(actor, orderID)
}

func (f *fakeOrderService) GetOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	return f.getOrder(actor, orderID)
}

func (f *fakeOrderService) GetOrdersForActor(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.Order, error) {
	return f.getOrdersForActor(actor, limit, offset)
}

type fakeSettlements struct {
	settle func(orderID string, actor models.Actor, action settlement.Action) (*settlement.Result, error)
}

func (f *fakeSettlements) Settle(ctx context.Context, orderID string, actor models.Actor, action settlement.Action) (*settlement.Result, error) {
	return f.settle(orderID, actor, action)
}

type fakeWalletStore struct {
	wallet *models.Wallet
	err    error
}

func (f *fakeWalletStore) GetByActorID(ctx context.Context, actorID string) (*models.Wallet, error) {
	return f.wallet, f.err
}

type fakeBalances struct {
	balance uint64
	err     error
}

func (f *fakeBalances) AccountBalance(ctx context.Context, address string) (uint64, error) {
	return f.balance, f.err
}

type serverOverrides struct {
	orders      orderService
	catalog     catalogService
	settlements settlementService
	wallets     walletStore
	balances    balanceClient
	maxTokens   float64
}

func newTestServer(t *testing.T, o serverOverrides) *Server {
	t.Helper()

	if o.maxTokens == 0 {
		o.maxTokens = 100
	}

	limiter := middleware.NewActorRateLimiterMiddleware(&middleware.ActorRateLimiterConfig{
		MaxTokens:  o.maxTokens,
		RefillRate: 0.001,
	}, noopLogger{})
	t.Cleanup(limiter.Stop)

	s := &Server{
		router:       mux.NewRouter(),
		logger:       noopLogger{},
		orderService: o.orders,
		catalog:      o.catalog,
		settlements:  o.settlements,
		wallets:      o.wallets,
		balances:     o.balances,
		actorLimiter: limiter,
	}
	s.setupRoutes()
	return s
}

func doRequest(s *Server, method, path string, body []byte, actorID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}
	if role != "" {
		req.Header.Set("X-Actor-Role", role)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) ApiResponse {
	t.Helper()
	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, serverOverrides{})

	rec := doRequest(s, http.MethodGet, "/api/v1/health", nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestCreateOrder(t *testing.T) {
	order := &models.Order{ID: "ord-1", CustomerID: "cust-1", DesignID: "dsn-1", Amount: decimal.NewFromInt(100)}
	var gotActor models.Actor
	var gotDesign string

	s := newTestServer(t, serverOverrides{orders: &fakeOrderService{
		createOrder: func(actor models.Actor, designID string, asaID *int64) (*models.Order, error) {
			gotActor = actor
			gotDesign = designID
			return order, nil
		},
	}})

	body := []byte(`{"design_id":"dsn-1"}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/orders", body, "cust-1", "customer")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.Actor{ID: "cust-1", Role: models.RoleCustomer}, gotActor)
	assert.Equal(t, "dsn-1", gotDesign)
}

func TestCreateOrder_Validation(t *testing.T) {
	s := newTestServer(t, serverOverrides{orders: &fakeOrderService{}})

	t.Run("missing actor headers", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/v1/orders", []byte(`{"design_id":"dsn-1"}`), "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/v1/orders", []byte(`{"design_id":"dsn-1"}`), "cust-1", "admin")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/v1/orders", []byte(`{`), "cust-1", "customer")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing design id", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/v1/orders", []byte(`{}`), "cust-1", "customer")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetOrderByID_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", errors.NewNotFoundError("order missing not found"), http.StatusNotFound},
		{"foreign order", errors.NewForbiddenError("order belongs to another customer and tailor"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, serverOverrides{orders: &fakeOrderService{
				getOrder: func(actor models.Actor, orderID string) (*models.Order, error) {
					return nil, tt.err
				},
			}})

			rec := doRequest(s, http.MethodGet, "/api/v1/orders/ord-1", nil, "cust-1", "customer")
			assert.Equal(t, tt.code, rec.Code)

			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestReleaseAndRefundRouting(t *testing.T) {
	var gotAction settlement.Action
	var gotOrderID string

	s := newTestServer(t, serverOverrides{settlements: &fakeSettlements{
		settle: func(orderID string, actor models.Actor, action settlement.Action) (*settlement.Result, error) {
			gotOrderID = orderID
			gotAction = action
			return &settlement.Result{
				Order:          &models.Order{ID: orderID, IsReleased: true},
				TransactionID:  "TX1",
				ConfirmedRound: 42,
			}, nil
		},
	}})

	rec := doRequest(s, http.MethodPost, "/api/v1/orders/ord-1/release", nil, "cust-1", "customer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ord-1", gotOrderID)
	assert.Equal(t, settlement.ActionRelease, gotAction)

	rec = doRequest(s, http.MethodPost, "/api/v1/orders/ord-2/refund", nil, "tlr-1", "tailor")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ord-2", gotOrderID)
	assert.Equal(t, settlement.ActionRefund, gotAction)
}

func TestSettlement_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"already settled", errors.NewAlreadySettledError("order ord-1 is already settled"), http.StatusConflict},
		{"no escrow", errors.NewNotEscrowedError("order ord-1 has no escrow address"), http.StatusPreconditionFailed},
		{"wrong actor", errors.NewForbiddenError("only the ordering customer can release funds"), http.StatusForbidden},
		{"confirmation timeout", errors.NewSettlementTimeoutError("transaction TX1 not confirmed"), http.StatusGatewayTimeout},
		{"ledger rejected", errors.NewSettlementFailedError("ledger rejected transaction"), http.StatusBadGateway},
		{"in flight", errors.NewSettlementInFlightError("a settlement is already awaiting confirmation"), http.StatusConflict},
		{"submission failed", errors.NewSubmissionError("node unreachable"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, serverOverrides{settlements: &fakeSettlements{
				settle: func(orderID string, actor models.Actor, action settlement.Action) (*settlement.Result, error) {
					return nil, tt.err
				},
			}})

			rec := doRequest(s, http.MethodPost, "/api/v1/orders/ord-1/release", nil, "cust-1", "customer")
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestSettlement_PerActorRateLimit(t *testing.T) {
	s := newTestServer(t, serverOverrides{
		maxTokens: 2,
		settlements: &fakeSettlements{
			settle: func(orderID string, actor models.Actor, action settlement.Action) (*settlement.Result, error) {
				return &settlement.Result{Order: &models.Order{ID: orderID}}, nil
			},
		},
	})

	for i := 0; i < 2; i++ {
		rec := doRequest(s, http.MethodPost, "/api/v1/orders/ord-1/release", nil, "cust-1", "customer")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(s, http.MethodPost, "/api/v1/orders/ord-1/release", nil, "cust-1", "customer")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))

	// Other actors have their own budget
	rec = doRequest(s, http.MethodPost, "/api/v1/orders/ord-1/release", nil, "cust-2", "customer")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConfirmPayment(t *testing.T) {
	s := newTestServer(t, serverOverrides{orders: &fakeOrderService{
		confirmPayment: func(actor models.Actor, orderID string) (*models.Order, error) {
			if actor.Role != models.RoleTailor {
				return nil, errors.NewForbiddenError("only the tailor owning the design can confirm the order")
			}
			return &models.Order{ID: orderID, PaymentStatus: models.PaymentStatusConfirmed}, nil
		},
	}})

	rec := doRequest(s, http.MethodPost, "/api/v1/orders/ord-1/confirm", nil, "tlr-1", "tailor")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/orders/ord-1/confirm", nil, "cust-1", "customer")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetOrders_PassesPagination(t *testing.T) {
	var gotLimit, gotOffset int

	s := newTestServer(t, serverOverrides{orders: &fakeOrderService{
		getOrdersForActor: func(actor models.Actor, limit, offset int) ([]*models.Order, error) {
			gotLimit = limit
			gotOffset = offset
			return []*models.Order{}, nil
		},
	}})

	rec := doRequest(s, http.MethodGet, "/api/v1/orders?limit=5&offset=10", nil, "cust-1", "customer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 10, gotOffset)

	rec = doRequest(s, http.MethodGet, "/api/v1/orders?limit=junk", nil, "cust-1", "customer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, gotLimit, "bad limit falls back to the default")
}

func TestProfile(t *testing.T) {
	s := newTestServer(t, serverOverrides{
		wallets:  &fakeWalletStore{wallet: &models.Wallet{ActorID: "cust-1", Address: "ADDR1"}},
		balances: &fakeBalances{balance: 250000},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/profile", nil, "cust-1", "customer")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ADDR1", data["address"])
	assert.Equal(t, float64(250000), data["balance"])
}

func TestProfile_NoWallet(t *testing.T) {
	s := newTestServer(t, serverOverrides{
		wallets: &fakeWalletStore{err: errors.NewNotFoundError("no wallet")},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/profile", nil, "cust-1", "customer")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
