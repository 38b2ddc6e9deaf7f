package server_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/qwestard/berryshop/internal/audit"
	"gitlab.ozon.dev/qwestard/berryshop/internal/config"
	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
	"gitlab.ozon.dev/qwestard/berryshop/internal/repository"
	"gitlab.ozon.dev/qwestard/berryshop/internal/server"
	"gitlab.ozon.dev/qwestard/berryshop/internal/service"
)

const (
	testUser = "admin"
	testPass = "secret"
)

// --- Фейковые репозитории для HTTP-тестов ---

type fakeUsers struct {
	repository.Users
	nextID     int64
	byExternal map[int64]*models.User
	addresses  map[int64]string
	bonuses    map[int64]int64
}

func (f *fakeUsers) Create(_ context.Context, externalID int64) (*models.User, error) {
	if _, ok := f.byExternal[externalID]; ok {
		return nil, repository.ErrDuplicateExternalID
	}
	f.nextID++
	u := &models.User{ID: f.nextID, ExternalID: externalID}
	f.byExternal[externalID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range f.byExternal {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByExternalID(_ context.Context, externalID int64) (*models.User, error) {
	u, ok := f.byExternal[externalID]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUsers) Bonuses(_ context.Context, userID int64) (int64, error) {
	return f.bonuses[userID], nil
}

func (f *fakeUsers) AddBonuses(_ context.Context, userID int64, amount int64) error {
	for _, u := range f.byExternal {
		if u.ID == userID {
			f.bonuses[userID] += amount
			return nil
		}
	}
	return repository.ErrUnknownUser
}

func (f *fakeUsers) UpdateAddress(_ context.Context, userID int64, address string) error {
	for _, u := range f.byExternal {
		if u.ID == userID {
			f.addresses[userID] = address
			return nil
		}
	}
	return repository.ErrUnknownUser
}

type fakeOrders struct {
	repository.Orders
	nextID int64
	byID   map[int64]*models.Order
}

func (f *fakeOrders) Create(_ context.Context, req repository.CreateOrderRequest) (int64, error) {
	if len(req.Items) == 0 {
		return 0, repository.ErrEmptyCart
	}
	f.nextID++
	f.byID[f.nextID] = &models.Order{
		ID:          f.nextID,
		BuyerID:     req.BuyerID,
		Status:      models.OrderStatusWaiting,
		DeliveryWay: req.DeliveryWay,
	}
	return f.nextID, nil
}

func (f *fakeOrders) Transition(_ context.Context, orderID int64, next models.OrderStatus) error {
	o, ok := f.byID[orderID]
	if !ok {
		return repository.ErrUnknownOrder
	}
	if !o.Status.CanTransitionTo(next) {
		return repository.ErrIllegalTransition
	}
	o.Status = next
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListByStatus(_ context.Context, status models.OrderStatus, _ int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.byID {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) List(_ context.Context, _ int64, _ int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.byID {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrders) CountActive(_ context.Context, buyerID int64) (int64, error) {
	var n int64
	for _, o := range f.byID {
		if o.BuyerID == buyerID && o.Active() {
			n++
		}
	}
	return n, nil
}

func (f *fakeOrders) Lines(_ context.Context, orderID int64) ([]models.OrderLine, error) {
	if _, ok := f.byID[orderID]; !ok {
		return nil, nil
	}
	return []models.OrderLine{{Title: "Strawberry box", Price: 900, Qty: 2}}, nil
}

func (f *fakeOrders) TotalSum(_ context.Context, orderID int64) (int64, error) {
	if _, ok := f.byID[orderID]; !ok {
		return 0, nil
	}
	return 1800, nil
}

func (f *fakeOrders) SetClaim(_ context.Context, orderID int64, claimID string) error {
	o, ok := f.byID[orderID]
	if !ok {
		return repository.ErrUnknownOrder
	}
	o.ClaimID = sql.NullString{String: claimID, Valid: true}
	return nil
}

type fakePayments struct {
	repository.Payments
	byGateway map[string]*models.Payment
}

func (f *fakePayments) GetByGatewayID(_ context.Context, gatewayID string) (*models.Payment, error) {
	p, ok := f.byGateway[gatewayID]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (f *fakePayments) ListByOrder(_ context.Context, orderID int64) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range f.byGateway {
		if p.OrderID.Valid && p.OrderID.Int64 == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeWarehouses struct {
	repository.Warehouses
	byID map[int64]*models.Warehouse
}

func (f *fakeWarehouses) GetByID(_ context.Context, id int64) (*models.Warehouse, error) {
	w, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return w, nil
}

func (f *fakeWarehouses) UpdateLocation(_ context.Context, id int64, lat, lon float64) error {
	w, ok := f.byID[id]
	if !ok {
		return repository.ErrUnknownWarehouse
	}
	w.Latitude, w.Longitude = lat, lon
	return nil
}

func (f *fakeWarehouses) UpdateField(_ context.Context, id int64, field, value string) error {
	w, ok := f.byID[id]
	if !ok {
		return repository.ErrUnknownWarehouse
	}
	switch field {
	case "name":
		w.Name = value
	case "contact_name":
		w.ContactName = value
	default:
		return repository.ErrConstraintViolation
	}
	return nil
}

func (f *fakeWarehouses) SetActive(_ context.Context, id int64, active bool) error {
	w, ok := f.byID[id]
	if !ok {
		return repository.ErrUnknownWarehouse
	}
	w.IsActive = active
	return nil
}

type testServer struct {
	mux        *http.ServeMux
	svc        *service.Service
	users      *fakeUsers
	orders     *fakeOrders
	payments   *fakePayments
	warehouses *fakeWarehouses
}

func newTestServer() *testServer {
	users := &fakeUsers{
		byExternal: make(map[int64]*models.User),
		addresses:  make(map[int64]string),
		bonuses:    make(map[int64]int64),
	}
	orders := &fakeOrders{byID: make(map[int64]*models.Order)}
	payments := &fakePayments{byGateway: make(map[string]*models.Payment)}
	warehouses := &fakeWarehouses{byID: make(map[int64]*models.Warehouse)}

	svc := service.New(service.Deps{
		Users:      users,
		Orders:     orders,
		Payments:   payments,
		Warehouses: warehouses,
	})

	pool := audit.NewAuditWorkerPool(
		audit.AuditPoolConfig{BatchSize: 10, Timeout: time.Second, ChannelSize: 64},
	)

	srv := server.NewServer(svc, pool, &config.Config{
		Username: testUser,
		Password: testPass,
	})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	return &testServer{
		mux:        mux,
		svc:        svc,
		users:      users,
		orders:     orders,
		payments:   payments,
		warehouses: warehouses,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authorized {
		req.SetBasicAuth(testUser, testPass)
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/users", map[string]int64{"external_id": 1}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{"external_id":1}`))
	req.SetBasicAuth(testUser, "wrong")
	rec2 := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestCreateUser(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/users", map[string]int64{"external_id": 555}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var u models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	assert.EqualValues(t, 555, u.ExternalID)
	assert.NotZero(t, u.ID)

	rec = ts.do(t, http.MethodPost, "/users", map[string]int64{"external_id": 555}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	ts := newTestServer()

	body := repository.CreateOrderRequest{
		BuyerID:     1,
		DeliveryWay: models.DeliveryWayPickup,
		Items:       []repository.ItemRequest{{PositionID: 10, Qty: 1}},
	}
	rec := ts.do(t, http.MethodPost, "/orders", body, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.Equal(t, models.OrderStatusWaiting, order.Status)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	ts := newTestServer()

	body := repository.CreateOrderRequest{
		BuyerID:     1,
		DeliveryWay: models.DeliveryWayPickup,
	}
	rec := ts.do(t, http.MethodPost, "/orders", body, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/orders/999", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitionOrder(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 1, Status: models.OrderStatusWaiting}
	ts.orders.nextID = 1

	rec := ts.do(t, http.MethodPut, "/orders-transition/1", map[string]string{"status": "ready"}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.Equal(t, models.OrderStatusReady, order.Status)

	// finished из ready допустим, а повторный переход из терминального — нет
	rec = ts.do(t, http.MethodPut, "/orders-transition/1", map[string]string{"status": "finished"}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/orders-transition/1", map[string]string{"status": "cancelled"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransitionOrderIllegal(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 1, Status: models.OrderStatusWaiting}
	ts.orders.nextID = 1

	rec := ts.do(t, http.MethodPut, "/orders-transition/1", map[string]string{"status": "finished"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 1, Status: models.OrderStatusProcessing}
	ts.orders.nextID = 1

	rec := ts.do(t, http.MethodPut, "/orders-cancel/1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
}

func TestBadID(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/orders/abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBadJSON(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{`))
	req.SetBasicAuth(testUser, testPass)
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodPost, "/users", map[string]int64{"external_id": 321}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var u models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))

	rec = ts.do(t, http.MethodGet, "/users/1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	assert.EqualValues(t, 321, u.ExternalID)

	rec = ts.do(t, http.MethodGet, "/users/999", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUserByExternalID(t *testing.T) {
	ts := newTestServer()
	ts.do(t, http.MethodPost, "/users", map[string]int64{"external_id": 777}, true)

	rec := ts.do(t, http.MethodGet, "/users?external=777", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var u models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	assert.EqualValues(t, 777, u.ExternalID)

	rec = ts.do(t, http.MethodGet, "/users?external=778", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/users", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBonuses(t *testing.T) {
	ts := newTestServer()
	ts.do(t, http.MethodPost, "/users", map[string]int64{"external_id": 779}, true)

	rec := ts.do(t, http.MethodPut, "/users/1/bonuses", map[string]int64{"amount": 150}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/users/1/bonuses", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 150, resp["bonus"])

	rec = ts.do(t, http.MethodPut, "/users/999/bonuses", map[string]int64{"amount": 10}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAddress(t *testing.T) {
	ts := newTestServer()
	ts.do(t, http.MethodPost, "/users", map[string]int64{"external_id": 322}, true)

	rec := ts.do(t, http.MethodPut, "/users/1/address", map[string]string{"address": "Arbat 10"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Arbat 10", ts.users.addresses[1])

	rec = ts.do(t, http.MethodPut, "/users/999/address", map[string]string{"address": "Nowhere"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderLinesAndTotal(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 1, Status: models.OrderStatusWaiting}

	rec := ts.do(t, http.MethodGet, "/orders-lines/1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var lines []models.OrderLine
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "Strawberry box", lines[0].Title)

	rec = ts.do(t, http.MethodGet, "/orders-total/1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var total map[string]int64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&total))
	assert.EqualValues(t, 1800, total["total"])
}

func TestOrderClaim(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 1, Status: models.OrderStatusTransferring}

	rec := ts.do(t, http.MethodPut, "/orders-claim/1", map[string]string{"claim_id": "claim-7"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "claim-7", ts.orders.byID[1].ClaimID.String)

	rec = ts.do(t, http.MethodPut, "/orders-claim/1", map[string]string{"claim_id": ""}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/orders-claim/999", map[string]string{"claim_id": "claim-8"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderCount(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 5, Status: models.OrderStatusWaiting}
	ts.orders.byID[2] = &models.Order{ID: 2, BuyerID: 5, Status: models.OrderStatusFinished}

	rec := ts.do(t, http.MethodGet, "/orders-count?buyer=5", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var count map[string]int64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&count))
	assert.EqualValues(t, 1, count["count"])

	rec = ts.do(t, http.MethodGet, "/orders-count", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrdersByStatus(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 5, Status: models.OrderStatusProcessing}
	ts.orders.byID[2] = &models.Order{ID: 2, BuyerID: 6, Status: models.OrderStatusWaiting}

	rec := ts.do(t, http.MethodGet, "/orders?status=processing", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []models.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.EqualValues(t, 1, orders[0].ID)

	rec = ts.do(t, http.MethodGet, "/orders?status=bogus", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHistory(t *testing.T) {
	ts := newTestServer()
	ts.orders.byID[1] = &models.Order{ID: 1, BuyerID: 5, Status: models.OrderStatusCancelled}
	ts.orders.byID[2] = &models.Order{ID: 2, BuyerID: 5, Status: models.OrderStatusWaiting}

	require.NoError(t, ts.svc.RefreshHistoryOrders(context.Background()))

	rec := ts.do(t, http.MethodGet, "/orders-history", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []models.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.EqualValues(t, 1, orders[0].ID)
}

func TestGetPayment(t *testing.T) {
	ts := newTestServer()
	ts.payments.byGateway["gw-1"] = &models.Payment{
		ID: 1, UserID: 5, GatewayID: "gw-1", Status: models.PaymentStatusPending,
	}

	rec := ts.do(t, http.MethodGet, "/payments/gw-1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var p models.Payment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "gw-1", p.GatewayID)

	rec = ts.do(t, http.MethodGet, "/payments/gw-missing", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderPayments(t *testing.T) {
	ts := newTestServer()
	ts.payments.byGateway["gw-1"] = &models.Payment{
		ID: 1, UserID: 5, OrderID: sql.NullInt64{Int64: 3, Valid: true},
		GatewayID: "gw-1", Status: models.PaymentStatusPending,
	}

	rec := ts.do(t, http.MethodGet, "/orders-payments/3", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Payment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)
}

func TestWarehouseUpdates(t *testing.T) {
	ts := newTestServer()
	ts.warehouses.byID[1] = &models.Warehouse{
		ID: 1, Name: "Main", ContactName: "Olga", IsActive: true,
	}

	rec := ts.do(t, http.MethodGet, "/warehouses/1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/warehouses-location/1",
		map[string]float64{"latitude": 56.01, "longitude": 38.02}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 56.01, ts.warehouses.byID[1].Latitude)

	rec = ts.do(t, http.MethodPut, "/warehouses/1",
		map[string]string{"field": "contact_name", "value": "Petr"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Petr", ts.warehouses.byID[1].ContactName)

	rec = ts.do(t, http.MethodPut, "/warehouses/1",
		map[string]string{"field": "is_default", "value": "true"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPut, "/warehouses-active/1",
		map[string]bool{"active": false}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.warehouses.byID[1].IsActive)

	rec = ts.do(t, http.MethodGet, "/warehouses/999", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
