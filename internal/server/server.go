package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/berryshop/internal/audit"
	"gitlab.ozon.dev/qwestard/berryshop/internal/config"
	"gitlab.ozon.dev/qwestard/berryshop/internal/middleware"
	"gitlab.ozon.dev/qwestard/berryshop/internal/models"
	"gitlab.ozon.dev/qwestard/berryshop/internal/repository"
	"gitlab.ozon.dev/qwestard/berryshop/internal/service"
)

type Server struct {
	svc       *service.Service
	auditPool *audit.AuditWorkerPool
	user      string
	password  string
	addr      string
}

func NewServer(svc *service.Service, auditPool *audit.AuditWorkerPool, cfg *config.Config) *Server {
	return &Server{
		svc:       svc,
		auditPool: auditPool,
		user:      cfg.Username,
		password:  cfg.Password,
		addr:      cfg.Addr(),
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mutating := []string{"POST", "PUT", "DELETE"}

	s.handleWith(mux, "/users", s.handleUsers, mutating, mutating)
	s.handleWith(mux, "/users/", s.handleUserOne, mutating, mutating)

	s.handleWith(mux, "/products", s.handleProducts, mutating, mutating)
	s.handleWith(mux, "/products/", s.handleProductOne, mutating, mutating)

	s.handleWith(mux, "/orders", s.handleOrders, mutating, mutating)
	s.handleWith(mux, "/orders/", s.handleOrderOne, mutating, mutating)
	s.handleWith(mux, "/orders-transition/", s.handleTransition, []string{"PUT"}, []string{"PUT"})
	s.handleWith(mux, "/orders-cancel/", s.handleCancel, []string{"PUT"}, []string{"PUT"})
	s.handleWith(mux, "/orders-claim/", s.handleClaim, []string{"PUT"}, []string{"PUT"})
	mux.HandleFunc("/orders-lines/", s.handleOrderLines)
	mux.HandleFunc("/orders-total/", s.handleOrderTotal)
	mux.HandleFunc("/orders-payments/", s.handleOrderPayments)
	mux.HandleFunc("/orders-history", s.handleOrderHistory)
	mux.HandleFunc("/orders-count", s.handleOrderCount)

	s.handleWith(mux, "/payments", s.handlePayments, []string{"POST"}, []string{"POST"})
	s.handleWith(mux, "/payments/", s.handlePaymentOne, mutating, mutating)
	s.handleWith(mux, "/payments-settle/", s.handleSettle, []string{"PUT"}, []string{"PUT"})

	s.handleWith(mux, "/warehouses", s.handleWarehouses, mutating, mutating)
	s.handleWith(mux, "/warehouses/", s.handleWarehouseOne, mutating, mutating)
	s.handleWith(mux, "/warehouses-default/", s.handleSetDefaultWarehouse, []string{"PUT"}, []string{"PUT"})
	s.handleWith(mux, "/warehouses-location/", s.handleWarehouseLocation, []string{"PUT"}, []string{"PUT"})
	s.handleWith(mux, "/warehouses-active/", s.handleWarehouseActive, []string{"PUT"}, []string{"PUT"})
	mux.HandleFunc("/warehouses-default", s.handleGetDefaultWarehouse)
}

func (s *Server) Run() error {
	mux := http.NewServeMux()

	s.RegisterRoutes(mux)

	log.Printf("Server listen on %s...", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *Server) handleWith(mux *http.ServeMux, path string,
	handlerFunc http.HandlerFunc,
	logMethods []string, authMethods []string,
) {
	finalHandler := middleware.LogMiddleware(s.auditPool, logMethods...)(
		middleware.BasicAuthMiddleware(s.user, s.password, authMethods...)(
			handlerFunc,
		),
	)
	mux.Handle(path, finalHandler)
}

// --- Пользователи ---

type createUserRequest struct {
	ExternalID int64 `json:"external_id"`
}

type profileRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Username  string `json:"username,omitempty"`
	Address   string `json:"address,omitempty"`
	Porch     string `json:"porch,omitempty"`
	Floor     string `json:"floor,omitempty"`
	Apartment string `json:"apartment,omitempty"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		user, err := s.svc.RegisterUser(r.Context(), req.ExternalID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	case http.MethodGet:
		externalID, err := strconv.ParseInt(r.URL.Query().Get("external"), 10, 64)
		if err != nil {
			http.Error(w, "missing external", http.StatusBadRequest)
			return
		}
		user, err := s.svc.GetUserByExternalID(r.Context(), externalID)
		if err != nil {
			writeError(w, err)
			return
		}
		if user == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUserOne(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	idStr, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "bad user ID", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		u, err := s.svc.GetUser(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if u == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case sub == "" && r.Method == http.MethodDelete:
		if err := s.svc.DeleteUser(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case sub == "address" && r.Method == http.MethodPut:
		var req struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		if err := s.svc.UpdateAddress(r.Context(), id, req.Address); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case sub == "bonuses" && r.Method == http.MethodGet:
		bonus, err := s.svc.Bonuses(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"bonus": bonus})
	case sub == "bonuses" && r.Method == http.MethodPut:
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		if err := s.svc.AddBonuses(r.Context(), id, req.Amount); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case sub == "profile" && r.Method == http.MethodPut:
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		p := &models.BuyerProfile{
			UserID:    id,
			Name:      req.Name,
			Phone:     req.Phone,
			Username:  nullString(req.Username),
			Address:   nullString(req.Address),
			Porch:     nullString(req.Porch),
			Floor:     nullString(req.Floor),
			Apartment: nullString(req.Apartment),
		}
		if err := s.svc.UpsertProfile(r.Context(), p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case sub == "profile" && r.Method == http.MethodGet:
		p, err := s.svc.Profile(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if p == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Каталог ---

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var p models.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		id, err := s.svc.CreateProduct(r.Context(), &p)
		if err != nil {
			writeError(w, err)
			return
		}
		p.ID = id
		writeJSON(w, http.StatusCreated, p)
	case http.MethodGet:
		products, err := s.svc.ListProducts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProductOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/products/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.svc.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if p == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var p models.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		p.ID = id
		if err := s.svc.UpdateProduct(r.Context(), &p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.svc.DeleteProduct(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Заказы ---

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req repository.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		order, err := s.svc.CreateOrder(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	case http.MethodGet:
		q := r.URL.Query()
		if statusStr := q.Get("status"); statusStr != "" {
			status := models.OrderStatus(statusStr)
			if !status.Valid() {
				http.Error(w, "bad status", http.StatusBadRequest)
				return
			}
			limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
			orders, err := s.svc.ListOrdersByStatus(r.Context(), status, limit)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, orders)
			return
		}
		buyerID, err := strconv.ParseInt(q.Get("buyer"), 10, 64)
		if err != nil {
			http.Error(w, "missing buyer", http.StatusBadRequest)
			return
		}
		finished := q.Get("finished") == "true"
		orders, err := s.svc.ListOrdersByBuyer(r.Context(), buyerID, finished)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleOrderOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r, "/orders/")
	if !ok {
		return
	}
	order, err := s.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type transitionRequest struct {
	Status models.OrderStatus `json:"status"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/orders-transition/")
	if !ok {
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	order, err := s.svc.TransitionOrder(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/orders-cancel/")
	if !ok {
		return
	}
	order, err := s.svc.CancelOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type claimRequest struct {
	ClaimID string `json:"claim_id"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/orders-claim/")
	if !ok {
		return
	}
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if req.ClaimID == "" {
		http.Error(w, "missing claim ID", http.StatusBadRequest)
		return
	}
	if err := s.svc.SetOrderClaim(r.Context(), id, req.ClaimID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOrderLines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r, "/orders-lines/")
	if !ok {
		return
	}
	lines, err := s.svc.OrderLines(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handleOrderTotal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r, "/orders-total/")
	if !ok {
		return
	}
	total, err := s.svc.OrderTotal(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total": total})
}

func (s *Server) handleOrderPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r, "/orders-payments/")
	if !ok {
		return
	}
	payments, err := s.svc.ListPaymentsByOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ListHistoryOrders())
}

func (s *Server) handleOrderCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	buyerID, err := strconv.ParseInt(r.URL.Query().Get("buyer"), 10, 64)
	if err != nil {
		http.Error(w, "missing buyer", http.StatusBadRequest)
		return
	}
	count, err := s.svc.CountActiveOrders(r.Context(), buyerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// --- Платежи ---

type paymentRequest struct {
	UserID    int64           `json:"user_id"`
	OrderID   *int64          `json:"order_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	GatewayID string          `json:"gateway_id"`
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	var orderID sql.NullInt64
	if req.OrderID != nil {
		orderID = sql.NullInt64{Int64: *req.OrderID, Valid: true}
	}
	payment, err := s.svc.RecordPayment(r.Context(), req.UserID, orderID, req.Amount, req.GatewayID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handlePaymentOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	gatewayID := strings.TrimPrefix(r.URL.Path, "/payments/")
	if gatewayID == "" {
		http.Error(w, "missing gateway ID", http.StatusBadRequest)
		return
	}
	payment, err := s.svc.GetPayment(r.Context(), gatewayID)
	if err != nil {
		writeError(w, err)
		return
	}
	if payment == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

type settleRequest struct {
	Status models.PaymentStatus `json:"status"`
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	gatewayID := strings.TrimPrefix(r.URL.Path, "/payments-settle/")
	if gatewayID == "" {
		http.Error(w, "missing gateway ID", http.StatusBadRequest)
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	payment, err := s.svc.SettlePayment(r.Context(), gatewayID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// --- Склады ---

func (s *Server) handleWarehouses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var wh models.Warehouse
		if err := json.NewDecoder(r.Body).Decode(&wh); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		id, err := s.svc.CreateWarehouse(r.Context(), &wh)
		if err != nil {
			writeError(w, err)
			return
		}
		wh.ID = id
		writeJSON(w, http.StatusCreated, wh)
	case http.MethodGet:
		warehouses, err := s.svc.ListWarehouses(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, warehouses)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWarehouseOne: GET возвращает склад, PUT точечно обновляет одно
// текстовое поле (белый список полей проверяется в репозитории).
func (s *Server) handleWarehouseOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/warehouses/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		wh, err := s.svc.GetWarehouse(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if wh == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, wh)
	case http.MethodPut:
		var req struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		if err := s.svc.UpdateWarehouseField(r.Context(), id, req.Field, req.Value); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWarehouseLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/warehouses-location/")
	if !ok {
		return
	}
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if err := s.svc.UpdateWarehouseLocation(r.Context(), id, req.Latitude, req.Longitude); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWarehouseActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/warehouses-active/")
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if err := s.svc.SetWarehouseActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSetDefaultWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/warehouses-default/")
	if !ok {
		return
	}
	if err := s.svc.SetDefaultWarehouse(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetDefaultWarehouse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	wh, err := s.svc.DefaultWarehouse(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if wh == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// --- Вспомогательное ---

func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	idStr := strings.TrimPrefix(r.URL.Path, prefix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "bad ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// writeError переводит типизированные ошибки слоя хранения в HTTP-статусы.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFromError(err))
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, repository.ErrUnknownUser),
		errors.Is(err, repository.ErrUnknownProduct),
		errors.Is(err, repository.ErrUnknownOrder),
		errors.Is(err, repository.ErrUnknownPayment),
		errors.Is(err, repository.ErrUnknownWarehouse):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateExternalID),
		errors.Is(err, repository.ErrDuplicateGatewayID),
		errors.Is(err, repository.ErrReferencedByOrder),
		errors.Is(err, repository.ErrIllegalTransition),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, repository.ErrEmptyCart),
		errors.Is(err, repository.ErrInvalidQuantity),
		errors.Is(err, repository.ErrInvalidConstraint):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
