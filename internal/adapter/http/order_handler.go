package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

type OrderHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	StoreID       int                `json:"store_id"`
	PickupDate    string             `json:"pickup_date"`
	PickupTime    string             `json:"pickup_time,omitempty"`
	Items         []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID  int     `json:"product_id"`
	CategoryID *int    `json:"category_id,omitempty"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

type CreateOrderResponse struct {
	OrderNumber string  `json:"order_number"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	PickupDate  string  `json:"pickup_date"`
	PickupTime  string  `json:"pickup_time,omitempty"`
}

type TransitionRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

type BulkTransitionRequest struct {
	OrderIDs      []int   `json:"order_ids"`
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateOrder handles POST /orders.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]interfaces.CreateOrderItemCommand, len(req.Items))
	for i, item := range req.Items {
		items[i] = interfaces.CreateOrderItemCommand{
			ProductID:  item.ProductID,
			CategoryID: item.CategoryID,
			Name:       strings.TrimSpace(item.Name),
			Quantity:   item.Quantity,
			Price:      item.Price,
		}
	}

	cmd := interfaces.CreateOrderCommand{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		StoreID:       req.StoreID,
		PickupDate:    req.PickupDate,
		PickupTime:    req.PickupTime,
		Items:         items,
	}

	order, err := h.service.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", "", nil, err)
		h.respondServiceError(w, err)
		return
	}

	resp := CreateOrderResponse{
		OrderNumber: order.Number,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		PickupDate:  string(domain.NewDateKey(order.PickupDate)),
		PickupTime:  order.PickupTime,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// HandleOrders routes GET /orders/{number}/history.
func (h *OrderHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 3 && parts[2] == "history" {
		h.getStatusHistory(w, r, parts[1])
		return
	}
	http.Error(w, "Not found", http.StatusNotFound)
}

func (h *OrderHandler) getStatusHistory(w http.ResponseWriter, r *http.Request, orderNumber string) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	history, err := h.service.GetStatusHistory(r.Context(), orderNumber)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	resp := make([]map[string]interface{}, len(history))
	for i, event := range history {
		resp[i] = map[string]interface{}{
			"status":     event.Status,
			"created_by": event.CreatedBy,
			"note":       event.Note,
			"created_at": event.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleAdminOrders routes the back-office transition endpoints:
// POST /admin/orders/status (bulk) and POST /admin/orders/{id}/status.
func (h *OrderHandler) HandleAdminOrders(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 3 && parts[2] == "status":
		h.bulkTransition(w, r)
	case len(parts) == 4 && parts[3] == "status":
		h.singleTransition(w, r, parts[2])
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *OrderHandler) singleTransition(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID, err := strconv.Atoi(rawID)
	if err != nil {
		h.respondError(w, "Invalid order id", http.StatusBadRequest)
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd := interfaces.TransitionCommand{
		OrderID:   orderID,
		NewStatus: domain.OrderStatus(req.Status),
		Note:      req.Note,
		Actor:     ActorFromContext(r.Context()),
	}

	order, err := h.service.ApplyStatusTransition(r.Context(), cmd)
	if err != nil {
		h.logger.Error("transition_failed", "Status transition failed", "", map[string]interface{}{
			"order_id":   orderID,
			"new_status": req.Status,
		}, err)
		h.respondServiceError(w, err)
		return
	}

	resp := map[string]interface{}{
		"order_number":   order.Number,
		"order_status":   order.Status,
		"payment_status": order.PaymentStatus,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *OrderHandler) bulkTransition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BulkTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd := interfaces.BulkTransitionCommand{
		OrderIDs: req.OrderIDs,
		Actor:    ActorFromContext(r.Context()),
	}
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		cmd.NewStatus = &status
	}
	if req.PaymentStatus != nil {
		paymentStatus := domain.PaymentStatus(*req.PaymentStatus)
		cmd.NewPaymentStatus = &paymentStatus
	}

	result, err := h.service.ApplyBulkStatusTransition(r.Context(), cmd)
	if err != nil {
		h.logger.Error("bulk_transition_failed", "Bulk status transition failed", "", map[string]interface{}{
			"order_ids": req.OrderIDs,
		}, err)
		h.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"updated_count": result.UpdatedCount})
}

func (h *OrderHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrForbidden):
		h.respondError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrOrderNotFound):
		h.respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidStatusTransition), errors.Is(err, domain.ErrVersionConflict):
		h.respondError(w, err.Error(), http.StatusConflict)
	default:
		h.respondError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *OrderHandler) respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
