package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"campus-eats/internal/idempotency"
	"campus-eats/internal/logger"
	"campus-eats/internal/order"
	"campus-eats/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxBodyBytes         = 1 << 20
	idempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

type OrderHandler struct {
	OrderSvc order.Service
	Guard    *idempotency.Guard
}

func NewOrderHandler(svc order.Service, guard *idempotency.Guard) *OrderHandler {
	return &OrderHandler{OrderSvc: svc, Guard: guard}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.FromCtx(r.Context()).Debug("invalid request body", zap.Error(err))
		utils.WriteJSONError(w, http.StatusBadRequest, "validation_failed", "Invalid request body")
		return false
	}
	return true
}

// Create places an order. With an Idempotency-Key header a retried request
// returns the order created by the first one instead of placing another.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input order.CreateOrderInput
	if !decodeBody(w, r, &input) {
		return
	}

	p := principalFrom(r)
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		utils.WriteJSONError(w, http.StatusBadRequest, "validation_failed", "Idempotency-Key is too long")
		return
	}

	var created *order.Order
	id, replayed, err := h.Guard.Do(r.Context(), p.UserID, key, func() (string, error) {
		o, err := h.OrderSvc.CreateOrder(r.Context(), p, input)
		if err != nil {
			return "", err
		}
		created = o
		return o.ID, nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if replayed {
		o, err := h.OrderSvc.GetOrder(r.Context(), p, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, order.ToOrderResponse(o))
		return
	}

	writeJSON(w, http.StatusCreated, order.ToOrderResponse(created))
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderSvc.ListMyOrders(r.Context(), principalFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToOrderResponses(orders))
}

// ListAll is the admin listing: ?status=&page=&limit=.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := order.ListFilter{
		Page:     utils.ParsePositiveInt(q.Get("page"), 1),
		PageSize: utils.ParsePositiveInt(q.Get("limit"), order.DefaultPageSize),
	}
	if s := strings.ToLower(strings.TrimSpace(q.Get("status"))); s != "" && s != "all" {
		status := order.Status(s)
		filter.Status = &status
	}

	page, err := h.OrderSvc.ListOrders(r.Context(), principalFrom(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToOrderPageResponse(page))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.OrderSvc.GetOrder(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToOrderResponse(o))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target := order.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	o, err := h.OrderSvc.UpdateOrderStatus(r.Context(), principalFrom(r), chi.URLParam(r, "id"), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToOrderResponse(o))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.OrderSvc.CancelOrder(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToOrderResponse(o))
}

func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.OrderSvc.Statistics(r.Context(), principalFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToStatsResponse(stats))
}
