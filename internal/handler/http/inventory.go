package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/service"
	apperrors "github.com/utafrali/inventory-es/pkg/errors"
	"github.com/utafrali/inventory-es/pkg/httputil"
	"github.com/utafrali/inventory-es/pkg/validator"
)

const (
	// maxBodyBytes caps request bodies at 1 MiB.
	maxBodyBytes = 1 << 20

	// defaultReservationTTLMinutes applies when the reserve request omits
	// ttl_minutes.
	defaultReservationTTLMinutes = 30
)

// InventoryHandler serves the inventory command and query endpoints.
type InventoryHandler struct {
	service *service.Service
	logger  *slog.Logger
}

// NewInventoryHandler creates the handler.
func NewInventoryHandler(svc *service.Service, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{service: svc, logger: logger}
}

// decode reads and validates the JSON body. A body that fails to parse is a
// 400; a parsed body that fails validation is a 422.
func (h *InventoryHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("malformed JSON body"), h.logger)
		return false
	}
	if err := validator.Validate(dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

// AddStockRequest is the POST /inventory/stock body.
type AddStockRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	StoreID   string `json:"store_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required,min=1,max=255"`
}

// AddStock handles POST /api/v1/inventory/stock.
func (h *InventoryHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req AddStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.AddStock(r.Context(),
		uuid.MustParse(req.ProductID), uuid.MustParse(req.StoreID), req.Quantity, req.Reason)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// ReserveStockRequest is the POST /inventory/reserve body. TTLMinutes is
// optional and defaults to 30.
type ReserveStockRequest struct {
	ProductID  string `json:"product_id" validate:"required,uuid"`
	StoreID    string `json:"store_id" validate:"required,uuid"`
	CustomerID string `json:"customer_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	TTLMinutes *int   `json:"ttl_minutes" validate:"omitempty,gte=1,lte=1440"`
}

// ReserveStock handles POST /api/v1/inventory/reserve.
func (h *InventoryHandler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	var req ReserveStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	ttlMinutes := defaultReservationTTLMinutes
	if req.TTLMinutes != nil {
		ttlMinutes = *req.TTLMinutes
	}

	result, err := h.service.ReserveStock(r.Context(),
		uuid.MustParse(req.ProductID), uuid.MustParse(req.StoreID), uuid.MustParse(req.CustomerID),
		req.Quantity, time.Duration(ttlMinutes)*time.Minute)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// CommitReservationRequest is the POST /inventory/commit body.
type CommitReservationRequest struct {
	ProductID     string `json:"product_id" validate:"required,uuid"`
	StoreID       string `json:"store_id" validate:"required,uuid"`
	ReservationID string `json:"reservation_id" validate:"required,uuid"`
	OrderID       string `json:"order_id" validate:"required,uuid"`
}

// CommitReservation handles POST /api/v1/inventory/commit.
func (h *InventoryHandler) CommitReservation(w http.ResponseWriter, r *http.Request) {
	var req CommitReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.CommitReservation(r.Context(),
		uuid.MustParse(req.ProductID), uuid.MustParse(req.StoreID),
		uuid.MustParse(req.ReservationID), uuid.MustParse(req.OrderID))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ReleaseReservationRequest is the POST /inventory/release body.
type ReleaseReservationRequest struct {
	ProductID     string `json:"product_id" validate:"required,uuid"`
	StoreID       string `json:"store_id" validate:"required,uuid"`
	ReservationID string `json:"reservation_id" validate:"required,uuid"`
	Reason        string `json:"reason" validate:"required,min=1,max=255"`
}

// ReleaseReservation handles POST /api/v1/inventory/release.
func (h *InventoryHandler) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	var req ReleaseReservationRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.ReleaseReservation(r.Context(),
		uuid.MustParse(req.ProductID), uuid.MustParse(req.StoreID),
		uuid.MustParse(req.ReservationID), req.Reason)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// AdjustStockRequest is the POST /inventory/adjust body. NewQuantity is a
// pointer so an explicit zero passes "required".
type AdjustStockRequest struct {
	ProductID   string `json:"product_id" validate:"required,uuid"`
	StoreID     string `json:"store_id" validate:"required,uuid"`
	NewQuantity *int   `json:"new_quantity" validate:"required,gte=0"`
	Reason      string `json:"reason" validate:"omitempty,max=255"`
}

// AdjustStock handles POST /api/v1/inventory/adjust.
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.AdjustStock(r.Context(),
		uuid.MustParse(req.ProductID), uuid.MustParse(req.StoreID), *req.NewQuantity, req.Reason)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// CheckAvailabilityRequest is the POST /inventory/availability body.
type CheckAvailabilityRequest struct {
	ProductID        string `json:"product_id" validate:"required,uuid"`
	StoreID          string `json:"store_id" validate:"required,uuid"`
	RequiredQuantity int    `json:"required_quantity" validate:"required,gt=0"`
}

// CheckAvailability handles POST /api/v1/inventory/availability.
func (h *InventoryHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req CheckAvailabilityRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.CheckAvailability(r.Context(),
		uuid.MustParse(req.ProductID), uuid.MustParse(req.StoreID), req.RequiredQuantity)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetStock handles GET /api/v1/inventory/products/{productID}/stores/{storeID}.
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productID"))
	if !ok {
		return
	}
	storeID, ok := httputil.ParseUUID(w, chi.URLParam(r, "storeID"))
	if !ok {
		return
	}

	record, err := h.service.GetStock(r.Context(), productID, storeID)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
}

// GetProductInventory handles GET /api/v1/inventory/products/{productID}.
// A product with no stock anywhere is a 404.
func (h *InventoryHandler) GetProductInventory(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	records, err := h.service.GetProductInventory(r.Context(), productID)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	if len(records) == 0 {
		httputil.WriteError(w, r, apperrors.NotFound("product inventory", productID.String()), h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: records})
}

// RebuildProjection handles POST /api/v1/inventory/rebuild. Administrative
// repair: replays every aggregate into the read model.
func (h *InventoryHandler) RebuildProjection(w http.ResponseWriter, r *http.Request) {
	rebuilt, err := h.service.RebuildProjection(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]int{"aggregates_rebuilt": rebuilt},
	})
}
