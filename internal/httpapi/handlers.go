package httpapi

import (
	"errors"
	"net/http"

	"inventoryservice/internal/broker"
	"inventoryservice/internal/inventory"
	"inventoryservice/internal/platform/observability"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the inventory endpoints.
type Handler struct {
	inventory   inventory.Service
	brokerState func() string
	logger      observability.Logger
}

type reserveRequest struct {
	Item     *string             `json:"item"`
	Quantity *inventory.Quantity `json:"quantity"`
}

type stockResponse struct {
	Item  string `json:"item"`
	Stock int64  `json:"stock"`
}

func (h *Handler) getInventory(c *gin.Context) {
	item := c.Param("item")

	stock, err := h.inventory.Stock(c.Request.Context(), item)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockResponse{Item: item, Stock: stock})
}

func (h *Handler) reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Item == nil || req.Quantity == nil {
		writeJSONError(c, http.StatusBadRequest, "item and quantity required", "")
		return
	}

	result, err := h.inventory.Reserve(c.Request.Context(), *req.Item, int64(*req.Quantity))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) health(c *gin.Context) {
	state := "unknown"
	if h.brokerState != nil {
		state = h.brokerState()
	}
	// A failed broker never recovers without a restart.
	if state == broker.Failed.String() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "broker": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "broker": state})
}

// writeServiceError maps service errors to statuses. Store failures are
// already logged with their cause by the service; clients get a generic body.
func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidReservation):
		writeJSONError(c, http.StatusBadRequest, "invalid reservation", err.Error())
	case errors.Is(err, inventory.ErrStoreUnavailable):
		writeJSONError(c, http.StatusInternalServerError, "store unavailable", "")
	default:
		h.logger.Error("Unexpected service error",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", RequestIDFromContext(c)),
			zap.Error(err),
		)
		writeJSONError(c, http.StatusInternalServerError, "internal error", "")
	}
}
