package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"
)

type paymentIntentRequest struct {
	PromotionCode string `json:"promotionCode"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *handlers) createPaymentIntent(c *gin.Context) {
	var req paymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}
	intent, err := h.OrderSvc.CreatePaymentIntent(c.Request.Context(), identity(c).UserID, req.PromotionCode)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *handlers) placeOrder(c *gin.Context) {
	var req ordersvc.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.UserID = identity(c).UserID
	o, err := h.OrderSvc.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	orders, err := h.OrderSvc.ListByUser(c.Request.Context(), identity(c).UserID, limit, offset)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"results": orders, "limit": limit, "offset": offset})
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.OrderSvc.Get(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) transitionOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	o, err := h.OrderSvc.TransitionStatus(c.Request.Context(), id, req.Status, identity(c).Actor())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
