package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

type cartResponse struct {
	*domain.Cart
	Subtotal decimal.Decimal `json:"subtotal"`
}

func toCartResponse(cart *domain.Cart) cartResponse {
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return cartResponse{Cart: cart, Subtotal: cart.Subtotal().Round(2)}
}

type updateLineRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.CartSvc.GetLines(c.Request.Context(), identity(c).UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) addCartLine(c *gin.Context) {
	var req cartsvc.AddLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.CartSvc.AddLine(c.Request.Context(), identity(c).UserID, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) updateCartLine(c *gin.Context) {
	lineID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cart, err := h.CartSvc.UpdateLineQty(c.Request.Context(), identity(c).UserID, lineID, req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) removeCartLine(c *gin.Context) {
	lineID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cart, err := h.CartSvc.RemoveLine(c.Request.Context(), identity(c).UserID, lineID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.CartSvc.Clear(c.Request.Context(), identity(c).UserID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
