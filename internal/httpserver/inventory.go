package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	inventorysvc "storefront/internal/service/inventory"
)

func (h *handlers) applyMovement(c *gin.Context) {
	variantID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req inventorysvc.MovementInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.VariantID = variantID
	req.Actor = identity(c).Actor()
	res, err := h.InventorySvc.ApplyMovement(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) listMovements(c *gin.Context) {
	variantID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	movements, err := h.InventorySvc.ListMovements(c.Request.Context(), variantID, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": movements})
}

func (h *handlers) getStock(c *gin.Context) {
	variantID, ok := pathID(c, "id")
	if !ok {
		return
	}
	qty, err := h.InventorySvc.GetStock(c.Request.Context(), variantID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variantId": variantID, "quantityInStock": qty})
}
