package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listVariants(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	variants, err := h.CatalogSvc.ListVariants(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": variants, "limit": limit, "offset": offset})
}

func (h *handlers) getVariant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.CatalogSvc.GetVariant(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.CatalogSvc.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": cats})
}
