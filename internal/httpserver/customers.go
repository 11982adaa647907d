package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	customersvc "storefront/internal/service/customer"
)

func (h *handlers) registerCustomer(c *gin.Context) {
	var req customersvc.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cust, err := h.CustomerSvc.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}

func (h *handlers) me(c *gin.Context) {
	cust, err := h.CustomerSvc.Get(c.Request.Context(), identity(c).UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}
