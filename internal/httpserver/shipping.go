package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	shippingsvc "storefront/internal/service/shipping"
)

func (h *handlers) shippingQuote(c *gin.Context) {
	req := shippingsvc.QuoteRequest{
		FromPostcode: c.Query("from"),
		ToPostcode:   c.Query("to"),
	}
	if req.ToPostcode == "" {
		badRequest(c, "to postcode required")
		return
	}
	for name, dst := range map[string]*int64{
		"weightGrams": &req.WeightGrams,
		"length":      &req.LengthCM,
		"width":       &req.WidthCM,
		"height":      &req.HeightCM,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			badRequest(c, name+" must be a non-negative integer")
			return
		}
		*dst = v
	}
	c.JSON(http.StatusOK, h.ShippingSvc.Quote(c.Request.Context(), req))
}

func (h *handlers) validateAddress(c *gin.Context) {
	postcode, country := c.Query("postcode"), c.Query("country")
	if postcode == "" || country == "" {
		badRequest(c, "postcode and country required")
		return
	}
	c.JSON(http.StatusOK, h.ShippingSvc.ValidateAddress(c.Request.Context(), postcode, country))
}
