package httpserver

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	maxWebhookBody  = 64 << 10
	signatureHeader = "Stripe-Signature"
)

// paymentWebhook answers 404 for unknown transactions so the processor
// redelivers once the order commits.
func (h *handlers) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	if len(payload) > maxWebhookBody {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
		return
	}
	res, err := h.PaymentSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
