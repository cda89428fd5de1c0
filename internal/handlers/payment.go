// internal/handlers/payment.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

// maxWebhookBody matches the payload ceiling Stripe documents for webhooks.
const maxWebhookBody = int64(65536)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /webhooks/stripe
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid), err.Error())
		return
	}

	event, err := h.paymentService.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	// Non-2xx makes Stripe redeliver the event.
	if err := h.paymentService.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentWebhookProcessed),
	})
}

// GET /brand/subscriptions
func (h *PaymentHandler) ListSubscriptions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	subs, err := h.paymentService.ListSubscriptions(c.Request.Context(), actor)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, subs)
}
