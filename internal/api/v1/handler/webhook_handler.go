package handler

import (
	"errors"
	"io"
	"net/http"

	"studiovault/internal/api/v1/dto"
	"studiovault/internal/model"
	"studiovault/internal/service"

	"github.com/rs/zerolog"
)

// maxWebhookBytes matches the processor's documented payload ceiling.
const maxWebhookBytes = 65536

// WebhookHandler receives signed payment processor events.
type WebhookHandler struct {
	payments service.PaymentService
	logger   zerolog.Logger
}

func NewWebhookHandler(payments service.PaymentService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, logger: logger.With().Str("handler", "WebhookHandler").Logger()}
}

// RegisterRoutes mounts the webhook. It is authenticated by signature, not by bearer token.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payment-webhook", h.handle)
}

// handle godoc
// @Summary Payment processor webhook
// @Description Applies payment_intent events. Every authenticated delivery is acknowledged with 200.
// @Tags payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Processor signature"
// @Success 200 {object} dto.WebhookResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "signature_invalid"
// @Router /payment-webhook [post]
func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read webhook body")
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	err = h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, model.ErrSignatureInvalid) {
		h.logger.Warn().Err(err).Msg("Rejected webhook with invalid signature")
		writeError(w, http.StatusBadRequest, model.ErrSignatureInvalid.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to process webhook")
	}
	writeJSON(w, http.StatusOK, dto.WebhookResponseDTO{Received: true})
}
