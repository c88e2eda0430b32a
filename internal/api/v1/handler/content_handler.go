package handler

import (
	"errors"
	"net/http"

	"studiovault/internal/api/v1/dto"
	"studiovault/internal/model"
	"studiovault/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ContentHandler serves per-item selection, purchase, access and download endpoints.
type ContentHandler struct {
	selection service.SelectionService
	payments  service.PaymentService
	access    service.AccessService
	downloads service.DownloadService
	validate  *validator.Validate
	logger    zerolog.Logger
}

func NewContentHandler(
	selection service.SelectionService,
	payments service.PaymentService,
	access service.AccessService,
	downloads service.DownloadService,
	v *validator.Validate,
	logger zerolog.Logger,
) *ContentHandler {
	return &ContentHandler{
		selection: selection,
		payments:  payments,
		access:    access,
		downloads: downloads,
		validate:  v,
		logger:    logger.With().Str("handler", "ContentHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 content routes
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /content/{id}/select-free", authMw(http.HandlerFunc(h.selectFree)))
	mux.Handle("POST /content/{id}/create-payment-intent", authMw(http.HandlerFunc(h.createPaymentIntent)))
	mux.Handle("POST /content/{id}/verify-payment", authMw(http.HandlerFunc(h.verifyPayment)))
	mux.Handle("GET /content/{id}/access", authMw(http.HandlerFunc(h.getAccess)))
	mux.Handle("POST /content/{id}/download", authMw(http.HandlerFunc(h.download)))
	mux.Handle("GET /downloads", authMw(http.HandlerFunc(h.listDownloads)))
}

// selectFree godoc
// @Summary Select a content item for free
// @Description Uses one of the caller's free selections for the item's type in its project.
// @Tags content
// @Accept json
// @Produce json
// @Param id path string true "Content item ID"
// @Param body body dto.SelectFreeRequest false "Optional project check"
// @Success 200 {object} dto.SelectionResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "project_mismatch"
// @Failure 403 {object} dto.ErrorResponseDTO "limit_reached"
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Failure 409 {object} dto.ErrorResponseDTO "already_selected"
// @Router /content/{id}/select-free [post]
func (h *ContentHandler) selectFree(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.SelectFreeRequest
	if !decodeBody(w, r, h.validate, &req, true) {
		return
	}

	sel, err := h.selection.SelectFree(r.Context(), userID, req.ProjectID, itemID)
	if err != nil {
		if errors.Is(err, model.ErrAlreadySelected) && sel != nil {
			writeJSON(w, http.StatusConflict, dto.ErrorResponseDTO{Error: model.ErrAlreadySelected.Error(), Selection: selectionDTO(sel)})
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionDTO(sel))
}

// createPaymentIntent godoc
// @Summary Start an individual purchase
// @Description Creates a processor payment intent for one content item at its listed price.
// @Tags content
// @Produce json
// @Param id path string true "Content item ID"
// @Success 200 {object} dto.PaymentIntentResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "already_owned"
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Failure 502 {object} dto.ErrorResponseDTO "payment_processor_error"
// @Router /content/{id}/create-payment-intent [post]
func (h *ContentHandler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.payments.CreateContentPaymentIntent(r.Context(), userID, itemID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentIntentDTO(res))
}

// verifyPayment godoc
// @Summary Verify an individual purchase
// @Description Re-checks the payment with the processor and grants the item once it has succeeded.
// @Tags content
// @Accept json
// @Produce json
// @Param id path string true "Content item ID"
// @Param body body dto.VerifyPaymentRequest true "Payment intent"
// @Success 200 {object} dto.VerifyPaymentResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "payment_not_succeeded"
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /content/{id}/verify-payment [post]
func (h *ContentHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.VerifyPaymentRequest
	if !decodeBody(w, r, h.validate, &req, false) {
		return
	}
	res, err := h.payments.VerifyPayment(r.Context(), userID, req.PaymentIntentID, model.PaymentTarget{ContentItemID: itemID})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyDTO(res))
}

// getAccess godoc
// @Summary Check download access
// @Description Reports whether the caller may download the item and which rule allows it.
// @Tags content
// @Produce json
// @Param id path string true "Content item ID"
// @Success 200 {object} dto.AccessResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /content/{id}/access [get]
func (h *ContentHandler) getAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	allowed, err := h.access.HasAccess(r.Context(), userID, itemID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccessResponseDTO{HasAccess: allowed})
}

// download godoc
// @Summary Download a content item
// @Description Checks access, records the download and returns the file descriptor.
// @Tags content
// @Produce json
// @Param id path string true "Content item ID"
// @Success 200 {object} dto.DownloadResponseDTO
// @Failure 403 {object} dto.ErrorResponseDTO "forbidden"
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /content/{id}/download [post]
func (h *ContentHandler) download(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	grant, err := h.downloads.Download(r.Context(), userID, itemID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DownloadResponseDTO{
		DownloadID:    grant.Download.DownloadID,
		ContentItemID: grant.Item.ContentItemID,
		Title:         grant.Item.Title,
		FilePath:      grant.Item.FilePath,
		Reason:        string(grant.Reason),
		CreatedAt:     grant.Download.CreatedAt,
	})
}

// listDownloads godoc
// @Summary List the caller's downloads
// @Tags content
// @Produce json
// @Success 200 {array} dto.DownloadHistoryItemDTO
// @Router /downloads [get]
func (h *ContentHandler) listDownloads(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	history, err := h.downloads.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	out := make([]dto.DownloadHistoryItemDTO, 0, len(history))
	for _, d := range history {
		out = append(out, dto.DownloadHistoryItemDTO{DownloadID: d.DownloadID, ContentItemID: d.ContentItemID, CreatedAt: d.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func paymentIntentDTO(res *service.PaymentIntentResult) dto.PaymentIntentResponseDTO {
	return dto.PaymentIntentResponseDTO{
		ClientSecret:    res.ClientSecret,
		PaymentID:       res.PaymentID,
		PaymentIntentID: res.IntentID,
		Amount:          res.AmountCents,
	}
}

func verifyDTO(res *service.ConfirmResult) dto.VerifyPaymentResponseDTO {
	return dto.VerifyPaymentResponseDTO{
		PaymentID: res.Payment.PaymentID,
		Status:    string(res.Payment.Status),
		Granted:   res.Granted,
	}
}
