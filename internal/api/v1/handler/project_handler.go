package handler

import (
	"net/http"

	"studiovault/internal/api/v1/dto"
	"studiovault/internal/model"
	"studiovault/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ProjectHandler serves package purchases and per-project entitlement queries.
type ProjectHandler struct {
	selection service.SelectionService
	payments  service.PaymentService
	access    service.AccessService
	validate  *validator.Validate
	logger    zerolog.Logger
}

func NewProjectHandler(
	selection service.SelectionService,
	payments service.PaymentService,
	access service.AccessService,
	v *validator.Validate,
	logger zerolog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		selection: selection,
		payments:  payments,
		access:    access,
		validate:  v,
		logger:    logger.With().Str("handler", "ProjectHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 project routes
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /projects/{id}/create-payment-intent", authMw(http.HandlerFunc(h.createPaymentIntent)))
	mux.Handle("POST /projects/{id}/verify-payment", authMw(http.HandlerFunc(h.verifyPayment)))
	mux.Handle("GET /projects/{id}/package-access/{packageType}", authMw(http.HandlerFunc(h.packageAccess)))
	mux.Handle("GET /projects/{id}/free-selections", authMw(http.HandlerFunc(h.freeSelections)))
}

// createPaymentIntent godoc
// @Summary Start a package purchase
// @Description Creates a processor payment intent for a project package. The price is always taken from the catalog.
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param body body dto.PackagePaymentRequest true "Package"
// @Success 200 {object} dto.PaymentIntentResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "invalid_package, amount_mismatch or already_owned"
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Failure 502 {object} dto.ErrorResponseDTO "payment_processor_error"
// @Router /projects/{id}/create-payment-intent [post]
func (h *ProjectHandler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.PackagePaymentRequest
	if !decodeBody(w, r, h.validate, &req, false) {
		return
	}
	res, err := h.payments.CreatePackagePaymentIntent(r.Context(), userID, projectID, model.PackageType(req.PackageType), req.Amount)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentIntentDTO(res))
}

// verifyPayment godoc
// @Summary Verify a package purchase
// @Description Re-checks the payment with the processor and sets the package flag once it has succeeded.
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param body body dto.VerifyPaymentRequest true "Payment intent"
// @Success 200 {object} dto.VerifyPaymentResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "payment_not_succeeded"
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /projects/{id}/verify-payment [post]
func (h *ProjectHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.VerifyPaymentRequest
	if !decodeBody(w, r, h.validate, &req, false) {
		return
	}
	res, err := h.payments.VerifyPayment(r.Context(), userID, req.PaymentIntentID, model.PaymentTarget{ProjectID: projectID})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyDTO(res))
}

// packageAccess godoc
// @Summary Check package ownership
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Param packageType path string true "additional_3_videos or all_remaining_content"
// @Success 200 {object} dto.AccessResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "invalid_package"
// @Router /projects/{id}/package-access/{packageType} [get]
func (h *ProjectHandler) packageAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	owned, err := h.access.HasPackage(r.Context(), userID, projectID, model.PackageType(r.PathValue("packageType")))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccessResponseDTO{HasAccess: owned})
}

// freeSelections godoc
// @Summary Free selection usage
// @Description Returns how many free videos and headshots the caller has used in the project.
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} dto.FreeSelectionSummaryDTO
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /projects/{id}/free-selections [get]
func (h *ProjectHandler) freeSelections(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.selection.Summary(r.Context(), userID, projectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FreeSelectionSummaryDTO{
		ProjectID:     s.ProjectID,
		VideosUsed:    s.VideosUsed,
		VideoLimit:    s.VideoLimit,
		HeadshotsUsed: s.HeadshotsUsed,
		HeadshotLimit: s.HeadshotLimit,
	})
}
