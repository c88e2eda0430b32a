package handler

import (
	"net/http"

	"studiovault/internal/api/v1/dto"
	"studiovault/internal/middleware"
	"studiovault/internal/model"
	"studiovault/internal/service"

	"github.com/rs/zerolog"
)

// AdminHandler exposes the operations that may undo entitlement.
type AdminHandler struct {
	admin  service.AdminService
	logger zerolog.Logger
}

func NewAdminHandler(admin service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger.With().Str("handler", "AdminHandler").Logger()}
}

// RegisterRoutes mounts admin routes behind authMw and the admin role check.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	guard := func(f http.HandlerFunc) http.Handler { return authMw(middleware.RequireAdmin(f)) }
	mux.Handle("POST /admin/projects/{projectId}/users/{userId}/revoke-packages", guard(h.revokePackages))
	mux.Handle("DELETE /admin/content/{id}", guard(h.removeContent))
	mux.Handle("GET /admin/projects/{id}/payments", guard(h.listPayments))
}

// revokePackages godoc
// @Summary Revoke a user's project packages
// @Tags admin
// @Param projectId path string true "Project ID"
// @Param userId path string true "User ID"
// @Success 204
// @Failure 403 {object} dto.ErrorResponseDTO "forbidden"
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /admin/projects/{projectId}/users/{userId}/revoke-packages [post]
func (h *AdminHandler) revokePackages(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "projectId")
	if !ok {
		return
	}
	userID := r.PathValue("userId")
	if err := h.admin.RevokePackages(r.Context(), projectID, userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeContent godoc
// @Summary Remove a content item
// @Description Deletes the item together with its selections, purchases, payments and downloads.
// @Tags admin
// @Param id path string true "Content item ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /admin/content/{id} [delete]
func (h *AdminHandler) removeContent(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.admin.RemoveContent(r.Context(), itemID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listPayments godoc
// @Summary List a project's payments
// @Tags admin
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} dto.PaymentResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /admin/projects/{id}/payments [get]
func (h *AdminHandler) listPayments(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.admin.ListProjectPayments(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	out := make([]dto.PaymentResponseDTO, 0, len(payments))
	for i := range payments {
		out = append(out, paymentDTO(&payments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func paymentDTO(p *model.Payment) dto.PaymentResponseDTO {
	out := dto.PaymentResponseDTO{
		PaymentID:         p.PaymentID,
		UserID:            p.UserID,
		ProjectID:         p.ProjectID,
		ContentItemID:     p.ContentItemID,
		ProcessorIntentID: p.ProcessorIntentID,
		Amount:            p.AmountCents,
		Currency:          p.Currency,
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.PackageType != nil {
		pkg := string(*p.PackageType)
		out.PackageType = &pkg
	}
	return out
}
