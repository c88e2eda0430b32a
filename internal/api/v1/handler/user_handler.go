package handler

import (
	"net/http"

	"studiovault/internal/api/v1/dto"
	"studiovault/internal/middleware"
	"studiovault/internal/model"
	"studiovault/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, validate: v, logger: logger.With().Str("handler", "UserHandler").Logger()}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /users/me", authMw(http.HandlerFunc(h.createUser)))
	mux.Handle("GET /users/me", authMw(http.HandlerFunc(h.getUser)))
}

// createUser godoc
// @Summary Register the authenticated user
// @Description Creates the profile for the token subject, or refreshes its email. Safe to call on every sign-in.
// @Tags users
// @Accept json
// @Produce json
// @Param user body dto.UserCreateDTO false "Profile"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "invalid_json or validation_failed"
// @Failure 401 {object} dto.ErrorResponseDTO "unauthorized"
// @Router /users/me [post]
func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req dto.UserCreateDTO
	if !decodeBody(w, r, h.validate, &req, true) {
		return
	}
	if req.Email == "" {
		req.Email = middleware.Email(r.Context())
	}
	user, err := h.userService.Register(r.Context(), &model.User{UserID: userID, Email: req.Email})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userDTO(user))
}

// getUser godoc
// @Summary Get the authenticated user
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "not_found"
// @Router /users/me [get]
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userDTO(user))
}

func userDTO(u *model.User) dto.UserResponseDTO {
	return dto.UserResponseDTO{UserID: u.UserID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
