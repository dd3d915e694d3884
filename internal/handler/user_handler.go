package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/service"
	"github.com/gifttech/academy-api/internal/utils"
)

// UserHandler exposes account profile and progress endpoints.
type UserHandler struct {
	users       service.UserService
	enrollments service.EnrollmentService
	logger      zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users service.UserService, enrollments service.EnrollmentService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:       users,
		enrollments: enrollments,
		logger:      logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires the authenticated user routes. Admin-only gating for list
// and delete happens inside the handlers so self-or-admin routes can share
// the group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Get("/:id/progress", h.progressSummary)
	router.Put("/:id/progress/:courseId", h.updateProgress)
	router.Post("/:id/progress/:courseId", h.updateProgress)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	if userRoleFromContext(c) != models.RoleAdmin {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.users.List(c.Context(), dto.UserListRequest{
		Role:     c.Query("role"),
		Sort:     c.Query("sort"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch users")
	}

	return utils.SendSuccess(c, "users retrieved", result)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if !h.selfOrAdmin(c, id) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	user, err := h.users.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err, "failed to fetch user")
	}

	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if !h.selfOrAdmin(c, id) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.Update(c.Context(), id, userRoleFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err, "failed to update user")
	}

	return utils.SendSuccess(c, "user updated", user)
}

func (h *UserHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if userRoleFromContext(c) != models.RoleAdmin {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.users.Delete(c.Context(), id, userIDFromContext(c)); err != nil {
		return h.handleError(c, err, "failed to delete user")
	}

	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *UserHandler) progressSummary(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if !h.selfOrAdmin(c, id) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	summary, err := h.enrollments.ProgressSummary(c.Context(), id)
	if err != nil {
		return h.handleError(c, err, "failed to fetch progress")
	}

	if summary.CacheHit {
		c.Set("X-Cache-Hit", "true")
	}

	return utils.SendSuccess(c, "progress retrieved", summary)
}

func (h *UserHandler) updateProgress(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if !h.selfOrAdmin(c, id) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var payload dto.ProgressUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.enrollments.RecordProgress(c.Context(), id, courseID, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update progress")
	}

	return utils.SendSuccess(c, "progress updated", result)
}

func (h *UserHandler) selfOrAdmin(c *fiber.Ctx, targetID uint) bool {
	return userIDFromContext(c) == targetID || userRoleFromContext(c) == models.RoleAdmin
}

func (h *UserHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrSelfDelete),
		errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRoleChangeForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case isValidationError(err):
		return utils.SendValidationError(c, validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
