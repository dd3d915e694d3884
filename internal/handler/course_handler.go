package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/service"
	"github.com/gifttech/academy-api/internal/utils"
)

// CourseHandler exposes the course catalog and enrollment endpoints.
type CourseHandler struct {
	catalog     service.CatalogService
	enrollments service.EnrollmentService
	logger      zerolog.Logger
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(catalog service.CatalogService, enrollments service.EnrollmentService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		catalog:     catalog,
		enrollments: enrollments,
		logger:      logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register wires the catalog, enrollment and admin routes. The group is
// expected to carry optional-auth middleware so enrollment flags resolve for
// signed-in callers; write routes add strict auth and role checks per route.
func (h *CourseHandler) Register(router fiber.Router, authenticated, adminOnly fiber.Handler) {
	router.Get("", h.list)
	router.Get("/slug/:slug", h.getBySlug)
	router.Get("/:id", h.getByID)

	router.Post("/:id/enroll", authenticated, h.enroll)
	router.Delete("/:id/enroll", authenticated, h.unenroll)
	router.Post("/:id/unenroll", authenticated, h.unenroll)

	router.Post("", authenticated, adminOnly, h.create)
	router.Put("/:id", authenticated, adminOnly, h.update)
	router.Delete("/:id", authenticated, adminOnly, h.remove)
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	req := dto.CourseListRequest{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		Page:       page,
		PageSize:   pageSize,
	}

	result, err := h.catalog.List(c.Context(), req, userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list courses")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch courses")
	}

	if result.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}

	return utils.SendSuccess(c, "courses retrieved", result)
}

func (h *CourseHandler) getByID(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	// Admins can still inspect soft-deleted courses by ID.
	includeInactive := strings.EqualFold(userRoleFromContext(c), models.RoleAdmin)

	course, err := h.catalog.GetByID(c.Context(), id, userIDFromContext(c), includeInactive)
	if err != nil {
		return h.handleError(c, err, "failed to fetch course")
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) getBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	course, err := h.catalog.GetBySlug(c.Context(), slug, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to fetch course")
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	var payload dto.CourseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err, "failed to create course")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CourseHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CourseUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.catalog.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update course")
	}

	return utils.SendSuccess(c, "course updated", course)
}

func (h *CourseHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.catalog.SoftDelete(c.Context(), id); err != nil {
		return h.handleError(c, err, "failed to delete course")
	}

	return utils.SendSuccess(c, "course deleted", nil)
}

func (h *CourseHandler) enroll(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.enrollments.Enroll(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err, "failed to enroll")
	}

	return utils.SendSuccess(c, "enrolled successfully", nil)
}

func (h *CourseHandler) unenroll(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.enrollments.Unenroll(c.Context(), userIDFromContext(c), id); err != nil {
		return h.handleError(c, err, "failed to unenroll")
	}

	return utils.SendSuccess(c, "unenrolled successfully", nil)
}

func (h *CourseHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateSlug),
		errors.Is(err, service.ErrAlreadyEnrolled),
		errors.Is(err, service.ErrNotEnrolled),
		errors.Is(err, service.ErrPrerequisitesNotMet):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendValidationError(c, validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
