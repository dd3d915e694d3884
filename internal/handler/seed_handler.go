package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/service"
	"github.com/gifttech/academy-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding data.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/courses", h.courses)
	router.Post("/admin", h.admin)
}

type seedCoursesRequest struct {
	Items []models.Course `json:"items"`
}

type seedAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *SeedHandler) courses(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload seedCoursesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	affected, err := h.service.SeedCourses(c.Context(), token, payload.Items)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "courses seeded", fiber.Map{"affected": affected})
}

func (h *SeedHandler) admin(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload seedAdminRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	admin, err := h.service.SeedAdmin(c.Context(), token, payload.Name, payload.Email, payload.Password)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "admin seeded", dto.NewUserResponse(admin))
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch err {
	case service.ErrSeedDisabled:
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case service.ErrSeedUnauthorized:
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	default:
		h.logger.Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}
