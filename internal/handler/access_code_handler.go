package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edukita-dev/edukita-api/internal/dto"
	"github.com/edukita-dev/edukita-api/internal/service"
	"github.com/edukita-dev/edukita-api/internal/utils"
)

// AccessCodeHandler wires access code HTTP routes.
type AccessCodeHandler struct {
	service service.AccessCodeService
	logger  zerolog.Logger
}

// NewAccessCodeHandler constructs the handler.
func NewAccessCodeHandler(service service.AccessCodeService, logger zerolog.Logger) *AccessCodeHandler {
	return &AccessCodeHandler{
		service: service,
		logger:  logger.With().Str("component", "access_code_handler").Logger(),
	}
}

// RouteGuards carries the per-role middleware each route group runs behind.
// Nil guards default to a pass-through, which keeps handler tests simple.
type RouteGuards struct {
	Staff       fiber.Handler
	Admin       fiber.Handler
	Student     fiber.Handler
	RedeemLimit fiber.Handler
}

func (g RouteGuards) normalized() RouteGuards {
	noop := func(c *fiber.Ctx) error { return c.Next() }
	if g.Staff == nil {
		g.Staff = noop
	}
	if g.Admin == nil {
		g.Admin = noop
	}
	if g.Student == nil {
		g.Student = noop
	}
	if g.RedeemLimit == nil {
		g.RedeemLimit = noop
	}
	return g
}

// RegisterCourseRoutes attaches the course-scoped endpoints.
func (h *AccessCodeHandler) RegisterCourseRoutes(router fiber.Router, guards RouteGuards) {
	guards = guards.normalized()
	router.Post("/:id/bulk-generate-codes", guards.Admin, h.bulkGenerate)
}

// Register attaches the access code endpoints. Static segments are
// registered before the :code parameter routes so they keep precedence.
func (h *AccessCodeHandler) Register(router fiber.Router, guards RouteGuards) {
	guards = guards.normalized()

	router.Post("/generate", guards.Staff, h.generate)
	router.Post("/redeem", guards.Student, guards.RedeemLimit, h.redeem)
	router.Get("/course/:id/active", guards.Staff, h.listActive)
	router.Get("/course/:id/paged", guards.Staff, h.listPaged)
	router.Get("/:code/stats", guards.Staff, h.stats)
	router.Post("/:code/disable", guards.Admin, h.disable)
	router.Get("/:code", guards.Staff, h.get)
}

func (h *AccessCodeHandler) bulkGenerate(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.BulkGenerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	issuerID := userIDFromContext(c)

	result, err := h.service.BulkGenerate(c.Context(), courseID, issuerID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "access codes generated", result)
}

func (h *AccessCodeHandler) generate(c *fiber.Ctx) error {
	courseID, err := parseUintQuery(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	issuerID := c.Query("adminId")
	if issuerID == "" {
		issuerID = userIDFromContext(c)
	}

	code, err := h.service.Generate(c.Context(), courseID, issuerID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "access code generated", code)
}

func (h *AccessCodeHandler) redeem(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "missing code")
	}

	courseID, err := parseUintQuery(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)

	result, err := h.service.Redeem(c.Context(), code, studentID, courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	if !result.Redeemed {
		return utils.SendFailure(c, fiber.StatusConflict, "access code could not be redeemed", result)
	}

	requestLogger(h.logger, c).Info().Uint("course_id", courseID).Msg("access code redeemed")

	return utils.SendSuccess(c, "access code redeemed", result)
}

func (h *AccessCodeHandler) disable(c *fiber.Ctx) error {
	code := c.Params("code")

	disabledBy := c.Query("disabledBy")
	if disabledBy == "" {
		disabledBy = userIDFromContext(c)
	}

	disabled, err := h.service.Disable(c.Context(), code, disabledBy)
	if err != nil {
		return h.handleError(c, err)
	}

	if !disabled {
		return utils.SendError(c, fiber.StatusNotFound, "access code not found or already disabled")
	}

	return utils.SendSuccess(c, "access code disabled", fiber.Map{"code": code})
}

func (h *AccessCodeHandler) get(c *fiber.Ctx) error {
	code, err := h.service.Get(c.Context(), c.Params("code"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access code retrieved", code)
}

func (h *AccessCodeHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context(), c.Params("code"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access code stats retrieved", stats)
}

func (h *AccessCodeHandler) listActive(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	codes, err := h.service.ListActive(c.Context(), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "active access codes retrieved", codes)
}

func (h *AccessCodeHandler) listPaged(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	page, err := parseQueryInt(c, "pageNumber")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pageNumber")
	}

	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pageSize")
	}

	result, err := h.service.ListPaged(c.Context(), courseID, page, pageSize)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access codes retrieved", result)
}

func (h *AccessCodeHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrCodeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "access code not found")
	case errors.Is(err, service.ErrMissingIssuer),
		errors.Is(err, service.ErrMissingStudent),
		errors.Is(err, service.ErrMissingActor):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		requestLogger(h.logger, c).Error().Err(err).Msg("code generation exhausted attempt budget")
		return utils.SendError(c, fiber.StatusInternalServerError, "unable to generate a unique access code")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
