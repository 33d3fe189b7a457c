package realmapi

import (
	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm"
	"github.com/Abraxas-365/authbuilder/pkg/iam/realm/realmsrv"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/validatex"
	"github.com/gofiber/fiber/v2"
)

type RealmHandlers struct {
	service *realmsrv.RealmService
}

func NewRealmHandlers(service *realmsrv.RealmService) *RealmHandlers {
	return &RealmHandlers{service: service}
}

// RegisterRoutes mounts /realms on router. Every route requires a super user.
func (h *RealmHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.TokenMiddleware) {
	realms := router.Group("/realms",
		authMiddleware.Authenticate(),
		authMiddleware.RequireSuperUser(),
	)

	realms.Get("/", h.ListRealms)
	realms.Post("/", h.CreateRealm)
	realms.Get("/:id", h.GetRealm)
	realms.Put("/:id", h.UpdateRealm)
	realms.Delete("/:id", h.DeleteRealm)
	realms.Patch("/:id/toggle-status", h.ToggleStatus)
}

func (h *RealmHandlers) ListRealms(c *fiber.Ctx) error {
	realms, err := h.service.ListRealms(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": realms})
}

func (h *RealmHandlers) GetRealm(c *fiber.Ctx) error {
	rl, err := h.service.GetRealm(c.UserContext(), kernel.NewRealmID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rl})
}

func (h *RealmHandlers) CreateRealm(c *fiber.Ctx) error {
	var req realm.CreateRealmRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	rl, err := h.service.CreateRealm(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Realm created successfully",
		"data":    rl,
	})
}

func (h *RealmHandlers) UpdateRealm(c *fiber.Ctx) error {
	var req realm.UpdateRealmRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	rl, err := h.service.UpdateRealm(c.UserContext(), kernel.NewRealmID(c.Params("id")), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Realm updated successfully",
		"data":    rl,
	})
}

func (h *RealmHandlers) DeleteRealm(c *fiber.Ctx) error {
	if err := h.service.DeleteRealm(c.UserContext(), kernel.NewRealmID(c.Params("id"))); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Realm deleted successfully",
	})
}

func (h *RealmHandlers) ToggleStatus(c *fiber.Ctx) error {
	rl, err := h.service.ToggleStatus(c.UserContext(), kernel.NewRealmID(c.Params("id")))
	if err != nil {
		return err
	}

	state := "deactivated"
	if rl.IsActive {
		state = "activated"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Realm " + state + " successfully",
		"data":    rl,
	})
}
