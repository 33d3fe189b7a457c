package roleapi

import (
	"strconv"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role/rolesrv"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/validatex"
	"github.com/gofiber/fiber/v2"
)

type RoleHandlers struct {
	service *rolesrv.RoleService
}

func NewRoleHandlers(service *rolesrv.RoleService) *RoleHandlers {
	return &RoleHandlers{service: service}
}

func (h *RoleHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.TokenMiddleware) {
	roles := router.Group("/roles",
		authMiddleware.Authenticate(),
		authMiddleware.RequireSuperUser(),
	)

	roles.Get("/", h.ListRoles)
	roles.Post("/", h.CreateRole)
	roles.Get("/stats/overview", h.Stats)
	roles.Get("/:id", h.GetRole)
	roles.Put("/:id", h.UpdateRole)
	roles.Delete("/:id", h.DeleteRole)
	roles.Patch("/:id/toggle-status", h.ToggleStatus)
	roles.Post("/:id/assign-user", h.AssignUser)
	roles.Delete("/:id/remove-user/:userId", h.RemoveUser)
	roles.Get("/:id/users", h.Members)
}

func realmFilter(c *fiber.Ctx) *kernel.RealmID {
	if v := c.Query("realm_id"); v != "" {
		id := kernel.NewRealmID(v)
		return &id
	}
	return nil
}

func (h *RoleHandlers) ListRoles(c *fiber.Ctx) error {
	filter := role.ListFilter{
		RealmID: realmFilter(c),
		Name:    c.Query("name"),
	}
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return errx.Validation("Invalid boolean query parameter").WithDetail("param", "is_active")
		}
		filter.IsActive = &active
	}

	roles, err := h.service.ListRoles(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": roles})
}

func (h *RoleHandlers) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), realmFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

func (h *RoleHandlers) GetRole(c *fiber.Ctx) error {
	r, err := h.service.GetRole(c.UserContext(), kernel.NewRoleID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": r})
}

func (h *RoleHandlers) CreateRole(c *fiber.Ctx) error {
	var req role.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	r, err := h.service.CreateRole(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Role created successfully",
		"data":    r,
	})
}

func (h *RoleHandlers) UpdateRole(c *fiber.Ctx) error {
	var req role.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	r, err := h.service.UpdateRole(c.UserContext(), kernel.NewRoleID(c.Params("id")), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Role updated successfully",
		"data":    r,
	})
}

func (h *RoleHandlers) DeleteRole(c *fiber.Ctx) error {
	if err := h.service.DeleteRole(c.UserContext(), kernel.NewRoleID(c.Params("id"))); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Role deleted successfully"})
}

func (h *RoleHandlers) ToggleStatus(c *fiber.Ctx) error {
	r, err := h.service.ToggleStatus(c.UserContext(), kernel.NewRoleID(c.Params("id")))
	if err != nil {
		return err
	}

	state := "deactivated"
	if r.IsActive {
		state = "activated"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Role " + state + " successfully",
		"data":    r,
	})
}

func (h *RoleHandlers) AssignUser(c *fiber.Ctx) error {
	var req role.AssignUserRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	roleID := kernel.NewRoleID(c.Params("id"))
	if err := h.service.AssignUser(c.UserContext(), roleID, kernel.NewUserID(req.UserID)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Role assigned to user successfully"})
}

func (h *RoleHandlers) RemoveUser(c *fiber.Ctx) error {
	roleID := kernel.NewRoleID(c.Params("id"))
	userID := kernel.NewUserID(c.Params("userId"))
	if err := h.service.RemoveUser(c.UserContext(), roleID, userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Role removed from user successfully"})
}

func (h *RoleHandlers) Members(c *fiber.Ctx) error {
	members, err := h.service.Members(c.UserContext(), kernel.NewRoleID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": members})
}
