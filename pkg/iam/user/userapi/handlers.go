package userapi

import (
	"strconv"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/validatex"
	"github.com/gofiber/fiber/v2"
)

type UserHandlers struct {
	service *usersrv.UserService
}

func NewUserHandlers(service *usersrv.UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

func (h *UserHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.TokenMiddleware) {
	users := router.Group("/users",
		authMiddleware.Authenticate(),
		authMiddleware.RequireSuperUser(),
	)

	users.Get("/", h.ListUsers)
	users.Post("/", h.CreateUser)
	users.Get("/stats/overview", h.Stats)
	users.Get("/:id", h.GetUser)
	users.Put("/:id", h.UpdateUser)
	users.Delete("/:id", h.DeleteUser)
	users.Patch("/:id/toggle-status", h.ToggleStatus)
}

func parseFilter(c *fiber.Ctx) (user.ListFilter, error) {
	filter := user.ListFilter{Search: c.Query("search")}

	if v := c.Query("realm_id"); v != "" {
		id := kernel.NewRealmID(v)
		filter.RealmID = &id
	}
	if v := c.Query("client_id"); v != "" {
		id := kernel.NewClientID(v)
		filter.ClientID = &id
	}
	for key, dest := range map[string]**bool{
		"is_super_user": &filter.IsSuperUser,
		"is_active":     &filter.IsActive,
	} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errx.Validation("Invalid boolean query parameter").WithDetail("param", key)
		}
		*dest = &b
	}
	return filter, nil
}

func (h *UserHandlers) ListUsers(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	users, err := h.service.ListUsers(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": users})
}

func (h *UserHandlers) Stats(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

func (h *UserHandlers) GetUser(c *fiber.Ctx) error {
	u, err := h.service.GetUser(c.UserContext(), kernel.NewUserID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": u})
}

func (h *UserHandlers) CreateUser(c *fiber.Ctx) error {
	var req user.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	created, err := h.service.CreateUser(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created successfully",
		"data":    created,
	})
}

func (h *UserHandlers) UpdateUser(c *fiber.Ctx) error {
	var req user.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	u, err := h.service.UpdateUser(c.UserContext(), kernel.NewUserID(c.Params("id")), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User updated successfully",
		"data":    u,
	})
}

func (h *UserHandlers) DeleteUser(c *fiber.Ctx) error {
	if err := h.service.DeleteUser(c.UserContext(), kernel.NewUserID(c.Params("id"))); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deleted successfully"})
}

func (h *UserHandlers) ToggleStatus(c *fiber.Ctx) error {
	u, err := h.service.ToggleStatus(c.UserContext(), kernel.NewUserID(c.Params("id")))
	if err != nil {
		return err
	}

	state := "deactivated"
	if u.IsActive {
		state = "activated"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User " + state + " successfully",
		"data":    u,
	})
}
