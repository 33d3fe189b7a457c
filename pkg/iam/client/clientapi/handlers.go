package clientapi

import (
	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/auth"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client/clientsrv"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/validatex"
	"github.com/gofiber/fiber/v2"
)

type ClientHandlers struct {
	service *clientsrv.ClientService
}

func NewClientHandlers(service *clientsrv.ClientService) *ClientHandlers {
	return &ClientHandlers{service: service}
}

func (h *ClientHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.TokenMiddleware) {
	clients := router.Group("/clients",
		authMiddleware.Authenticate(),
		authMiddleware.RequireSuperUser(),
	)

	clients.Get("/", h.ListClients)
	clients.Post("/", h.CreateClient)
	clients.Get("/stats/overview", h.Stats)
	clients.Get("/:id", h.GetClient)
	clients.Put("/:id", h.UpdateClient)
	clients.Delete("/:id", h.DeleteClient)
	clients.Patch("/:id/toggle-status", h.ToggleStatus)
	clients.Post("/:id/regenerate-secret", h.RegenerateSecret)
	clients.Post("/:id/test-smtp", h.TestSMTP)
}

func realmFilter(c *fiber.Ctx) *kernel.RealmID {
	if v := c.Query("realm_id"); v != "" {
		id := kernel.NewRealmID(v)
		return &id
	}
	return nil
}

func (h *ClientHandlers) ListClients(c *fiber.Ctx) error {
	clients, err := h.service.ListClients(c.UserContext(), realmFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": clients})
}

func (h *ClientHandlers) GetClient(c *fiber.Ctx) error {
	cl, err := h.service.GetClient(c.UserContext(), kernel.NewClientID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": cl})
}

func (h *ClientHandlers) CreateClient(c *fiber.Ctx) error {
	var req client.CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	cl, err := h.service.CreateClient(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Client created successfully",
		"data":    cl,
	})
}

func (h *ClientHandlers) UpdateClient(c *fiber.Ctx) error {
	var req client.UpdateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("Invalid request body").WithCause(err)
	}
	if err := validatex.Struct(&req); err != nil {
		return err
	}

	cl, err := h.service.UpdateClient(c.UserContext(), kernel.NewClientID(c.Params("id")), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Client updated successfully",
		"data":    cl,
	})
}

func (h *ClientHandlers) DeleteClient(c *fiber.Ctx) error {
	if err := h.service.DeleteClient(c.UserContext(), kernel.NewClientID(c.Params("id"))); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Client deleted successfully"})
}

func (h *ClientHandlers) ToggleStatus(c *fiber.Ctx) error {
	cl, err := h.service.ToggleStatus(c.UserContext(), kernel.NewClientID(c.Params("id")))
	if err != nil {
		return err
	}

	state := "deactivated"
	if cl.IsActive {
		state = "activated"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Client " + state + " successfully",
		"data":    cl,
	})
}

func (h *ClientHandlers) RegenerateSecret(c *fiber.Ctx) error {
	cl, err := h.service.RegenerateSecret(c.UserContext(), kernel.NewClientID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Client secret regenerated successfully",
		"data":    cl,
	})
}

func (h *ClientHandlers) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), realmFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// TestSMTP reports connection failures in the body rather than as an error
// status, since the request itself succeeded.
func (h *ClientHandlers) TestSMTP(c *fiber.Ctx) error {
	err := h.service.TestSMTP(c.UserContext(), kernel.NewClientID(c.Params("id")))
	if err == nil {
		return c.JSON(fiber.Map{"success": true, "message": "SMTP connection successful"})
	}
	if errx.IsType(err, errx.TypeExternal) {
		return c.JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	return err
}
