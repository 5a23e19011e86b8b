package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/wallet-canister-backend/internal/api/middleware"
	"github.com/rxtech-lab/wallet-canister-backend/internal/models"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
)

func (s *APIServer) handleCreateWallet(c *fiber.Ctx) error {
	var req services.CreateWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.CreatorPrincipal == "" {
		if user := middleware.GetAuthenticatedUser(c); user != nil {
			req.CreatorPrincipal = user.Principal
		}
	}

	wallet, err := s.wallets.CreateWallet(c.UserContext(), req)
	if err != nil {
		return s.sendError(c, err, "Failed to create wallet")
	}

	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Data:    wallet.ToResponse(),
		Message: "Wallet created successfully",
	})
}

func (s *APIServer) handleListWallets(c *fiber.Ctx) error {
	principal := c.Query("principal")
	if principal == "" {
		return badRequest(c, "principal query parameter is required")
	}

	wallets, err := s.wallets.ListWalletsByPrincipal(c.UserContext(), principal)
	if err != nil {
		return s.sendError(c, err, "Failed to list wallets")
	}

	data := make([]models.WalletResponse, 0, len(wallets))
	for i := range wallets {
		data = append(data, wallets[i].ToResponse())
	}
	count := len(data)
	return c.JSON(Response{
		Success: true,
		Data:    data,
		Count:   &count,
	})
}

func (s *APIServer) handleGetWallet(c *fiber.Ctx) error {
	wallet, err := s.wallets.GetWallet(c.UserContext(), c.Params("canisterId"))
	if err != nil {
		return s.sendError(c, err, "Failed to get wallet")
	}
	return c.JSON(Response{
		Success: true,
		Data:    wallet.ToResponse(),
	})
}

func (s *APIServer) handleDeleteWallet(c *fiber.Ctx) error {
	wallet, err := s.wallets.DeleteWallet(c.UserContext(), c.Params("canisterId"))
	if err != nil {
		return s.sendError(c, err, "Failed to delete wallet")
	}
	return c.JSON(Response{
		Success: true,
		Data:    wallet.ToResponse(),
		Message: "Wallet deleted successfully",
	})
}

func (s *APIServer) handleGetWalletStatus(c *fiber.Ctx) error {
	status, err := s.wallets.GetWalletStatus(c.UserContext(), c.Params("canisterId"))
	if err != nil {
		return s.sendError(c, err, "Failed to get wallet status")
	}
	return c.JSON(Response{
		Success: true,
		Data:    status,
	})
}
