package handlers

import (
	"tournament-escrow-system/middleware"
	"tournament-escrow-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, roleService *services.RoleService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	// Role fund claims are for the role holder, not the admin
	secured.Post("/roles/claim", roleService.ClaimRoleFund)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin")
	admin.Post("/platform/init", roleService.InitializePlatform)
	admin.Patch("/platform/bloom-precision", roleService.SetBloomPrecision)
	admin.Post("/assets/approve", roleService.ApproveAsset)
	admin.Post("/assets/ban", roleService.BanAsset)
	admin.Post("/roles/grant", roleService.GrantRole)
	admin.Post("/roles/revoke", roleService.RevokeRole)
}
