package handlers

import (
	"tournament-escrow-system/middleware"
	"tournament-escrow-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	// 🔓 Public routes
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournament)

	// 🔐 Authenticated routes
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Post("/tournaments/:id/register", tournamentService.RegisterParticipant)

	// Verifier votes
	secured.Post("/tournaments/:id/votes/start", tournamentService.VoteStart)
	secured.Post("/tournaments/:id/votes/cancel", tournamentService.VoteCancel)
	secured.Post("/tournaments/:id/votes/finish", tournamentService.VoteFinish)

	// Claims
	secured.Post("/tournaments/:id/claims/reward", tournamentService.ClaimReward)
	secured.Post("/tournaments/:id/claims/refund", tournamentService.ClaimRefund)
	secured.Post("/tournaments/:id/claims/sponsor-refund", tournamentService.ClaimSponsorRefund)
}
