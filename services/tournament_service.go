package services

import (
	"errors"
	"log"
	"strconv"
	"time"

	"tournament-escrow-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB     *gorm.DB
	Ledger LedgerService
}

func NewTournamentService(db *gorm.DB, ledger LedgerService) *TournamentService {
	return &TournamentService{DB: db, Ledger: ledger}
}

type createTournamentRequest struct {
	Name                string `json:"name"`
	SponsorID           string `json:"sponsor_id"`
	Asset               string `json:"asset"`
	OrganizerRoyaltyBps uint64 `json:"organizer_royalty_bps"`
	SponsorPool         uint64 `json:"sponsor_pool"`
	EntryFee            uint64 `json:"entry_fee"`
	TeamSize            int    `json:"team_size"`
	MinTeams            int    `json:"min_teams"`
	MaxTeams            int    `json:"max_teams"`
	RegistrationStart   string `json:"registration_start"` // RFC3339
}

// CreateTournament validates the config against platform bounds, sizes the
// bloom registry, pulls the tournament nonce, and escrows the sponsor pool.
// Everything runs in one transaction: a failed ledger transfer rolls the
// whole creation back.
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	organizerID, _ := c.Locals("user_id").(string)

	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	registrationStart, err := time.Parse(time.RFC3339, req.RegistrationStart)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid registration_start (use RFC3339)"})
	}
	if req.TeamSize < 1 || req.MinTeams < 1 || req.MaxTeams < req.MinTeams {
		return failWith(c, models.ErrInvalidTeamsCount)
	}

	var tournament *models.Tournament
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireRole(tx, organizerID, models.RoleOrganizer); err != nil {
			return err
		}

		cfg, err := loadPlatformConfig(tx)
		if err != nil {
			return err
		}

		var asset models.AssetInfo
		if err := tx.First(&asset, "asset = ?", req.Asset).Error; err != nil || !asset.Approved {
			return models.ErrInvalidAsset
		}

		if req.OrganizerRoyaltyBps > cfg.MaxOrganizerRoyaltyBps {
			return models.ErrInvalidRoyalty
		}
		if req.EntryFee < asset.MinEntryFee {
			return models.ErrInvalidEntryFee
		}
		if req.SponsorPool < asset.MinSponsorPool {
			return models.ErrInvalidSponsorPool
		}
		if req.MinTeams < cfg.MinTeams || req.MaxTeams > cfg.MaxTeams {
			return models.ErrInvalidTeamsCount
		}
		if registrationStart.Before(time.Now().Add(-time.Minute)) {
			return models.ErrInvalidRegistrationStart
		}

		bloom, err := NewBloomFilter(req.MaxTeams*req.TeamSize, cfg.BloomFalsePositiveRate)
		if err != nil {
			return err
		}

		id := cfg.TournamentNonce
		cfg.TournamentNonce++
		if err := tx.Save(cfg).Error; err != nil {
			return err
		}

		tournament = &models.Tournament{
			ID:                  id,
			Name:                req.Name,
			Slug:                slug.Make(req.Name),
			OrganizerID:         organizerID,
			SponsorID:           req.SponsorID,
			Asset:               req.Asset,
			OrganizerRoyaltyBps: req.OrganizerRoyaltyBps,
			SponsorPool:         req.SponsorPool,
			EntryFee:            req.EntryFee,
			TeamSize:            req.TeamSize,
			MinTeams:            req.MinTeams,
			MaxTeams:            req.MaxTeams,
			RegistrationStart:   registrationStart,
			Status:              models.StatusNew,
		}

		if req.SponsorPool > 0 {
			if err := s.Ledger.Transfer(c.UserContext(), req.SponsorID, tournament.PoolAccount(), req.Asset, req.SponsorPool); err != nil {
				return err
			}
			tournament.Credit(req.SponsorPool)
		}
		if cfg.PlatformFee > 0 {
			if err := s.Ledger.Transfer(c.UserContext(), organizerID, cfg.PlatformWallet, cfg.FeeAsset, cfg.PlatformFee); err != nil {
				return err
			}
		}

		if err := tx.Create(tournament).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.BloomRegistry{TournamentID: id, Data: bloom.Bytes()}).Error; err != nil {
			return err
		}
		return tx.Create(&models.ConsensusTracker{TournamentID: id}).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	log.Printf("✅ Tournament %d (%s) created by organizer %s", tournament.ID, tournament.Slug, organizerID)
	return c.Status(201).JSON(tournament)
}

type registerRequest struct {
	Captain   string   `json:"captain"`
	Teammates []string `json:"teammates,omitempty"`
}

// RegisterParticipant registers the caller into the team keyed by captain.
// A captain registering may bring teammates and pays all their entry fees
// in one transfer. The bloom insert and the roster append are a single
// transaction: a duplicate detected by the filter aborts before any fee
// moves, and a failed fee transfer rolls the insert back.
func (s *TournamentService) RegisterParticipant(c *fiber.Ctx) error {
	participantID, _ := c.Locals("user_id").(string)

	tournamentID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid tournament id"})
	}

	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Captain == "" {
		return c.Status(400).JSON(fiber.Map{"error": "captain is required"})
	}
	if len(req.Teammates) > 0 && participantID != req.Captain {
		return c.Status(400).JSON(fiber.Map{"error": "only the captain can register teammates"})
	}

	var team *models.Team
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			return gorm.ErrRecordNotFound
		}
		if tournament.Status != models.StatusNew {
			return models.ErrInvalidStatus
		}

		var registry models.BloomRegistry
		if err := tx.First(&registry, "tournament_id = ?", tournamentID).Error; err != nil {
			return err
		}
		bloom, err := LoadBloomFilter(registry.Data)
		if err != nil {
			return err
		}

		team, err = loadTeam(tx, tournamentID, req.Captain, tournament.TeamSize)
		if err != nil {
			return err
		}
		wasCompleted := team.Completed
		rosterBefore := len(team.Participants)

		// Bloom check before anything moves. A false here is the duplicate
		// signal whether or not the identity was genuinely seen before.
		if !bloom.Insert(participantID) {
			return models.ErrAlreadyRegistered
		}
		for _, teammate := range req.Teammates {
			if !bloom.Insert(teammate) {
				return models.ErrAlreadyRegistered
			}
		}

		var fee uint64
		if participantID == req.Captain {
			all := append([]string{participantID}, req.Teammates...)
			fee = uint64(len(all)) * tournament.EntryFee
			if err := team.AddParticipantsByCaptain(all); err != nil {
				return err
			}
		} else {
			fee = tournament.EntryFee
			if err := team.AddParticipant(participantID); err != nil {
				return err
			}
		}

		if fee > 0 {
			if err := s.Ledger.Transfer(c.UserContext(), participantID, tournament.PoolAccount(), tournament.Asset, fee); err != nil {
				return err
			}
		}
		tournament.Credit(fee)

		if team.Completed && !wasCompleted {
			tournament.TeamCount++
		}

		if rosterBefore == 0 {
			if err := tx.Create(team).Error; err != nil {
				return err
			}
		} else if err := tx.Save(team).Error; err != nil {
			return err
		}
		for i := rosterBefore; i < len(team.Participants); i++ {
			if err := tx.Create(&team.Participants[i]).Error; err != nil {
				return err
			}
		}

		registry.Data = bloom.Bytes()
		if err := tx.Save(&registry).Error; err != nil {
			return err
		}
		return tx.Save(&tournament).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	return c.Status(201).JSON(team)
}

// VoteStart, VoteCancel and VoteFinish are the three verifier decisions.
// Finish votes additionally carry the verifier's winning-captain choice.

func (s *TournamentService) VoteStart(c *fiber.Ctx) error {
	return s.castVote(c, models.DecisionStart, "")
}

func (s *TournamentService) VoteCancel(c *fiber.Ctx) error {
	return s.castVote(c, models.DecisionCancel, "")
}

func (s *TournamentService) VoteFinish(c *fiber.Ctx) error {
	var req struct {
		Captain string `json:"captain"`
	}
	if err := c.BodyParser(&req); err != nil || req.Captain == "" {
		return c.Status(400).JSON(fiber.Map{"error": "captain is required for a finish vote"})
	}
	return s.castVote(c, models.DecisionFinish, req.Captain)
}

// castVote sets the verifier's bit, accrues the verifier fee, and commits
// the gated transition the moment the threshold is reached — all in one
// transaction, so the threshold check always observes the just-set bit.
func (s *TournamentService) castVote(c *fiber.Ctx, decision, winnerChoice string) error {
	verifierID, _ := c.Locals("user_id").(string)

	tournamentID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid tournament id"})
	}

	var result fiber.Map
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := requireRole(tx, verifierID, models.RoleVerifier); err != nil {
			return err
		}

		cfg, err := loadPlatformConfig(tx)
		if err != nil {
			return err
		}

		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			return gorm.ErrRecordNotFound
		}

		switch decision {
		case models.DecisionStart:
			if tournament.Status != models.StatusNew {
				return models.ErrInvalidStatus
			}
			if tournament.TeamCount == 0 {
				return models.ErrNoCompletedTeams
			}
		case models.DecisionCancel:
			if tournament.Status != models.StatusNew && tournament.Status != models.StatusStarted {
				return models.ErrInvalidStatus
			}
		case models.DecisionFinish:
			if tournament.Status != models.StatusStarted {
				return models.ErrInvalidStatus
			}
		}

		// Panel membership is a precondition enforced by role grants; a
		// verifier missing from the panel is a corrupted deployment, not a
		// recoverable request error.
		var panelEntry models.PanelVerifier
		if err := tx.First(&panelEntry, "user_id = ?", verifierID).Error; err != nil {
			log.Printf("❌ Verifier %s holds the role but is missing from the panel", verifierID)
			return models.ErrNotAllowed
		}
		var panelSize int64
		if err := tx.Model(&models.PanelVerifier{}).Count(&panelSize).Error; err != nil {
			return err
		}

		var tracker models.ConsensusTracker
		if err := tx.First(&tracker, "tournament_id = ?", tournamentID).Error; err != nil {
			return err
		}
		if err := tracker.CastVote(decision, panelEntry.Position); err != nil {
			return err
		}

		// Verifier fee accrues per successful vote, threshold or not.
		if err := accrueClaim(tx, verifierID, models.RoleVerifier, cfg.VerifierFee); err != nil {
			return err
		}

		if decision == models.DecisionFinish {
			vote := models.FinishVote{
				TournamentID: tournamentID,
				VerifierID:   verifierID,
				Captain:      winnerChoice,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
		}

		votes := tracker.VoteCount(decision)
		if models.ThresholdReached(votes, int(panelSize), cfg.ConsensusThresholdBps) {
			if err := s.commitTransition(c, tx, cfg, &tournament, decision); err != nil {
				return err
			}
		}

		if err := tx.Save(&tracker).Error; err != nil {
			return err
		}
		if err := tx.Save(&tournament).Error; err != nil {
			return err
		}

		result = fiber.Map{
			"decision":   decision,
			"votes":      votes,
			"panel_size": panelSize,
			"status":     tournament.Status,
		}
		return nil
	})
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(result)
}

// commitTransition performs the state change gated by a threshold-reaching
// vote. It runs at most once per decision: once the status moves, later
// votes on the same decision are rejected by the status gate.
func (s *TournamentService) commitTransition(c *fiber.Ctx, tx *gorm.DB, cfg *models.PlatformConfig, tournament *models.Tournament, decision string) error {
	switch decision {
	case models.DecisionStart:
		tournament.Status = models.StatusStarted
		log.Printf("✅ Tournament %d started", tournament.ID)

	case models.DecisionCancel:
		tournament.Status = models.StatusCanceled
		// The organizer gets the platform fee back as a claimable credit.
		if err := accrueClaim(tx, tournament.OrganizerID, models.RoleOrganizer, cfg.PlatformFee); err != nil {
			return err
		}
		log.Printf("🛑 Tournament %d canceled", tournament.ID)

	case models.DecisionFinish:
		var votes []models.FinishVote
		if err := tx.Order("id ASC").Find(&votes, "tournament_id = ?", tournament.ID).Error; err != nil {
			return err
		}
		winner, ok := models.ResolveWinner(votes)
		if !ok {
			return models.ErrNotWinner
		}

		meta := models.ComputeFinish(tournament, winner)
		if meta.OrganizerReward > 0 {
			if err := tournament.Debit(meta.OrganizerReward); err != nil {
				return err
			}
			if err := s.Ledger.Transfer(c.UserContext(), tournament.PoolAccount(), tournament.OrganizerID, tournament.Asset, meta.OrganizerReward); err != nil {
				return err
			}
		}
		if err := tx.Create(&meta).Error; err != nil {
			return err
		}
		tournament.Status = models.StatusFinished
		log.Printf("🏆 Tournament %d finished, winner captain %s", tournament.ID, winner)
	}
	return nil
}

type claimRequest struct {
	Captain string `json:"captain"`
}

// ClaimReward pays one winning-team participant their share. Strictly
// idempotent per participant: the second claim errors.
func (s *TournamentService) ClaimReward(c *fiber.Ctx) error {
	participantID, _ := c.Locals("user_id").(string)

	tournamentID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid tournament id"})
	}
	var req claimRequest
	if err := c.BodyParser(&req); err != nil || req.Captain == "" {
		return c.Status(400).JSON(fiber.Map{"error": "captain is required"})
	}

	var amount uint64
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			return gorm.ErrRecordNotFound
		}
		if tournament.Status != models.StatusFinished {
			return models.ErrInvalidStatus
		}

		var meta models.FinishMetadata
		if err := tx.First(&meta, "tournament_id = ?", tournamentID).Error; err != nil {
			return err
		}
		if meta.WinnerCaptain != req.Captain {
			return models.ErrNotWinner
		}

		team, err := loadTeam(tx, tournamentID, req.Captain, tournament.TeamSize)
		if err != nil {
			return err
		}
		if err := team.RewardParticipant(participantID); err != nil {
			return err
		}

		amount = meta.RewardPerWinner
		if err := tournament.Debit(amount); err != nil {
			return err
		}
		if err := s.Ledger.Transfer(c.UserContext(), tournament.PoolAccount(), participantID, tournament.Asset, amount); err != nil {
			return err
		}

		if err := saveClaimedParticipants(tx, team); err != nil {
			return err
		}
		return tx.Save(&tournament).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(fiber.Map{"participant": participantID, "amount": amount})
}

// ClaimRefund returns entry fees after cancellation (or to members of a
// team that never completed once the tournament moved on). The captain's
// claim covers every captain-paid, not-yet-refunded roster member in one
// transfer.
func (s *TournamentService) ClaimRefund(c *fiber.Ctx) error {
	participantID, _ := c.Locals("user_id").(string)

	tournamentID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid tournament id"})
	}
	var req claimRequest
	if err := c.BodyParser(&req); err != nil || req.Captain == "" {
		return c.Status(400).JSON(fiber.Map{"error": "captain is required"})
	}

	var amount uint64
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			return gorm.ErrRecordNotFound
		}

		team, err := loadTeam(tx, tournamentID, req.Captain, tournament.TeamSize)
		if err != nil {
			return err
		}

		// Refunds are for canceled tournaments, plus teams that never
		// completed and were left behind by a started tournament.
		if tournament.Status == models.StatusNew ||
			(tournament.Status != models.StatusCanceled && team.Completed) {
			return models.ErrInvalidStatus
		}

		multiplier, err := team.RefundParticipant(participantID)
		if err != nil {
			return err
		}

		amount = tournament.EntryFee * multiplier
		if amount > 0 {
			if err := tournament.Debit(amount); err != nil {
				return err
			}
			if err := s.Ledger.Transfer(c.UserContext(), tournament.PoolAccount(), participantID, tournament.Asset, amount); err != nil {
				return err
			}
		}

		if err := saveClaimedParticipants(tx, team); err != nil {
			return err
		}
		return tx.Save(&tournament).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(fiber.Map{"participant": participantID, "amount": amount})
}

// ClaimSponsorRefund returns the full sponsor pool once, after
// cancellation.
func (s *TournamentService) ClaimSponsorRefund(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)

	tournamentID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid tournament id"})
	}

	var amount uint64
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			return gorm.ErrRecordNotFound
		}
		if callerID != tournament.SponsorID {
			return models.ErrNotAllowed
		}
		if tournament.Status != models.StatusCanceled {
			return models.ErrInvalidStatus
		}
		if tournament.SponsorReclaimed {
			return models.ErrAlreadyClaimed
		}

		amount = tournament.SponsorPool
		if err := tournament.Debit(amount); err != nil {
			return err
		}
		if err := s.Ledger.Transfer(c.UserContext(), tournament.PoolAccount(), tournament.SponsorID, tournament.Asset, amount); err != nil {
			return err
		}

		tournament.SponsorReclaimed = true
		return tx.Save(&tournament).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(fiber.Map{"sponsor": callerID, "amount": amount})
}

func (s *TournamentService) GetTournament(c *fiber.Ctx) error {
	tournamentID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid tournament id"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}
	return c.JSON(tournament)
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	if err := s.DB.Order("id ASC").Find(&tournaments).Error; err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

// --- shared helpers ---

func loadPlatformConfig(tx *gorm.DB) (*models.PlatformConfig, error) {
	var cfg models.PlatformConfig
	if err := tx.First(&cfg, "id = ?", models.PlatformConfigID).Error; err != nil {
		return nil, errors.New("platform config not initialized")
	}
	return &cfg, nil
}

func requireRole(tx *gorm.DB, userID, role string) error {
	if userID == "" {
		return models.ErrNotAllowed
	}
	var grant models.RoleGrant
	if err := tx.First(&grant, "user_id = ? AND role = ?", userID, role).Error; err != nil {
		return models.ErrNotAllowed
	}
	return nil
}

func accrueClaim(tx *gorm.DB, userID, role string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	var grant models.RoleGrant
	if err := tx.First(&grant, "user_id = ? AND role = ?", userID, role).Error; err != nil {
		return models.ErrRoleNotFound
	}
	grant.Claim += amount
	return tx.Save(&grant).Error
}

// loadTeam fetches (or lazily creates, in memory) the team for a captain,
// roster in insertion order. The caller persists it.
func loadTeam(tx *gorm.DB, tournamentID uint64, captain string, teamSize int) (*models.Team, error) {
	var team models.Team
	err := tx.First(&team, "tournament_id = ? AND captain = ?", tournamentID, captain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewTeam(tournamentID, captain, teamSize), nil
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Order("id ASC").Find(&team.Participants, "tournament_id = ? AND captain = ?", tournamentID, captain).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func saveClaimedParticipants(tx *gorm.DB, team *models.Team) error {
	for i := range team.Participants {
		p := &team.Participants[i]
		if p.Claimed {
			if err := tx.Save(p).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// failWith maps domain errors onto HTTP responses.
func failWith(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, models.ErrNotAllowed):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyRegistered),
		errors.Is(err, models.ErrAlreadyVoted),
		errors.Is(err, models.ErrAlreadyClaimed),
		errors.Is(err, models.ErrRoleAlreadyGranted),
		errors.Is(err, models.ErrInvalidStatus):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrMaxPlayersExceeded),
		errors.Is(err, models.ErrMaxVerifiersExceeded),
		errors.Is(err, models.ErrNoCompletedTeams),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrNotWinner),
		errors.Is(err, models.ErrInvalidEntryFee),
		errors.Is(err, models.ErrInvalidSponsorPool),
		errors.Is(err, models.ErrInvalidTeamsCount),
		errors.Is(err, models.ErrInvalidRoyalty),
		errors.Is(err, models.ErrInvalidRegistrationStart),
		errors.Is(err, models.ErrInvalidAsset),
		errors.Is(err, models.ErrInvalidPrecision),
		errors.Is(err, models.ErrParticipantNotFound),
		errors.Is(err, models.ErrRoleNotFound):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("ERROR: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal error"})
	}
}
