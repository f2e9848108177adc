package services

import (
	"log"

	"tournament-escrow-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RoleService covers platform administration: the root config row, the
// asset whitelist, role grants, the verifier panel, and accrued-fee claims.
type RoleService struct {
	DB     *gorm.DB
	Ledger LedgerService
}

func NewRoleService(db *gorm.DB, ledger LedgerService) *RoleService {
	return &RoleService{DB: db, Ledger: ledger}
}

type initializePlatformRequest struct {
	AdminID                string  `json:"admin_id"`
	PlatformWallet         string  `json:"platform_wallet"`
	FeeAsset               string  `json:"fee_asset"`
	PlatformFee            uint64  `json:"platform_fee"`
	VerifierFee            uint64  `json:"verifier_fee"`
	ConsensusThresholdBps  uint64  `json:"consensus_threshold_bps"`
	BloomFalsePositiveRate float64 `json:"bloom_false_positive_rate"`
	MaxOrganizerRoyaltyBps uint64  `json:"max_organizer_royalty_bps"`
	MinTeams               int     `json:"min_teams"`
	MaxTeams               int     `json:"max_teams"`
}

// InitializePlatform seeds the singleton config row. It can only run once.
func (s *RoleService) InitializePlatform(c *fiber.Ctx) error {
	var req initializePlatformRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.AdminID == "" || req.PlatformWallet == "" || req.FeeAsset == "" {
		return c.Status(400).JSON(fiber.Map{"error": "admin_id, platform_wallet and fee_asset are required"})
	}
	if req.BloomFalsePositiveRate <= 0 || req.BloomFalsePositiveRate >= 1 {
		return failWith(c, models.ErrInvalidPrecision)
	}
	if req.ConsensusThresholdBps == 0 || req.ConsensusThresholdBps > 10000 {
		return c.Status(400).JSON(fiber.Map{"error": "consensus_threshold_bps must be in (0, 10000]"})
	}

	cfg := models.PlatformConfig{
		ID:                     models.PlatformConfigID,
		AdminID:                req.AdminID,
		PlatformWallet:         req.PlatformWallet,
		FeeAsset:               req.FeeAsset,
		PlatformFee:            req.PlatformFee,
		VerifierFee:            req.VerifierFee,
		ConsensusThresholdBps:  req.ConsensusThresholdBps,
		BloomFalsePositiveRate: req.BloomFalsePositiveRate,
		MaxOrganizerRoyaltyBps: req.MaxOrganizerRoyaltyBps,
		MinTeams:               req.MinTeams,
		MaxTeams:               req.MaxTeams,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.PlatformConfig
		if err := tx.First(&existing, "id = ?", models.PlatformConfigID).Error; err == nil {
			return models.ErrNotAllowed
		}
		return tx.Create(&cfg).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	log.Printf("✅ Platform initialized, admin %s", cfg.AdminID)
	return c.Status(201).JSON(cfg)
}

// SetBloomPrecision updates the false-positive target for future
// tournaments. Existing registries keep the geometry they were sized with.
func (s *RoleService) SetBloomPrecision(c *fiber.Ctx) error {
	var req struct {
		FalsePositiveRate float64 `json:"false_positive_rate"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.FalsePositiveRate <= 0 || req.FalsePositiveRate >= 1 {
		return failWith(c, models.ErrInvalidPrecision)
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		cfg, err := s.requireAdmin(c, tx)
		if err != nil {
			return err
		}
		cfg.BloomFalsePositiveRate = req.FalsePositiveRate
		return tx.Save(cfg).Error
	})
	if err != nil {
		return failWith(c, err)
	}
	return c.JSON(fiber.Map{"false_positive_rate": req.FalsePositiveRate})
}

type assetRequest struct {
	Asset          string `json:"asset"`
	MinEntryFee    uint64 `json:"min_entry_fee"`
	MinSponsorPool uint64 `json:"min_sponsor_pool"`
}

// ApproveAsset whitelists an escrow asset (or re-approves a banned one).
func (s *RoleService) ApproveAsset(c *fiber.Ctx) error {
	var req assetRequest
	if err := c.BodyParser(&req); err != nil || req.Asset == "" {
		return c.Status(400).JSON(fiber.Map{"error": "asset is required"})
	}

	var asset models.AssetInfo
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireAdmin(c, tx); err != nil {
			return err
		}
		asset = models.AssetInfo{
			Asset:          req.Asset,
			MinEntryFee:    req.MinEntryFee,
			MinSponsorPool: req.MinSponsorPool,
			Approved:       true,
		}
		return tx.Save(&asset).Error
	})
	if err != nil {
		return failWith(c, err)
	}
	return c.Status(201).JSON(asset)
}

// BanAsset blocks new tournaments against an asset. Running tournaments
// keep settling in it.
func (s *RoleService) BanAsset(c *fiber.Ctx) error {
	var req assetRequest
	if err := c.BodyParser(&req); err != nil || req.Asset == "" {
		return c.Status(400).JSON(fiber.Map{"error": "asset is required"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireAdmin(c, tx); err != nil {
			return err
		}
		var asset models.AssetInfo
		if err := tx.First(&asset, "asset = ?", req.Asset).Error; err != nil {
			return gorm.ErrRecordNotFound
		}
		asset.Approved = false
		return tx.Save(&asset).Error
	})
	if err != nil {
		return failWith(c, err)
	}
	return c.JSON(fiber.Map{"asset": req.Asset, "approved": false})
}

type roleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// GrantRole gives a user a role. Granting verifier also appends the user
// to the end of the verifier panel; the panel is capped so every decision
// fits one vote bitmask.
func (s *RoleService) GrantRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || !validRole(req.Role) {
		return c.Status(400).JSON(fiber.Map{"error": "user_id and a valid role are required"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireAdmin(c, tx); err != nil {
			return err
		}

		var existing models.RoleGrant
		if err := tx.First(&existing, "user_id = ? AND role = ?", req.UserID, req.Role).Error; err == nil {
			return models.ErrRoleAlreadyGranted
		}

		if req.Role == models.RoleVerifier {
			var panelSize int64
			if err := tx.Model(&models.PanelVerifier{}).Count(&panelSize).Error; err != nil {
				return err
			}
			if panelSize >= models.MaxPanelVerifiers {
				return models.ErrMaxVerifiersExceeded
			}
			entry := models.PanelVerifier{Position: int(panelSize), UserID: req.UserID}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		return tx.Create(&models.RoleGrant{UserID: req.UserID, Role: req.Role}).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	log.Printf("✅ Granted role %s to %s", req.Role, req.UserID)
	return c.Status(201).JSON(fiber.Map{"user_id": req.UserID, "role": req.Role})
}

// RevokeRole removes a role. Revoking verifier removes the user from the
// panel and shifts later positions down, like removing from a vector.
// Revoking mid-vote is not supported; operators must only rotate the panel
// between tournaments.
func (s *RoleService) RevokeRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || !validRole(req.Role) {
		return c.Status(400).JSON(fiber.Map{"error": "user_id and a valid role are required"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireAdmin(c, tx); err != nil {
			return err
		}

		var grant models.RoleGrant
		if err := tx.First(&grant, "user_id = ? AND role = ?", req.UserID, req.Role).Error; err != nil {
			return models.ErrRoleNotFound
		}

		if req.Role == models.RoleVerifier {
			var entry models.PanelVerifier
			if err := tx.First(&entry, "user_id = ?", req.UserID).Error; err == nil {
				if err := tx.Delete(&entry).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.PanelVerifier{}).
					Where("position > ?", entry.Position).
					Update("position", gorm.Expr("position - 1")).Error; err != nil {
					return err
				}
			}
		}

		return tx.Delete(&grant).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	log.Printf("🛑 Revoked role %s from %s", req.Role, req.UserID)
	return c.JSON(fiber.Map{"user_id": req.UserID, "role": req.Role})
}

// ClaimRoleFund pays out the caller's accrued fee balance for a role and
// zeroes it.
func (s *RoleService) ClaimRoleFund(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil || !validRole(req.Role) {
		return c.Status(400).JSON(fiber.Map{"error": "a valid role is required"})
	}

	var amount uint64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		cfg, err := loadPlatformConfig(tx)
		if err != nil {
			return err
		}

		var grant models.RoleGrant
		if err := tx.First(&grant, "user_id = ? AND role = ?", callerID, req.Role).Error; err != nil {
			return models.ErrRoleNotFound
		}
		if grant.Claim == 0 {
			return models.ErrInsufficientFunds
		}

		amount = grant.Claim
		if err := s.Ledger.Transfer(c.UserContext(), cfg.PlatformWallet, callerID, cfg.FeeAsset, amount); err != nil {
			return err
		}

		grant.Claim = 0
		return tx.Save(&grant).Error
	})
	if err != nil {
		return failWith(c, err)
	}

	return c.JSON(fiber.Map{"user_id": callerID, "role": req.Role, "amount": amount})
}

func (s *RoleService) requireAdmin(c *fiber.Ctx, tx *gorm.DB) (*models.PlatformConfig, error) {
	callerID, _ := c.Locals("user_id").(string)
	cfg, err := loadPlatformConfig(tx)
	if err != nil {
		return nil, err
	}
	if callerID == "" || callerID != cfg.AdminID {
		return nil, models.ErrNotAllowed
	}
	return cfg, nil
}

func validRole(role string) bool {
	switch role {
	case models.RoleOperator, models.RoleVerifier, models.RoleOrganizer:
		return true
	}
	return false
}
