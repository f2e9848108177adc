package services

import (
	"net/http"
	"testing"

	"tournament-escrow-system/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRoleEnv(t *testing.T, seedConfig bool) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.PlatformConfig{},
		&models.AssetInfo{},
		&models.RoleGrant{},
		&models.PanelVerifier{},
	))

	if seedConfig {
		require.NoError(t, db.Create(&models.PlatformConfig{
			ID:                     models.PlatformConfigID,
			AdminID:                "admin",
			PlatformWallet:         "platform-wallet",
			FeeAsset:               "USDC",
			ConsensusThresholdBps:  5100,
			BloomFalsePositiveRate: 0.000065,
			MinTeams:               1,
			MaxTeams:               16,
		}).Error)
	}

	ledger := newFakeLedger()
	roles := NewRoleService(db, ledger)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-User-ID"))
		return c.Next()
	})
	app.Post("/s/admin/platform/init", roles.InitializePlatform)
	app.Patch("/s/admin/platform/bloom-precision", roles.SetBloomPrecision)
	app.Post("/s/admin/assets/approve", roles.ApproveAsset)
	app.Post("/s/admin/assets/ban", roles.BanAsset)
	app.Post("/s/admin/roles/grant", roles.GrantRole)
	app.Post("/s/admin/roles/revoke", roles.RevokeRole)

	return &testEnv{db: db, ledger: ledger, app: app}
}

func TestInitializePlatformRunsOnce(t *testing.T) {
	env := newRoleEnv(t, false)

	payload := fiber.Map{
		"admin_id":                  "admin",
		"platform_wallet":           "platform-wallet",
		"fee_asset":                 "USDC",
		"platform_fee":              20,
		"verifier_fee":              5,
		"consensus_threshold_bps":   5100,
		"bloom_false_positive_rate": 0.000065,
		"max_organizer_royalty_bps": 2000,
		"min_teams":                 1,
		"max_teams":                 16,
	}

	status, _ := env.do(t, http.MethodPost, "/s/admin/platform/init", "admin", payload)
	require.Equal(t, 201, status)

	status, _ = env.do(t, http.MethodPost, "/s/admin/platform/init", "admin", payload)
	require.Equal(t, 403, status, "the config row is a singleton")
}

func TestGrantVerifierBuildsPanel(t *testing.T) {
	env := newRoleEnv(t, true)

	for _, v := range []string{"v1", "v2", "v3"} {
		status, _ := env.do(t, http.MethodPost, "/s/admin/roles/grant", "admin", fiber.Map{
			"user_id": v, "role": "verifier",
		})
		require.Equal(t, 201, status)
	}

	status, _ := env.do(t, http.MethodPost, "/s/admin/roles/grant", "admin", fiber.Map{
		"user_id": "v2", "role": "verifier",
	})
	require.Equal(t, 409, status)

	var panel []models.PanelVerifier
	require.NoError(t, env.db.Order("position ASC").Find(&panel).Error)
	require.Len(t, panel, 3)
	for i, entry := range panel {
		require.Equal(t, i, entry.Position)
	}
}

func TestRevokeVerifierShiftsPositions(t *testing.T) {
	env := newRoleEnv(t, true)

	for _, v := range []string{"v1", "v2", "v3"} {
		status, _ := env.do(t, http.MethodPost, "/s/admin/roles/grant", "admin", fiber.Map{
			"user_id": v, "role": "verifier",
		})
		require.Equal(t, 201, status)
	}

	status, _ := env.do(t, http.MethodPost, "/s/admin/roles/revoke", "admin", fiber.Map{
		"user_id": "v2", "role": "verifier",
	})
	require.Equal(t, 200, status)

	var panel []models.PanelVerifier
	require.NoError(t, env.db.Order("position ASC").Find(&panel).Error)
	require.Len(t, panel, 2)
	require.Equal(t, "v1", panel[0].UserID)
	require.Equal(t, 0, panel[0].Position)
	require.Equal(t, "v3", panel[1].UserID)
	require.Equal(t, 1, panel[1].Position)

	status, _ = env.do(t, http.MethodPost, "/s/admin/roles/revoke", "admin", fiber.Map{
		"user_id": "v2", "role": "verifier",
	})
	require.Equal(t, 400, status, "already revoked")
}

func TestAdminOnlyGuards(t *testing.T) {
	env := newRoleEnv(t, true)

	status, _ := env.do(t, http.MethodPost, "/s/admin/roles/grant", "mallory", fiber.Map{
		"user_id": "v1", "role": "verifier",
	})
	require.Equal(t, 403, status)

	status, _ = env.do(t, http.MethodPost, "/s/admin/assets/approve", "mallory", fiber.Map{"asset": "USDC"})
	require.Equal(t, 403, status)
}

func TestAssetApproveAndBan(t *testing.T) {
	env := newRoleEnv(t, true)

	status, _ := env.do(t, http.MethodPost, "/s/admin/assets/approve", "admin", fiber.Map{
		"asset": "USDC", "min_entry_fee": 1, "min_sponsor_pool": 10,
	})
	require.Equal(t, 201, status)

	status, _ = env.do(t, http.MethodPost, "/s/admin/assets/ban", "admin", fiber.Map{"asset": "USDC"})
	require.Equal(t, 200, status)

	var asset models.AssetInfo
	require.NoError(t, env.db.First(&asset, "asset = ?", "USDC").Error)
	require.False(t, asset.Approved)

	status, _ = env.do(t, http.MethodPost, "/s/admin/assets/ban", "admin", fiber.Map{"asset": "DOGE"})
	require.Equal(t, 404, status)
}

func TestSetBloomPrecisionValidation(t *testing.T) {
	env := newRoleEnv(t, true)

	status, _ := env.do(t, http.MethodPatch, "/s/admin/platform/bloom-precision", "admin", fiber.Map{
		"false_positive_rate": 1.5,
	})
	require.Equal(t, 400, status)

	status, _ = env.do(t, http.MethodPatch, "/s/admin/platform/bloom-precision", "admin", fiber.Map{
		"false_positive_rate": 0.001,
	})
	require.Equal(t, 200, status)

	var cfg models.PlatformConfig
	require.NoError(t, env.db.First(&cfg, "id = ?", models.PlatformConfigID).Error)
	require.Equal(t, 0.001, cfg.BloomFalsePositiveRate)
}
