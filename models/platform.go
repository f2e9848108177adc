package models

import "time"

// PlatformConfig is the single root configuration row (ID is always 1).
// TournamentNonce is the monotonic tournament ID counter; it is read and
// incremented inside the same transaction that creates a tournament, so IDs
// are gapless per committed creation and never shared between tournaments.
type PlatformConfig struct {
	ID                     uint      `json:"id" gorm:"primaryKey"`
	AdminID                string    `json:"admin_id" gorm:"not null"`
	PlatformWallet         string    `json:"platform_wallet" gorm:"not null"`
	FeeAsset               string    `json:"fee_asset" gorm:"not null"` // asset the platform creation fee is charged in
	PlatformFee            uint64    `json:"platform_fee"`
	VerifierFee            uint64    `json:"verifier_fee"` // accrued per successful vote
	ConsensusThresholdBps  uint64    `json:"consensus_threshold_bps" gorm:"default:5100"`
	BloomFalsePositiveRate float64   `json:"bloom_false_positive_rate" gorm:"default:0.000065"`
	MaxOrganizerRoyaltyBps uint64    `json:"max_organizer_royalty_bps"`
	MinTeams               int       `json:"min_teams"`
	MaxTeams               int       `json:"max_teams"`
	TournamentNonce        uint64    `json:"tournament_nonce"`
	CreatedAt              time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

const PlatformConfigID = 1

// AssetInfo whitelists an escrow asset and carries its platform minimums.
// Tournaments can only be created against an approved asset.
type AssetInfo struct {
	Asset          string    `json:"asset" gorm:"primaryKey"`
	MinEntryFee    uint64    `json:"min_entry_fee"`
	MinSponsorPool uint64    `json:"min_sponsor_pool"`
	Approved       bool      `json:"approved" gorm:"default:true"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
