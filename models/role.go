package models

import "time"

const (
	RoleOperator  = "operator"
	RoleVerifier  = "verifier"
	RoleOrganizer = "organizer"
)

// RoleGrant records that a user holds a role. Claim is the fee balance the
// user has accrued (verifier fees per vote, the organizer's platform-fee
// credit on cancellation) and not yet withdrawn.
type RoleGrant struct {
	UserID    string    `json:"user_id" gorm:"primaryKey"`
	Role      string    `json:"role" gorm:"primaryKey;type:varchar(16)"`
	Claim     uint64    `json:"claim"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PanelVerifier is one slot of the ordered verifier panel. Position is the
// dense index the consensus bitmasks are keyed by; removal shifts the
// positions of later entries down, exactly like removing from a vector.
// Removing a verifier while a vote is open is not supported.
type PanelVerifier struct {
	Position int    `json:"position" gorm:"primaryKey;autoIncrement:false"`
	UserID   string `json:"user_id" gorm:"uniqueIndex;not null"`
}

// MaxPanelVerifiers bounds the panel so every decision fits a single uint64
// vote bitmask.
const MaxPanelVerifiers = 64
