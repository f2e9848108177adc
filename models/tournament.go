package models

import (
	"time"
)

// Tournament status values. Transitions only move forward:
// new -> started -> finished, with canceled reachable from new or started.
const (
	StatusNew      = "new"
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusCanceled = "canceled"
)

// Tournament is the escrow-backed tournament record. ID is the platform
// nonce at creation time. Config fields are immutable once created; only
// Status, TeamCount, the escrow bookkeeping columns and the archive marker
// are mutated afterwards, and only through the defined transitions.
type Tournament struct {
	ID   uint64 `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name string `json:"name"`
	Slug string `json:"slug" gorm:"index"`

	// Immutable config
	OrganizerID         string    `json:"organizer_id" gorm:"not null;index"`
	SponsorID           string    `json:"sponsor_id"`
	Asset               string    `json:"asset" gorm:"not null"`
	OrganizerRoyaltyBps uint64    `json:"organizer_royalty_bps"`
	SponsorPool         uint64    `json:"sponsor_pool"`
	EntryFee            uint64    `json:"entry_fee"`
	TeamSize            int       `json:"team_size"`
	MinTeams            int       `json:"min_teams"`
	MaxTeams            int       `json:"max_teams"`
	RegistrationStart   time.Time `json:"registration_start"`

	Status    string `json:"status" gorm:"default:'new';index"`
	TeamCount int    `json:"team_count"` // completed teams only

	// Escrow bookkeeping: every pool movement goes through Credit/Debit so
	// PaidOut can never exceed PaidIn.
	PaidIn           uint64 `json:"paid_in"`
	PaidOut          uint64 `json:"paid_out"`
	SponsorReclaimed bool   `json:"sponsor_reclaimed"`

	ReportArchivedAt *time.Time `json:"report_archived_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// PoolBalance is the escrowed amount still held for this tournament.
func (t *Tournament) PoolBalance() uint64 {
	return t.PaidIn - t.PaidOut
}

// Credit records an inbound pool transfer.
func (t *Tournament) Credit(amount uint64) {
	t.PaidIn += amount
}

// Debit records an outbound pool transfer, rejecting any payout the pool
// cannot cover before a ledger transfer is attempted.
func (t *Tournament) Debit(amount uint64) error {
	if amount > t.PoolBalance() {
		return ErrInsufficientFunds
	}
	t.PaidOut += amount
	return nil
}

// PoolAccount is the ledger account the tournament escrows funds in.
func (t *Tournament) PoolAccount() string {
	return poolAccountName(t.ID)
}

func poolAccountName(id uint64) string {
	return "tournament-pool-" + itoa(id)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// FinishMetadata is locked exactly once, when the finish vote reaches the
// consensus threshold. RewardPerWinner is paid lazily per participant; the
// floor-division leftover stays in the pool and is never redistributed.
type FinishMetadata struct {
	TournamentID    uint64    `json:"tournament_id" gorm:"primaryKey;autoIncrement:false"`
	WinnerCaptain   string    `json:"winner_captain" gorm:"not null"`
	RewardPool      uint64    `json:"reward_pool"`
	OrganizerReward uint64    `json:"organizer_reward"`
	RewardPerWinner uint64    `json:"reward_per_winner"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// ComputeFinish derives the finish split for a tournament. All arithmetic
// is integer floor division, so
// organizer_reward + reward_per_winner*team_size <= reward_pool always
// holds and the pool never goes negative.
func ComputeFinish(t *Tournament, winnerCaptain string) FinishMetadata {
	rewardPool := t.SponsorPool + t.EntryFee*uint64(t.TeamCount)
	organizerReward := rewardPool * t.OrganizerRoyaltyBps / 10000
	var rewardPerWinner uint64
	if t.TeamSize > 0 {
		rewardPerWinner = (rewardPool - organizerReward) / uint64(t.TeamSize)
	}
	return FinishMetadata{
		TournamentID:    t.ID,
		WinnerCaptain:   winnerCaptain,
		RewardPool:      rewardPool,
		OrganizerReward: organizerReward,
		RewardPerWinner: rewardPerWinner,
	}
}

// BloomRegistry holds the serialized duplicate-registration filter for one
// tournament. Data is sized once at creation and append-only afterwards.
type BloomRegistry struct {
	TournamentID uint64 `json:"tournament_id" gorm:"primaryKey;autoIncrement:false"`
	Data         []byte `json:"-" gorm:"type:bytea"`
}

// PoolBalanceMirror is the ledger-side view of a tournament pool, refreshed
// by the balance sync worker for drift detection. Purely observational.
type PoolBalanceMirror struct {
	TournamentID  uint64    `json:"tournament_id" gorm:"primaryKey;autoIncrement:false"`
	LedgerBalance uint64    `json:"ledger_balance"`
	EscrowBalance uint64    `json:"escrow_balance"`
	Drift         int64     `json:"drift"`
	SyncedAt      time.Time `json:"synced_at"`
}
