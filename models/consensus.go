package models

import (
	"math/bits"
	"time"
)

// Consensus decisions. Each decision is voted on independently.
const (
	DecisionStart  = "start"
	DecisionCancel = "cancel"
	DecisionFinish = "finish"
)

// ConsensusTracker holds one vote bitmask per decision for a tournament,
// one bit per verifier panel position.
type ConsensusTracker struct {
	TournamentID uint64 `json:"tournament_id" gorm:"primaryKey;autoIncrement:false"`
	StartVotes   uint64 `json:"start_votes"`
	CancelVotes  uint64 `json:"cancel_votes"`
	FinishVotes  uint64 `json:"finish_votes"`
}

func (c *ConsensusTracker) mask(decision string) *uint64 {
	switch decision {
	case DecisionStart:
		return &c.StartVotes
	case DecisionCancel:
		return &c.CancelVotes
	case DecisionFinish:
		return &c.FinishVotes
	}
	return nil
}

// CastVote sets the panel-position bit for a decision. A bit that is
// already set means the verifier voted before and is rejected.
func (c *ConsensusTracker) CastVote(decision string, position int) error {
	mask := c.mask(decision)
	if mask == nil || position < 0 || position >= MaxPanelVerifiers {
		return ErrNotAllowed
	}
	if (*mask>>uint(position))&1 == 1 {
		return ErrAlreadyVoted
	}
	*mask |= 1 << uint(position)
	return nil
}

// VoteCount returns how many verifiers have voted for a decision.
func (c *ConsensusTracker) VoteCount(decision string) int {
	mask := c.mask(decision)
	if mask == nil {
		return 0
	}
	return bits.OnesCount64(*mask)
}

// ThresholdReached compares votes against the panel in integer basis
// points, avoiding floating-point ratio nondeterminism.
func ThresholdReached(votes, panelSize int, thresholdBps uint64) bool {
	if panelSize == 0 {
		return false
	}
	return uint64(votes)*10000 >= uint64(panelSize)*thresholdBps
}

// FinishVote records one verifier's winning-captain choice, in arrival
// order (autoincrement ID). Kept alongside the finish bitmask so the winner
// can be resolved by plurality once the threshold is reached.
type FinishVote struct {
	ID           uint64    `json:"id" gorm:"primaryKey"`
	TournamentID uint64    `json:"tournament_id" gorm:"index"`
	VerifierID   string    `json:"verifier_id" gorm:"not null"`
	Captain      string    `json:"captain" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// ResolveWinner picks the captain with the most finish votes. Ties break in
// favor of the captain who reached the winning count first, which is
// deterministic because votes carry arrival order.
func ResolveWinner(votes []FinishVote) (string, bool) {
	if len(votes) == 0 {
		return "", false
	}

	counts := make(map[string]int, len(votes))
	winner := ""
	best := 0
	for _, v := range votes {
		counts[v.Captain]++
		if counts[v.Captain] > best {
			best = counts[v.Captain]
			winner = v.Captain
		}
	}
	return winner, true
}
