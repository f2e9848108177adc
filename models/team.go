package models

import "time"

// Participant is one roster slot. Claimed covers both payout paths: a
// refunded participant and a rewarded participant are equally settled.
type Participant struct {
	ID            uint64    `json:"id" gorm:"primaryKey"` // autoincrement, preserves roster order
	TournamentID  uint64    `json:"tournament_id" gorm:"index:idx_team_roster,priority:1"`
	Captain       string    `json:"captain" gorm:"index:idx_team_roster,priority:2"`
	UserID        string    `json:"user_id" gorm:"not null"`
	PaidByCaptain bool      `json:"paid_by_captain"`
	Claimed       bool      `json:"claimed"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Team is the per-captain roster for a tournament. Completed flips exactly
// once, when the roster reaches TeamSize; the tournament's completed-team
// counter is incremented on that flip and never again for the same team.
type Team struct {
	TournamentID uint64    `json:"tournament_id" gorm:"primaryKey;autoIncrement:false"`
	Captain      string    `json:"captain" gorm:"primaryKey"`
	TeamSize     int       `json:"team_size"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`

	Participants []Participant `json:"participants,omitempty" gorm:"-"`
}

func NewTeam(tournamentID uint64, captain string, teamSize int) *Team {
	return &Team{
		TournamentID: tournamentID,
		Captain:      captain,
		TeamSize:     teamSize,
	}
}

// AddParticipantsByCaptain appends a captain-paid batch to the roster. The
// whole batch is rejected if it would overflow the team.
func (t *Team) AddParticipantsByCaptain(userIDs []string) error {
	if len(t.Participants)+len(userIDs) > t.TeamSize {
		return ErrMaxPlayersExceeded
	}

	for _, id := range userIDs {
		t.Participants = append(t.Participants, Participant{
			TournamentID:  t.TournamentID,
			Captain:       t.Captain,
			UserID:        id,
			PaidByCaptain: true,
		})
	}

	t.markCompleted()
	return nil
}

// AddParticipant appends a self-paying participant to the roster.
func (t *Team) AddParticipant(userID string) error {
	if len(t.Participants) == t.TeamSize {
		return ErrMaxPlayersExceeded
	}

	t.Participants = append(t.Participants, Participant{
		TournamentID: t.TournamentID,
		Captain:      t.Captain,
		UserID:       userID,
	})

	t.markCompleted()
	return nil
}

func (t *Team) markCompleted() {
	if len(t.Participants) == t.TeamSize {
		t.Completed = true
	}
}

// RefundParticipant settles the refund for one caller and returns the
// entry-fee multiplier owed to them:
//
//   - a self-paid participant gets 1;
//   - a captain-paid participant gets 0 (their fee accrues to the captain);
//   - the captain gets one share per captain-paid, not-yet-refunded roster
//     member (the captain included), and those members are marked refunded
//     so the batch can never be paid twice.
//
// A second call for the same participant returns ErrAlreadyClaimed.
func (t *Team) RefundParticipant(userID string) (uint64, error) {
	info := t.findParticipant(userID)
	if info == nil {
		return 0, ErrParticipantNotFound
	}
	if info.Claimed {
		return 0, ErrAlreadyClaimed
	}

	if !info.PaidByCaptain {
		info.Claimed = true
		return 1, nil
	}

	if userID != t.Captain {
		info.Claimed = true
		return 0, nil
	}

	var count uint64
	for i := range t.Participants {
		p := &t.Participants[i]
		if p.PaidByCaptain && !p.Claimed {
			p.Claimed = true
			count++
		}
	}
	return count, nil
}

// RewardParticipant marks a winning-team member as paid. Strictly
// idempotent: the second call errors.
func (t *Team) RewardParticipant(userID string) error {
	info := t.findParticipant(userID)
	if info == nil {
		return ErrParticipantNotFound
	}
	if info.Claimed {
		return ErrAlreadyClaimed
	}
	info.Claimed = true
	return nil
}

func (t *Team) findParticipant(userID string) *Participant {
	for i := range t.Participants {
		if t.Participants[i].UserID == userID {
			return &t.Participants[i]
		}
	}
	return nil
}
