package services

import (
	"encoding/json"
	"fmt"

	"tournament-escrow-system/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// SettlementReport is the archival snapshot of a terminal tournament:
// the escrow totals, the consensus outcome and the per-participant claim
// state at archive time. It is written once and never re-generated.
type SettlementReport struct {
	TournamentID     uint64                  `json:"tournament_id"`
	Name             string                  `json:"name"`
	Slug             string                  `json:"slug"`
	Status           string                  `json:"status"`
	Asset            string                  `json:"asset"`
	TeamCount        int                     `json:"team_count"`
	PaidIn           uint64                  `json:"paid_in"`
	PaidOut          uint64                  `json:"paid_out"`
	PoolBalance      uint64                  `json:"pool_balance"`
	PaidInDisplay    string                  `json:"paid_in_display"`
	PaidOutDisplay   string                  `json:"paid_out_display"`
	SponsorReclaimed bool                    `json:"sponsor_reclaimed"`
	Finish           *models.FinishMetadata  `json:"finish,omitempty"`
	Votes            SettlementVotes         `json:"votes"`
	Participants     []SettlementParticipant `json:"participants"`
}

type SettlementVotes struct {
	Start  int `json:"start"`
	Cancel int `json:"cancel"`
	Finish int `json:"finish"`
}

type SettlementParticipant struct {
	UserID        string `json:"user_id"`
	Captain       string `json:"captain"`
	PaidByCaptain bool   `json:"paid_by_captain"`
	Claimed       bool   `json:"claimed"`
}

// amountPrinter groups digits for human-readable amounts in reports.
var amountPrinter = message.NewPrinter(language.English)

// BuildSettlementReport assembles the report for a tournament that already
// reached a terminal status.
func BuildSettlementReport(db *gorm.DB, t *models.Tournament) (*SettlementReport, error) {
	if t.Status != models.StatusFinished && t.Status != models.StatusCanceled {
		return nil, models.ErrInvalidStatus
	}

	report := &SettlementReport{
		TournamentID:     t.ID,
		Name:             t.Name,
		Slug:             t.Slug,
		Status:           t.Status,
		Asset:            t.Asset,
		TeamCount:        t.TeamCount,
		PaidIn:           t.PaidIn,
		PaidOut:          t.PaidOut,
		PoolBalance:      t.PoolBalance(),
		PaidInDisplay:    amountPrinter.Sprintf("%d", t.PaidIn),
		PaidOutDisplay:   amountPrinter.Sprintf("%d", t.PaidOut),
		SponsorReclaimed: t.SponsorReclaimed,
	}

	var tracker models.ConsensusTracker
	if err := db.First(&tracker, "tournament_id = ?", t.ID).Error; err == nil {
		report.Votes = SettlementVotes{
			Start:  tracker.VoteCount(models.DecisionStart),
			Cancel: tracker.VoteCount(models.DecisionCancel),
			Finish: tracker.VoteCount(models.DecisionFinish),
		}
	}

	if t.Status == models.StatusFinished {
		var meta models.FinishMetadata
		if err := db.First(&meta, "tournament_id = ?", t.ID).Error; err != nil {
			return nil, fmt.Errorf("finished tournament %d has no finish metadata: %w", t.ID, err)
		}
		report.Finish = &meta
	}

	var participants []models.Participant
	if err := db.Where("tournament_id = ?", t.ID).Order("id ASC").Find(&participants).Error; err != nil {
		return nil, err
	}
	for _, p := range participants {
		report.Participants = append(report.Participants, SettlementParticipant{
			UserID:        p.UserID,
			Captain:       p.Captain,
			PaidByCaptain: p.PaidByCaptain,
			Claimed:       p.Claimed,
		})
	}

	return report, nil
}

// Marshal renders the report as indented JSON for the archive object.
func (r *SettlementReport) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ObjectKey is the R2 key the report is archived under.
func (r *SettlementReport) ObjectKey() string {
	return fmt.Sprintf("reports/settlement-%d.json", r.TournamentID)
}
