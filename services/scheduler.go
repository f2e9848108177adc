// services/scheduler.go
package services

import (
	"log"
	"time"

	"tournament-escrow-system/models"
	"tournament-escrow-system/utils"

	"github.com/go-co-op/gocron/v2"
)

// StartSettlementScheduler sweeps terminal tournaments whose settlement
// report has not been archived yet, uploads the report to R2 and stamps the
// archive marker. Failures are retried on the next sweep.
func (s *TournamentService) StartSettlementScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			var tournaments []models.Tournament
			err := s.DB.Where("status IN ? AND report_archived_at IS NULL",
				[]string{models.StatusFinished, models.StatusCanceled}).
				Find(&tournaments).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for i := range tournaments {
				t := &tournaments[i]
				report, err := BuildSettlementReport(s.DB, t)
				if err != nil {
					log.Printf("[Scheduler] Failed to build report for tournament %d: %v", t.ID, err)
					continue
				}
				payload, err := report.Marshal()
				if err != nil {
					log.Printf("[Scheduler] Failed to marshal report for tournament %d: %v", t.ID, err)
					continue
				}
				url, err := utils.UploadBytesToR2(payload, report.ObjectKey(), "application/json")
				if err != nil {
					log.Printf("[Scheduler] Failed to archive report for tournament %d: %v", t.ID, err)
					continue
				}

				now := time.Now()
				t.ReportArchivedAt = &now
				if err := s.DB.Save(t).Error; err != nil {
					log.Printf("[Scheduler] Failed to mark tournament %d archived: %v", t.ID, err)
				} else {
					log.Printf("✅ Archived settlement report for tournament %d: %s", t.ID, url)
				}
			}
		}),
	)
}
