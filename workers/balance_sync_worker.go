package workers

import (
	"context"
	"log"
	"time"

	"tournament-escrow-system/models"
	"tournament-escrow-system/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceSyncWorker mirrors ledger-side pool balances into the local DB and
// flags drift against the escrow bookkeeping. Read-only towards the ledger:
// it never moves funds, only observes.
type BalanceSyncWorker struct {
	DB     *gorm.DB
	Ledger services.LedgerService
}

func NewBalanceSyncWorker(db *gorm.DB, ledger services.LedgerService) *BalanceSyncWorker {
	return &BalanceSyncWorker{DB: db, Ledger: ledger}
}

// PollPoolBalances polls the ledger for every non-archived tournament pool
// on a fixed interval and upserts the mirror rows.
func (w *BalanceSyncWorker) PollPoolBalances(ctx context.Context, pollInterval time.Duration) {
	log.Println("Starting pool balance polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Pool balance polling stopped.")
			return
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

func (w *BalanceSyncWorker) syncOnce(ctx context.Context) {
	var tournaments []models.Tournament
	if err := w.DB.Where("report_archived_at IS NULL").Find(&tournaments).Error; err != nil {
		log.Printf("❌ Error loading tournaments for balance sync: %v", err)
		return
	}
	if len(tournaments) == 0 {
		return
	}

	mirrors := make([]models.PoolBalanceMirror, 0, len(tournaments))
	now := time.Now().UTC()
	for i := range tournaments {
		t := &tournaments[i]
		ledgerBalance, err := w.Ledger.Balance(ctx, t.PoolAccount(), t.Asset)
		if err != nil {
			log.Printf("❌ Error fetching ledger balance for tournament %d: %v", t.ID, err)
			continue
		}

		drift := int64(ledgerBalance) - int64(t.PoolBalance())
		if drift != 0 {
			log.Printf("⚠️ Pool drift on tournament %d: ledger=%d escrow=%d", t.ID, ledgerBalance, t.PoolBalance())
		}

		mirrors = append(mirrors, models.PoolBalanceMirror{
			TournamentID:  t.ID,
			LedgerBalance: ledgerBalance,
			EscrowBalance: t.PoolBalance(),
			Drift:         drift,
			SyncedAt:      now,
		})
	}

	if len(mirrors) == 0 {
		return
	}

	if err := w.DB.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "tournament_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"ledger_balance",
				"escrow_balance",
				"drift",
				"synced_at",
			}),
		},
	).Create(&mirrors).Error; err != nil {
		log.Printf("❌ Failed to upsert %d pool balance mirror(s): %v", len(mirrors), err)
		return
	}

	log.Printf("✅ Synced %d pool balance(s).", len(mirrors))
}
