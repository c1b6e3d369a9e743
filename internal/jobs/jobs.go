package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/reelrocket/pulse/internal/billing"
	"github.com/reelrocket/pulse/internal/config"
	"github.com/reelrocket/pulse/internal/store"
)

// Completed watch records older than this are pruned daily.
const completedRetention = 7 * 24 * time.Hour

// StartJobs starts the background job scheduler and returns it so the
// caller can stop it on shutdown.
func StartJobs(cfg *config.Config, billingSvc *billing.Service, st *store.Store) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startBillingRefreshJob(s, cfg, billingSvc)
	startWatchPruneJob(s, st)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startBillingRefreshJob(s *gocron.Scheduler, cfg *config.Config, billingSvc *billing.Service) {
	interval := cfg.BillingRefreshInterval
	if interval == 0 {
		log.Println("Billing refresh interval is 0, scheduled refresh is disabled.")
		return
	}

	jobId := "billing-refresh"
	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobId, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		log.Println("Scheduler is triggering job:", jobId)
		RunBillingRefresh(billingSvc)
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}

func startWatchPruneJob(s *gocron.Scheduler, st *store.Store) {
	jobId := "watch-prune"
	log.Printf("Scheduling job: '%s' to run daily.", jobId)

	_, err := s.Every(1).Day().Do(func() {
		log.Println("Scheduler is triggering job:", jobId)
		RunWatchPrune(st)
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}

// RunBillingRefresh re-fetches the billing projection. A failed fetch
// leaves the cached projection valid; the next run retries.
func RunBillingRefresh(billingSvc *billing.Service) {
	if _, err := billingSvc.Refresh(); err != nil {
		log.Printf("Billing refresh failed: %v", err)
	}
}

// RunWatchPrune removes watch records for jobs that completed longer ago
// than the retention window.
func RunWatchPrune(st *store.Store) {
	pruned, err := st.PruneCompletedBefore(time.Now().Add(-completedRetention))
	if err != nil {
		log.Printf("Watch prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("Pruned %d completed watch record(s).", pruned)
	}
}
