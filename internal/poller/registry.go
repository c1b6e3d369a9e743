package poller

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/reelrocket/pulse/internal/models"
)

// WatchStore is the slice of the store the registry needs to make the
// watch list survive restarts.
type WatchStore interface {
	SnapshotSink
	UpsertWatchedJob(jobID, label string, createdAt time.Time) error
	RemoveWatchedJob(jobID string) error
	ListWatchedJobs() ([]*models.WatchedJob, error)
}

// Registry owns at most one poller per job id.
type Registry struct {
	api      VideoAPI
	hub      Broadcaster
	store    WatchStore
	interval time.Duration

	mu      sync.Mutex
	pollers map[string]*Poller
}

// NewRegistry creates an empty registry. store may be nil (CLI mode).
func NewRegistry(api VideoAPI, hub Broadcaster, store WatchStore, interval time.Duration) *Registry {
	return &Registry{
		api:      api,
		hub:      hub,
		store:    store,
		interval: interval,
		pollers:  make(map[string]*Poller),
	}
}

// Watch starts watching a job. Watching an already watched job returns
// the existing poller; there is never a second concurrent cycle for one
// job id.
func (r *Registry) Watch(jobID, label string) (*Poller, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id is required")
	}

	r.mu.Lock()
	p, exists := r.pollers[jobID]
	if !exists {
		var sink SnapshotSink
		if r.store != nil {
			sink = r.store
		}
		p = New(jobID, label, r.api, r.hub, sink, r.interval)
		r.pollers[jobID] = p
	}
	r.mu.Unlock()

	if r.store != nil && !exists {
		if err := r.store.UpsertWatchedJob(jobID, label, time.Now()); err != nil {
			log.Printf("Failed to persist watched job %s: %v", jobID, err)
		}
	}

	p.Start()
	return p, nil
}

// Unwatch stops and forgets a job's poller.
func (r *Registry) Unwatch(jobID string) error {
	r.mu.Lock()
	p, ok := r.pollers[jobID]
	if ok {
		delete(r.pollers, jobID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %s is not being watched", jobID)
	}
	p.Stop()

	if r.store != nil {
		if err := r.store.RemoveWatchedJob(jobID); err != nil {
			return fmt.Errorf("remove watched job %s: %w", jobID, err)
		}
	}
	return nil
}

// Get returns the poller for a job id, if watched.
func (r *Registry) Get(jobID string) (*Poller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pollers[jobID]
	return p, ok
}

// Snapshots returns the current projection of every watched job, sorted
// by job id for stable output.
func (r *Registry) Snapshots() []models.JobStatus {
	r.mu.Lock()
	pollers := make([]*Poller, 0, len(r.pollers))
	for _, p := range r.pollers {
		pollers = append(pollers, p)
	}
	r.mu.Unlock()

	statuses := make([]models.JobStatus, 0, len(pollers))
	for _, p := range pollers {
		statuses = append(statuses, p.Status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].JobID < statuses[j].JobID })
	return statuses
}

// Resume restarts polling for every persisted, not-yet-completed watched
// job. Called once at daemon startup.
func (r *Registry) Resume() error {
	if r.store == nil {
		return nil
	}
	jobs, err := r.store.ListWatchedJobs()
	if err != nil {
		return fmt.Errorf("list watched jobs: %w", err)
	}

	resumed := 0
	for _, job := range jobs {
		if job.CompletedAt != nil {
			continue
		}
		if _, err := r.Watch(job.JobID, job.Label); err != nil {
			log.Printf("Failed to resume watching job %s: %v", job.JobID, err)
			continue
		}
		resumed++
	}
	if resumed > 0 {
		log.Printf("Resumed watching %d job(s).", resumed)
	}
	return nil
}

// StopAll stops every poller. Called on daemon shutdown so no timer keeps
// firing after the consumer is gone.
func (r *Registry) StopAll() {
	r.mu.Lock()
	pollers := make([]*Poller, 0, len(r.pollers))
	for _, p := range r.pollers {
		pollers = append(pollers, p)
	}
	r.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
}
