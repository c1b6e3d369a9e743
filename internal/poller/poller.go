// The poller drives the job-status reconciliation loop: it fetches a
// job's remote state on a fixed interval, folds each response into a
// monotonic local projection, and broadcasts the result to dashboard
// clients. The remote pipeline is the source of truth; the projection
// only ever moves forward until a recreate resets it.

package poller

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/reelrocket/pulse/internal/models"
)

// restartThreshold is how old a job must be before a manual restart is
// offered for an incomplete run.
const restartThreshold = 2 * time.Hour

// VideoAPI is the slice of the remote client the poller needs.
type VideoAPI interface {
	GetVideo(id string) (*models.VideoStatus, error)
	RecreateVideo(id string) error
}

// Broadcaster receives every projection change. The daemon wires the
// websocket hub here; the CLI wires a console printer.
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
}

// SnapshotSink persists the last observed state of a watched job so the
// daemon can show something on restart. May be nil.
type SnapshotSink interface {
	UpdateWatchedJobSnapshot(jobID string, percent int, phase, errMsg string) error
	MarkWatchedJobCompleted(jobID string, at time.Time) error
}

// projection is the poller's internal view of one job run. peak is the
// high-water percent used to reject regressing (out-of-order) responses;
// the displayed percent drops to zero while an error is active without
// losing the high-water mark.
type projection struct {
	flags      []bool
	peak       int
	errMsg     string
	createdAt  time.Time
	celebrated bool
	retrying   bool
	seen       bool // at least one successful fetch applied
}

// Poller watches a single job.
type Poller struct {
	jobID    string
	label    string
	api      VideoAPI
	hub      Broadcaster
	sink     SnapshotSink
	interval time.Duration

	// OnComplete fires exactly once per transition into 100 percent.
	OnComplete func(jobID string)

	mu      sync.Mutex
	proj    projection
	running bool
	gen     int // bumped on stop/recreate; in-flight responses from older generations are discarded
	stopCh  chan struct{}
	timeNow func() time.Time // injectable for eligibility tests
}

// New creates a poller for one job. interval is the fetch period.
func New(jobID, label string, api VideoAPI, hub Broadcaster, sink SnapshotSink, interval time.Duration) *Poller {
	return &Poller{
		jobID:    jobID,
		label:    label,
		api:      api,
		hub:      hub,
		sink:     sink,
		interval: interval,
		proj:     newProjection(),
		timeNow:  time.Now,
	}
}

func newProjection() projection {
	return projection{flags: make([]bool, len(models.Pipeline))}
}

// Start begins the repeating fetch cycle. Calling Start on a running
// poller is a no-op; there is never more than one cycle per poller.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.gen++
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	p.mu.Unlock()

	go func() {
		// Initial fetch before the first tick, like the dashboard does.
		// The generation is re-read every cycle: a recreate bumps it to
		// discard the fetch in flight, and the next cycle polls the new
		// run under the new generation.
		if gen, ok := p.activeGen(); ok {
			p.tick(gen)
		}

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if gen, ok := p.activeGen(); ok {
					p.tick(gen)
				}
			case <-stopCh:
				return
			}
		}
	}()
}

// activeGen returns the generation the next fetch should be issued under.
// ok is false once the cycle has been stopped, so a ticker firing in the
// same instant as Stop cannot slip one more update through.
func (p *Poller) activeGen() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen, p.running
}

// Stop cancels the repeating cycle. After Stop returns no further
// projection updates occur; a fetch already in flight is discarded by the
// generation guard when it lands.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.gen++
	close(p.stopCh)
}

// Running reports whether the fetch cycle is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// tick issues one status fetch and applies the response. gen identifies
// the cycle that issued the fetch; a response landing after Stop or
// Recreate belongs to a superseded cycle and must not touch the
// projection.
func (p *Poller) tick(gen int) {
	video, err := p.api.GetVideo(p.jobID)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}

	if err != nil {
		// A transient fetch failure never regresses or errors out a
		// healthy projection. Surface a notice and wait for the next
		// cycle.
		p.mu.Unlock()
		log.Printf("Status fetch failed for job %s: %v", p.jobID, err)
		p.notify(models.ProgressUpdate{
			JobID:   p.jobID,
			Status:  "notice",
			Message: "Failed to get video progress",
		})
		return
	}

	status, completed := p.applyLocked(video)
	p.mu.Unlock()

	p.publish(status)
	if completed && p.OnComplete != nil {
		p.OnComplete(p.jobID)
	}
}

// applyLocked folds one successful response into the projection and
// returns the resulting snapshot. The second return value is true only on
// the transition into 100 percent. Caller holds p.mu.
func (p *Poller) applyLocked(video *models.VideoStatus) (models.JobStatus, bool) {
	if !video.CreatedAt.IsZero() {
		p.proj.createdAt = video.CreatedAt
	}

	if video.Error != "" {
		// Terminal pipeline failure. Progress display halts at zero
		// until a recreate; the flag set is kept so a recreate-free
		// resume cannot regress it.
		p.proj.errMsg = video.Error
		p.proj.seen = true
		return p.snapshotLocked(), false
	}

	// A successful fetch without an error clears a previously surfaced
	// one and resumes progress display.
	p.proj.errMsg = ""
	p.proj.retrying = false
	p.proj.seen = true

	// Monotonic merge: the flag set only grows. An out-of-order response
	// carrying fewer flags contributes nothing and cannot regress the
	// projection.
	for i, set := range video.StageFlags() {
		if set {
			p.proj.flags[i] = true
		}
	}

	// The server's own percent is authoritative when present; the stage
	// table is the fallback. Either way the high-water mark only rises.
	percent := video.Progress
	if percent <= 0 {
		percent = models.StagePercent(p.proj.flags)
	}
	if percent > p.proj.peak {
		p.proj.peak = percent
	}

	completed := false
	if p.proj.peak >= 100 && !p.proj.celebrated {
		p.proj.celebrated = true
		completed = true
	}

	return p.snapshotLocked(), completed
}

// Recreate issues a restart command for the job. On success the entire
// local projection is reset so stale flags cannot leak across the
// recreate; the remote system clears its own error and stage state
// independently.
func (p *Poller) Recreate() error {
	if err := p.api.RecreateVideo(p.jobID); err != nil {
		return fmt.Errorf("recreate job %s: %w", p.jobID, err)
	}

	p.mu.Lock()
	p.gen++ // discard any fetch already in flight against the old run
	p.proj = newProjection()
	p.proj.retrying = true
	status := p.snapshotLocked()
	p.mu.Unlock()

	log.Printf("Job %s recreated, projection reset.", p.jobID)
	p.publish(status)
	return nil
}

// Status returns the current projection snapshot.
func (p *Poller) Status() models.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// snapshotLocked derives the exported JobStatus from the internal
// projection. Caller holds p.mu.
func (p *Poller) snapshotLocked() models.JobStatus {
	stages := make([]models.StageStatus, len(models.Pipeline))
	// Flags observed out of pipeline order collapse to the highest index;
	// the backend supplies no per-flag timestamps to do better.
	highest := models.HighestStage(p.proj.flags)
	for i, st := range models.Pipeline {
		stages[i] = models.StageStatus{Key: st.Key, Label: st.Label, Done: i <= highest}
	}

	percent := p.proj.peak
	if p.proj.errMsg != "" {
		percent = 0
	}

	return models.JobStatus{
		JobID:           p.jobID,
		Label:           p.label,
		Stages:          stages,
		Percent:         percent,
		Phase:           models.PhaseLabel(p.proj.flags),
		Error:           p.proj.errMsg,
		CreatedAt:       p.proj.createdAt,
		RestartEligible: p.eligibleLocked(),
		Done:            p.proj.peak >= 100 && p.proj.errMsg == "",
	}
}

// eligibleLocked recomputes restart eligibility from the current
// projection. Never cached beyond one poll cycle. Caller holds p.mu.
func (p *Poller) eligibleLocked() bool {
	if !p.proj.seen || p.proj.createdAt.IsZero() {
		return false
	}
	if p.proj.peak >= 100 || p.proj.retrying {
		return false
	}
	return p.timeNow().Sub(p.proj.createdAt) > restartThreshold
}

func (p *Poller) publish(status models.JobStatus) {
	update := models.ProgressUpdate{
		JobID:    status.JobID,
		Percent:  status.Percent,
		Phase:    status.Phase,
		Error:    status.Error,
		Eligible: status.RestartEligible,
		Done:     status.Done,
		Status:   "in_progress",
	}
	switch {
	case status.Error != "":
		update.Status = "failed"
		update.Message = status.Error
	case status.Done:
		update.Status = "completed"
		update.Message = "Video published."
	}
	p.notify(update)

	if p.sink != nil {
		if err := p.sink.UpdateWatchedJobSnapshot(status.JobID, status.Percent, status.Phase, status.Error); err != nil {
			log.Printf("Failed to persist snapshot for job %s: %v", status.JobID, err)
		}
		if status.Done {
			if err := p.sink.MarkWatchedJobCompleted(status.JobID, p.timeNow()); err != nil {
				log.Printf("Failed to mark job %s completed: %v", status.JobID, err)
			}
		}
	}
}

func (p *Poller) notify(update models.ProgressUpdate) {
	if p.hub == nil {
		return
	}
	if err := p.hub.BroadcastJSON(update); err != nil {
		log.Printf("Failed to broadcast progress for job %s: %v", p.jobID, err)
	}
}
