package store

import (
	"database/sql"
	"time"

	"github.com/reelrocket/pulse/internal/models"
)

// UpsertWatchedJob adds a job to the watch list, or refreshes its label if
// it is already watched.
func (s *Store) UpsertWatchedJob(jobID, label string, createdAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO watched_jobs (job_id, label, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET label = excluded.label`,
		jobID, label, createdAt)
	return err
}

// UpdateWatchedJobSnapshot stores the last observed projection values for
// a watched job.
func (s *Store) UpdateWatchedJobSnapshot(jobID string, percent int, phase, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE watched_jobs
		SET last_percent = ?, last_phase = ?, last_error = ?
		WHERE job_id = ?`,
		percent, phase, errMsg, jobID)
	return err
}

// MarkWatchedJobCompleted stamps the completion time, once.
func (s *Store) MarkWatchedJobCompleted(jobID string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE watched_jobs SET completed_at = ?
		WHERE job_id = ? AND completed_at IS NULL`,
		at, jobID)
	return err
}

// RemoveWatchedJob drops a job from the watch list.
func (s *Store) RemoveWatchedJob(jobID string) error {
	_, err := s.db.Exec("DELETE FROM watched_jobs WHERE job_id = ?", jobID)
	return err
}

// ListWatchedJobs returns the whole watch list, newest first.
func (s *Store) ListWatchedJobs() ([]*models.WatchedJob, error) {
	rows, err := s.db.Query(`
		SELECT job_id, label, created_at, last_percent, last_phase, last_error, completed_at
		FROM watched_jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.WatchedJob
	for rows.Next() {
		var job models.WatchedJob
		var completedAt sql.NullTime
		if err := rows.Scan(&job.JobID, &job.Label, &job.CreatedAt, &job.LastPercent, &job.LastPhase, &job.LastError, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			job.CompletedAt = &t
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// PruneCompletedBefore deletes watch-list entries that completed before
// the cutoff. Returns the number of rows removed.
func (s *Store) PruneCompletedBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM watched_jobs WHERE completed_at IS NOT NULL AND completed_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
