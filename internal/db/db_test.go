package db_test

import (
	"testing"

	"github.com/reelrocket/pulse/internal/testutil"
)

func TestMigrationsCreateSchema(t *testing.T) {
	// Setup test database with migrations already applied
	database := testutil.SetupTestDB(t)

	for _, table := range []string{"watched_jobs", "payment_attempts"} {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s to exist after migrations: %v", table, err)
		}
	}

	// The snapshot columns default so a freshly watched job scans cleanly.
	_, err := database.Exec(
		"INSERT INTO watched_jobs (job_id, created_at) VALUES ('job-1', datetime('now'))")
	if err != nil {
		t.Fatalf("Failed to insert watched job: %v", err)
	}
	var percent int
	var phase string
	err = database.QueryRow(
		"SELECT last_percent, last_phase FROM watched_jobs WHERE job_id = 'job-1'").Scan(&percent, &phase)
	if err != nil {
		t.Fatalf("Failed to read watched job defaults: %v", err)
	}
	if percent != 0 || phase != "" {
		t.Errorf("Expected zero-value snapshot defaults, got percent=%d phase=%q", percent, phase)
	}
}
