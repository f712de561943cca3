package db

import (
	"database/sql"
	"fmt"
)

// PipelineEvent represents a row in the pipeline_events table.
type PipelineEvent struct {
	ID        int
	RunID     string
	State     string
	Detail    string
	Timestamp string
}

// BuildAttemptRow represents a row in the build_attempts table.
type BuildAttemptRow struct {
	ID             int
	RunID          string
	Ordinal        int
	Succeeded      bool
	Classification string
	HealingAction  string
	DurationSecs   float64
	Timestamp      string
}

// TestRunRow represents a row in the test_runs table.
type TestRunRow struct {
	ID           int
	RunID        string
	Mode         string
	Passed       int
	Failed       int
	Skipped      int
	ExitCode     int
	DurationSecs float64
	Timestamp    string
}

// RecordEvent inserts a state transition or notable event for a run.
func (d *DB) RecordEvent(runID, state, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO pipeline_events (run_id, state, detail) VALUES (?, ?, ?)`,
		runID, state, detail,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// RecordBuildAttempt inserts one environment build attempt.
func (d *DB) RecordBuildAttempt(runID string, ordinal int, succeeded bool, classification, healingAction string, durationSecs float64) error {
	_, err := d.conn.Exec(
		`INSERT INTO build_attempts (run_id, ordinal, succeeded, classification, healing_action, duration_secs) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, ordinal, succeeded, classification, healingAction, durationSecs,
	)
	if err != nil {
		return fmt.Errorf("record build attempt: %w", err)
	}
	return nil
}

// RecordTestRun inserts the summary of one isolated test execution.
func (d *DB) RecordTestRun(runID, mode string, passed, failed, skipped, exitCode int, durationSecs float64) error {
	_, err := d.conn.Exec(
		`INSERT INTO test_runs (run_id, mode, passed, failed, skipped, exit_code, duration_secs) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, mode, passed, failed, skipped, exitCode, durationSecs,
	)
	if err != nil {
		return fmt.Errorf("record test run: %w", err)
	}
	return nil
}

// Events returns all recorded events for a run in chronological order.
func (d *DB) Events(runID string) ([]PipelineEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, state, COALESCE(detail, ''), timestamp FROM pipeline_events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []PipelineEvent
	for rows.Next() {
		var e PipelineEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.State, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// BuildAttempts returns the build attempts for a run ordered by ordinal.
func (d *DB) BuildAttempts(runID string) ([]BuildAttemptRow, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, ordinal, succeeded, COALESCE(classification, ''), COALESCE(healing_action, ''), COALESCE(duration_secs, 0), timestamp
		 FROM build_attempts WHERE run_id = ? ORDER BY ordinal`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query build attempts: %w", err)
	}
	defer rows.Close()

	var attempts []BuildAttemptRow
	for rows.Next() {
		var a BuildAttemptRow
		if err := rows.Scan(&a.ID, &a.RunID, &a.Ordinal, &a.Succeeded, &a.Classification, &a.HealingAction, &a.DurationSecs, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan build attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// TestRuns returns the recorded test executions for a run.
func (d *DB) TestRuns(runID string) ([]TestRunRow, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, mode, passed, failed, skipped, exit_code, COALESCE(duration_secs, 0), timestamp
		 FROM test_runs WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query test runs: %w", err)
	}
	defer rows.Close()

	var runs []TestRunRow
	for rows.Next() {
		var r TestRunRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.Mode, &r.Passed, &r.Failed, &r.Skipped, &r.ExitCode, &r.DurationSecs, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan test run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastTestRun returns the most recent test execution for a run and mode,
// or sql.ErrNoRows if none exists.
func (d *DB) LastTestRun(runID, mode string) (*TestRunRow, error) {
	var r TestRunRow
	err := d.conn.QueryRow(
		`SELECT id, run_id, mode, passed, failed, skipped, exit_code, COALESCE(duration_secs, 0), timestamp
		 FROM test_runs WHERE run_id = ? AND mode = ? ORDER BY id DESC LIMIT 1`,
		runID, mode,
	).Scan(&r.ID, &r.RunID, &r.Mode, &r.Passed, &r.Failed, &r.Skipped, &r.ExitCode, &r.DurationSecs, &r.Timestamp)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("query last test run: %w", err)
	}
	return &r, nil
}
