// Package journal records every handled print request in a local sqlite
// database and stores the small set of persistent settings (admin password
// hash, token secret). Recording is strictly best-effort: a journal failure
// is logged and never changes the outcome of the request that triggered it.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a job or setting does not exist.
var ErrNotFound = errors.New("not found")

// Journal owns the sqlite handle. sqlite likes a single writer, so the pool
// is pinned to one connection.
type Journal struct {
	db  *sql.DB
	log *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Open creates or opens the journal database at path and ensures the schema
// exists.
func Open(path string, log *slog.Logger) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Journal{
		db:     db,
		log:    log,
		stopCh: make(chan struct{}),
	}, nil
}

// Close stops the retention sweeper and releases the database handle.
func (j *Journal) Close() error {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
	return j.db.Close()
}

// Insert records a handled request. A missing ID gets a fresh uuid and a
// zero ReceivedAt gets the current time.
func (j *Journal) Insert(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, insertJob,
		job.ID, job.ReceivedAt, job.Intent, job.WidthPx, job.Height,
		job.BodyBytes, job.Status, job.Error, job.DurationMS)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// Get returns one recorded job by id.
func (j *Journal) Get(ctx context.Context, id string) (*Job, error) {
	job := &Job{}
	err := j.db.QueryRowContext(ctx, getJobByID, id).Scan(
		&job.ID, &job.ReceivedAt, &job.Intent, &job.WidthPx, &job.Height,
		&job.BodyBytes, &job.Status, &job.Error, &job.DurationMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns recorded jobs, newest first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]*Job, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Intent != "" {
		conditions = append(conditions, "intent = ?")
		args = append(args, filter.Intent)
	}

	query := "SELECT id, received_at, intent, width_px, height, body_bytes, status, error, duration_ms FROM jobs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY received_at DESC LIMIT ? OFFSET ?"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*Job, 0, limit)
	for rows.Next() {
		job := &Job{}
		if err := rows.Scan(
			&job.ID, &job.ReceivedAt, &job.Intent, &job.WidthPx, &job.Height,
			&job.BodyBytes, &job.Status, &job.Error, &job.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats summarizes the journal contents.
func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, err := j.db.QueryContext(ctx, countJobsByStatus)
	if err != nil {
		return stats, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.Total += count
		switch status {
		case StatusDone:
			stats.Done = count
		case StatusFailed:
			stats.Failed = count
		case StatusSkipped:
			stats.Skipped = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := j.db.QueryRowContext(ctx, countJobsSince, todayStart).Scan(&stats.Today); err != nil {
		return stats, fmt.Errorf("failed to count today's jobs: %w", err)
	}

	return stats, nil
}

// PurgeBefore deletes jobs received before the cutoff and reports how many
// rows went away.
func (j *Journal) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, deleteJobsBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return res.RowsAffected()
}

// GetSetting returns the value stored under key, or ErrNotFound.
func (j *Journal) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// SetSetting stores value under key, replacing any previous value.
func (j *Journal) SetSetting(ctx context.Context, key, value string) error {
	if _, err := j.db.ExecContext(ctx, setSetting, key, value); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// DeleteSetting removes key. Deleting an absent key is not an error.
func (j *Journal) DeleteSetting(ctx context.Context, key string) error {
	if _, err := j.db.ExecContext(ctx, deleteSetting, key); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

// StartRetention launches the daily sweep that ages out jobs older than
// retentionDays. A non-positive value disables sweeping entirely.
func (j *Journal) StartRetention(retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	j.wg.Add(1)
	go j.retentionLoop(retentionDays)
}

func (j *Journal) retentionLoop(retentionDays int) {
	defer j.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	j.sweep(retentionDays)

	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweep(retentionDays)
		}
	}
}

func (j *Journal) sweep(retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	purged, err := j.PurgeBefore(context.Background(), cutoff)
	if err != nil {
		j.log.Warn("journal retention sweep failed", "error", err)
		return
	}
	if purged > 0 {
		j.log.Info("journal retention sweep", "purged", purged, "cutoff", cutoff)
	}
}
