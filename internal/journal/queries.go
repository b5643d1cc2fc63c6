package journal

const schema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		received_at DATETIME NOT NULL,
		intent TEXT NOT NULL,
		width_px INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		body_bytes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_received_at ON jobs(received_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
`

const (
	insertJob = `
		INSERT INTO jobs (id, received_at, intent, width_px, height, body_bytes, status, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	getJobByID = `
		SELECT id, received_at, intent, width_px, height, body_bytes, status, error, duration_ms
		FROM jobs WHERE id = ?
	`

	deleteJobsBefore = `DELETE FROM jobs WHERE received_at < ?`

	countJobsByStatus = `SELECT status, COUNT(*) FROM jobs GROUP BY status`

	countJobsSince = `SELECT COUNT(*) FROM jobs WHERE received_at >= ?`
)

const (
	getSetting = `SELECT value FROM settings WHERE key = ?`

	setSetting = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	deleteSetting = `DELETE FROM settings WHERE key = ?`
)
