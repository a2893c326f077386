// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Value columns are untyped so loosely-typed feed values round-trip unchanged.
package storage

func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS daily_steps (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		steps,
		last_updated INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, date)
	);

	CREATE TABLE IF NOT EXISTS health_logs (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		sleep_hours,
		water_intake_ml,
		PRIMARY KEY (user_id, date)
	);

	CREATE TABLE IF NOT EXISTS medication_reminders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		medication_name TEXT NOT NULL,
		dosage TEXT NOT NULL,
		date_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Due',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_medication_reminders_user ON medication_reminders(user_id);
	`

	_, err := d.db.Exec(schema)
	return err
}
