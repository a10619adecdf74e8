package database

import (
	"cardforge/internal/fault"
	"cardforge/internal/model"
)

// CreateSnapshotIfAbsent records a subject's counts for the given calendar
// date (YYYY-MM-DD, UTC). At most one snapshot exists per subject per date;
// a snapshot already present for the date is left untouched. Returns whether
// a new row was created.
func (db *DB) CreateSnapshotIfAbsent(subjectID, date string, followers, following, postCount int) (bool, error) {
	res, err := db.conn.Exec(`
		INSERT INTO daily_snapshots (subject_id, date, followers, following, post_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, date) DO NOTHING`,
		subjectID, date, followers, following, postCount)
	if err != nil {
		return false, fault.Wrap(fault.Persistence, err, "creating snapshot")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fault.Wrap(fault.Persistence, err, "checking snapshot insert")
	}
	return n > 0, nil
}

// GetSnapshots returns a subject's snapshots ordered by date, oldest first.
func (db *DB) GetSnapshots(subjectID string) ([]model.DailySnapshot, error) {
	rows, err := db.conn.Query(`
		SELECT subject_id, date, followers, following, post_count
		FROM daily_snapshots WHERE subject_id = ? ORDER BY date ASC`, subjectID)
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "querying snapshots")
	}
	defer rows.Close()

	var out []model.DailySnapshot
	for rows.Next() {
		var s model.DailySnapshot
		if err := rows.Scan(&s.SubjectID, &s.Date, &s.Followers, &s.Following, &s.PostCount); err != nil {
			return nil, fault.Wrap(fault.Persistence, err, "scanning snapshot")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
