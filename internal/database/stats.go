package database

import (
	"database/sql"
	"errors"

	"cardforge/internal/fault"
	"cardforge/internal/model"
)

// SaveDerivedStats stores a subject's card attributes, replacing any prior
// values. Stats are always recomputed in full, never partially updated.
func (db *DB) SaveDerivedStats(s model.DerivedStats) error {
	_, err := db.conn.Exec(`
		INSERT INTO derived_stats (subject_id, charisma, influence, energy, computed_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(subject_id) DO UPDATE SET
			charisma = excluded.charisma,
			influence = excluded.influence,
			energy = excluded.energy,
			computed_at = excluded.computed_at`,
		s.SubjectID, s.Charisma, s.Influence, s.Energy)
	if err != nil {
		return fault.Wrap(fault.Persistence, err, "saving derived stats")
	}
	return nil
}

// GetDerivedStats returns a subject's stored card attributes, or nil.
func (db *DB) GetDerivedStats(subjectID string) (*StoredStats, error) {
	var out StoredStats
	err := db.conn.QueryRow(`
		SELECT subject_id, charisma, influence, energy, computed_at
		FROM derived_stats WHERE subject_id = ?`, subjectID).
		Scan(&out.Stats.SubjectID, &out.Stats.Charisma, &out.Stats.Influence, &out.Stats.Energy, &out.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "reading derived stats")
	}
	return &out, nil
}
