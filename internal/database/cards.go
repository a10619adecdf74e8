package database

import (
	"database/sql"
	"encoding/json"
	"errors"

	"cardforge/internal/fault"
	"cardforge/internal/model"
)

// SaveGeneratedContent stores a subject's card copy, replacing any prior
// card. Content arrives here only after full schema validation; the row is
// written atomically, all fields together.
func (db *DB) SaveGeneratedContent(c model.GeneratedContent) error {
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return fault.Wrap(fault.Persistence, err, "encoding tags")
	}

	_, err = db.conn.Exec(`
		INSERT INTO cards (
			subject_id, short_bio, long_bio, tags,
			buff, weakness, vibe, special_move, flavor_text,
			buff_description, weakness_description, vibe_description, special_move_description,
			generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(subject_id) DO UPDATE SET
			short_bio = excluded.short_bio,
			long_bio = excluded.long_bio,
			tags = excluded.tags,
			buff = excluded.buff,
			weakness = excluded.weakness,
			vibe = excluded.vibe,
			special_move = excluded.special_move,
			flavor_text = excluded.flavor_text,
			buff_description = excluded.buff_description,
			weakness_description = excluded.weakness_description,
			vibe_description = excluded.vibe_description,
			special_move_description = excluded.special_move_description,
			generated_at = excluded.generated_at`,
		c.SubjectID, c.ShortBio, c.LongBio, string(tags),
		c.Buff, c.Weakness, c.Vibe, c.SpecialMove, c.FlavorText,
		c.BuffDescription, c.WeaknessDescription, c.VibeDescription, c.SpecialMoveDescription)
	if err != nil {
		return fault.Wrap(fault.Persistence, err, "saving card")
	}
	return nil
}

// GetGeneratedContent returns a subject's stored card, or nil.
func (db *DB) GetGeneratedContent(subjectID string) (*StoredCard, error) {
	var out StoredCard
	var tags string
	err := db.conn.QueryRow(`
		SELECT subject_id, short_bio, long_bio, tags,
			buff, weakness, vibe, special_move, flavor_text,
			buff_description, weakness_description, vibe_description, special_move_description,
			generated_at
		FROM cards WHERE subject_id = ?`, subjectID).
		Scan(&out.Content.SubjectID, &out.Content.ShortBio, &out.Content.LongBio, &tags,
			&out.Content.Buff, &out.Content.Weakness, &out.Content.Vibe, &out.Content.SpecialMove,
			&out.Content.FlavorText,
			&out.Content.BuffDescription, &out.Content.WeaknessDescription,
			&out.Content.VibeDescription, &out.Content.SpecialMoveDescription,
			&out.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "reading card")
	}
	if err := json.Unmarshal([]byte(tags), &out.Content.Tags); err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "decoding tags")
	}
	return &out, nil
}
