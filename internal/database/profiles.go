package database

import (
	"database/sql"
	"errors"
	"time"

	"cardforge/internal/fault"
	"cardforge/internal/model"
)

const profileColumns = `id, external_id, display_name, handle, bio, location,
	followers, following, post_count, verified, account_created_at,
	avatar_url, avatar_full_url, banner_url, submitted_by, submission_note, updated_at`

// FindProfileByExternalID looks up a profile by its stable external key.
// Returns nil when no profile exists.
func (db *DB) FindProfileByExternalID(externalID string) (*StoredProfile, error) {
	row := db.conn.QueryRow(
		"SELECT "+profileColumns+" FROM profiles WHERE external_id = ?", externalID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "finding profile")
	}
	return p, nil
}

// UpsertProfile stores a freshly fetched profile. When the subject already
// exists, today's daily snapshot is captured from the PRE-update counts
// before the new attributes land, so the snapshot reflects the state the
// subject was in at the start of the day's first sync.
func (db *DB) UpsertProfile(p model.Profile, meta *model.SubmissionMeta) (*StoredProfile, error) {
	existing, err := db.FindProfileByExternalID(p.ExternalID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		today := time.Now().UTC().Format("2006-01-02")
		cur := existing.Profile
		if _, err := db.CreateSnapshotIfAbsent(p.ExternalID, today, cur.Followers, cur.Following, cur.PostCount); err != nil {
			return nil, err
		}

		_, err = db.conn.Exec(`
			UPDATE profiles SET
				display_name = ?, handle = ?, bio = ?, location = ?,
				followers = ?, following = ?, post_count = ?, verified = ?,
				account_created_at = ?, avatar_url = ?, avatar_full_url = ?, banner_url = ?,
				updated_at = datetime('now')
			WHERE external_id = ?`,
			p.DisplayName, p.Handle, p.Bio, p.Location,
			p.Followers, p.Following, p.PostCount, boolToInt(p.Verified),
			p.AccountCreatedAt.UTC().Format(time.RFC3339), p.AvatarURL, p.AvatarFullURL, p.BannerURL,
			p.ExternalID)
		if err != nil {
			return nil, fault.Wrap(fault.Persistence, err, "updating profile")
		}
	} else {
		submittedBy, note := "", ""
		if meta != nil {
			submittedBy, note = meta.SubmittedBy, meta.Note
		}
		_, err = db.conn.Exec(`
			INSERT INTO profiles (
				external_id, display_name, handle, bio, location,
				followers, following, post_count, verified, account_created_at,
				avatar_url, avatar_full_url, banner_url, submitted_by, submission_note
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ExternalID, p.DisplayName, p.Handle, p.Bio, p.Location,
			p.Followers, p.Following, p.PostCount, boolToInt(p.Verified),
			p.AccountCreatedAt.UTC().Format(time.RFC3339),
			p.AvatarURL, p.AvatarFullURL, p.BannerURL, submittedBy, note)
		if err != nil {
			return nil, fault.Wrap(fault.Persistence, err, "inserting profile")
		}
	}

	stored, err := db.FindProfileByExternalID(p.ExternalID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fault.New(fault.Persistence, "profile %s vanished after upsert", p.ExternalID)
	}
	return stored, nil
}

// ListProfiles returns all stored profiles ordered by last update, newest first.
func (db *DB) ListProfiles() ([]StoredProfile, error) {
	rows, err := db.conn.Query("SELECT " + profileColumns + " FROM profiles ORDER BY updated_at DESC")
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "listing profiles")
	}
	defer rows.Close()

	var out []StoredProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fault.Wrap(fault.Persistence, err, "scanning profile")
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetStats returns aggregate row counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM profiles", &s.Profiles},
		{"SELECT COUNT(*) FROM posts", &s.Posts},
		{"SELECT COUNT(*) FROM daily_snapshots", &s.Snapshots},
		{"SELECT COUNT(*) FROM cards", &s.Cards},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, fault.Wrap(fault.Persistence, err, "counting rows")
		}
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*StoredProfile, error) {
	var sp StoredProfile
	var verified int
	var createdAt, updatedAt string
	err := row.Scan(
		&sp.RowID, &sp.ExternalID, &sp.DisplayName, &sp.Handle,
		&sp.Bio, &sp.Location,
		&sp.Followers, &sp.Following, &sp.PostCount,
		&verified, &createdAt,
		&sp.AvatarURL, &sp.AvatarFullURL, &sp.BannerURL,
		&sp.SubmittedBy, &sp.SubmissionNote, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	sp.Verified = verified != 0
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		sp.AccountCreatedAt = t
	}
	if t, perr := time.Parse("2006-01-02 15:04:05", updatedAt); perr == nil {
		sp.UpdatedAt = t.UTC()
	}
	return &sp, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
