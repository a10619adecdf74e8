package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"cardforge/internal/fault"
	"cardforge/internal/model"
)

// ReplacePosts swaps a subject's entire stored post set for the given batch.
// This is a replace sync, not a merge: every prior row for the subject is
// deleted first, inside one transaction. Individual posts failing row-level
// validation are skipped with a warning rather than failing the batch.
// Returns the number of posts stored.
func (db *DB) ReplacePosts(subjectID string, posts []model.Post) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fault.Wrap(fault.Persistence, err, "beginning post sync")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM posts WHERE subject_id = ?", subjectID); err != nil {
		return 0, fault.Wrap(fault.Persistence, err, "clearing prior posts")
	}

	stored := 0
	for _, p := range posts {
		if p.ExternalID == "" {
			log.Warn().Str("subject", subjectID).Msg("skipping post without external id")
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO posts (
				external_id, subject_id, created_at, kind, text,
				likes, retweets, quotes, replies, views, media_urls, link_urls
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ExternalID, subjectID, p.CreatedAt.UTC().Format(time.RFC3339), string(p.Kind), p.Text,
			p.Likes, p.Retweets, p.Quotes, p.Replies, p.Views,
			marshalStrings(p.MediaURLs), marshalStrings(p.LinkURLs))
		if err != nil {
			return 0, fault.Wrap(fault.Persistence, err, "inserting post "+p.ExternalID)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fault.Wrap(fault.Persistence, err, "committing post sync")
	}
	return stored, nil
}

// GetPosts returns a subject's stored posts, newest first.
func (db *DB) GetPosts(subjectID string) ([]model.Post, error) {
	rows, err := db.conn.Query(`
		SELECT external_id, subject_id, created_at, kind, text,
			likes, retweets, quotes, replies, views, media_urls, link_urls
		FROM posts WHERE subject_id = ? ORDER BY created_at DESC`, subjectID)
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "querying posts")
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		var createdAt, kind string
		var media, links sql.NullString
		err := rows.Scan(&p.ExternalID, &p.SubjectID, &createdAt, &kind, &p.Text,
			&p.Likes, &p.Retweets, &p.Quotes, &p.Replies, &p.Views, &media, &links)
		if err != nil {
			return nil, fault.Wrap(fault.Persistence, err, "scanning post")
		}
		if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
			p.CreatedAt = t
		}
		p.Kind = model.PostKind(kind)
		p.MediaURLs = unmarshalStrings(media)
		p.LinkURLs = unmarshalStrings(links)
		out = append(out, p)
	}
	return out, rows.Err()
}

// marshalStrings encodes a string slice as JSON, or NULL for an empty slice.
func marshalStrings(ss []string) any {
	if len(ss) == 0 {
		return nil
	}
	data, err := json.Marshal(ss)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalStrings(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil
	}
	return out
}
