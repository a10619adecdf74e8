package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS profiles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id TEXT UNIQUE NOT NULL,
    display_name TEXT NOT NULL,
    handle TEXT NOT NULL,
    bio TEXT DEFAULT '',
    location TEXT DEFAULT '',
    followers INTEGER DEFAULT 0,
    following INTEGER DEFAULT 0,
    post_count INTEGER DEFAULT 0,
    verified INTEGER DEFAULT 0,
    account_created_at TEXT,
    avatar_url TEXT DEFAULT '',
    avatar_full_url TEXT DEFAULT '',
    banner_url TEXT DEFAULT '',
    submitted_by TEXT DEFAULT '',
    submission_note TEXT DEFAULT '',
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    created_at TEXT,
    kind TEXT NOT NULL CHECK(kind IN ('original', 'reply', 'retweet', 'quote')),
    text TEXT DEFAULT '',
    likes INTEGER DEFAULT 0,
    retweets INTEGER DEFAULT 0,
    quotes INTEGER DEFAULT 0,
    replies INTEGER DEFAULT 0,
    views INTEGER DEFAULT 0,
    media_urls TEXT,
    link_urls TEXT,
    UNIQUE(subject_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_posts_subject ON posts(subject_id);

CREATE TABLE IF NOT EXISTS daily_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_id TEXT NOT NULL,
    date TEXT NOT NULL,
    followers INTEGER DEFAULT 0,
    following INTEGER DEFAULT 0,
    post_count INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    UNIQUE(subject_id, date)
);

CREATE TABLE IF NOT EXISTS derived_stats (
    subject_id TEXT PRIMARY KEY,
    charisma INTEGER NOT NULL,
    influence INTEGER NOT NULL,
    energy INTEGER NOT NULL,
    computed_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS cards (
    subject_id TEXT PRIMARY KEY,
    short_bio TEXT NOT NULL,
    long_bio TEXT NOT NULL,
    tags TEXT NOT NULL,
    buff TEXT NOT NULL,
    weakness TEXT NOT NULL,
    vibe TEXT NOT NULL,
    special_move TEXT NOT NULL,
    flavor_text TEXT NOT NULL,
    buff_description TEXT NOT NULL,
    weakness_description TEXT NOT NULL,
    vibe_description TEXT NOT NULL,
    special_move_description TEXT NOT NULL,
    generated_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
