package database

import "cardforge/internal/model"

// StoredProfile is a profile row together with its storage metadata.
type StoredProfile struct {
	RowID int64
	model.Profile
	SubmittedBy    string
	SubmissionNote string
}

// StoredCard is a generated card row.
type StoredCard struct {
	Content     model.GeneratedContent
	GeneratedAt string
}

// StoredStats is a derived stats row.
type StoredStats struct {
	Stats      model.DerivedStats
	ComputedAt string
}

// Stats contains aggregate database statistics for the status command.
type Stats struct {
	Profiles  int
	Posts     int
	Snapshots int
	Cards     int
}
