// Package model holds the domain records shared across the pipeline.
package model

import (
	"strings"
	"time"
)

// Profile is a subject's public profile as fetched from the remote API.
type Profile struct {
	ExternalID       string
	DisplayName      string
	Handle           string
	Bio              string
	Location         string
	Followers        int
	Following        int
	PostCount        int
	Verified         bool
	AccountCreatedAt time.Time
	AvatarURL        string
	AvatarFullURL    string // derived from AvatarURL; empty when no size token present
	BannerURL        string
	UpdatedAt        time.Time
}

// PostKind is the closed classification of a post.
type PostKind string

const (
	KindOriginal PostKind = "original"
	KindReply    PostKind = "reply"
	KindRetweet  PostKind = "retweet"
	KindQuote    PostKind = "quote"
)

// Post is a single timeline entry belonging to a subject.
type Post struct {
	ExternalID string
	SubjectID  string
	CreatedAt  time.Time
	Kind       PostKind
	Text       string
	Likes      int
	Retweets   int
	Quotes     int
	Replies    int
	Views      int // 0 when the API omits view counts
	MediaURLs  []string
	LinkURLs   []string
}

// DailySnapshot captures a subject's counts once per calendar date.
type DailySnapshot struct {
	SubjectID string
	Date      string // YYYY-MM-DD, UTC
	Followers int
	Following int
	PostCount int
}

// DerivedStats are the three card attributes, each in [1,100].
type DerivedStats struct {
	SubjectID string
	Charisma  int
	Influence int
	Energy    int
}

// SubmissionMeta is optional context recorded with a profile upsert.
type SubmissionMeta struct {
	SubmittedBy string
	Note        string
}

// retweetMarker prefixes legacy-style retweet text.
const retweetMarker = "RT @"

// ClassifyPost derives a post's kind from its raw signals. The precedence is
// retweet > reply > quote > original; a post matching several signals takes
// the first match in that order.
func ClassifyPost(text, inReplyTo, quotedID string) PostKind {
	switch {
	case strings.HasPrefix(text, retweetMarker):
		return KindRetweet
	case inReplyTo != "":
		return KindReply
	case quotedID != "":
		return KindQuote
	default:
		return KindOriginal
	}
}

// avatarSizeToken is the size suffix the profile API embeds in normal-size
// avatar URLs, e.g. ".../photo_normal.jpg".
const avatarSizeToken = "_normal"

// FullSizeAvatarURL strips the size token from a normal-size avatar URL.
// Returns "" when the URL carries no size token.
func FullSizeAvatarURL(avatarURL string) string {
	if !strings.Contains(avatarURL, avatarSizeToken) {
		return ""
	}
	return strings.Replace(avatarURL, avatarSizeToken, "", 1)
}
