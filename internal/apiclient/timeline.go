package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"cardforge/internal/fault"
	"cardforge/internal/model"
)

// timelinePage mirrors the timeline API wire format.
type timelinePage struct {
	Posts []struct {
		ID           string    `json:"id"`
		Text         string    `json:"text"`
		CreatedAt    time.Time `json:"created_at"`
		InReplyToID  string    `json:"in_reply_to_id"`
		QuotedPostID string    `json:"quoted_post_id"`
		Likes        int       `json:"likes"`
		Retweets     int       `json:"retweets"`
		Quotes       int       `json:"quotes"`
		Replies      int       `json:"replies"`
		Views        int       `json:"views"`
		MediaURLs    []string  `json:"media_urls"`
		LinkURLs     []string  `json:"link_urls"`
	} `json:"posts"`
	NextCursor *string `json:"next_cursor"`
}

// FetchTimeline retrieves up to pageCount cursor-paginated pages of a
// subject's posts. It stops early when a page comes back empty or without a
// cursor. A courtesy pause separates successive page requests; the shared
// rate-limit bucket still gates every request independently.
func (c *Client) FetchTimeline(ctx context.Context, subjectID string, pageCount int) ([]model.Post, error) {
	if subjectID == "" {
		return nil, fault.New(fault.InvalidRequest, "empty subject id")
	}

	var posts []model.Post
	cursor := ""

	for page := 0; page < pageCount; page++ {
		if page > 0 && c.pageDelay > 0 {
			select {
			case <-time.After(c.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		batch, next, err := c.fetchTimelinePage(ctx, subjectID, cursor)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		posts = append(posts, batch...)

		if next == "" {
			break
		}
		cursor = next
	}

	log.Debug().Str("subject", subjectID).Int("posts", len(posts)).Msg("timeline fetched")
	return posts, nil
}

func (c *Client) fetchTimelinePage(ctx context.Context, subjectID, cursor string) ([]model.Post, string, error) {
	if err := c.bucket.Acquire(ctx); err != nil {
		return nil, "", fmt.Errorf("waiting for rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/timeline/%s", c.baseURL, url.PathEscape(subjectID))
	if cursor != "" {
		u += "?cursor=" + url.QueryEscape(cursor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	c.auth(req)

	resp, err := c.doWithRetry(ctx, req, "timeline")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", mapStatus(resp.StatusCode, subjectID)
	}

	var raw timelinePage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, "", fmt.Errorf("decoding timeline page: %w", err)
	}

	out := make([]model.Post, 0, len(raw.Posts))
	for _, p := range raw.Posts {
		out = append(out, model.Post{
			ExternalID: p.ID,
			SubjectID:  subjectID,
			CreatedAt:  p.CreatedAt,
			Kind:       model.ClassifyPost(p.Text, p.InReplyToID, p.QuotedPostID),
			Text:       p.Text,
			Likes:      p.Likes,
			Retweets:   p.Retweets,
			Quotes:     p.Quotes,
			Replies:    p.Replies,
			Views:      p.Views,
			MediaURLs:  p.MediaURLs,
			LinkURLs:   p.LinkURLs,
		})
	}

	next := ""
	if raw.NextCursor != nil {
		next = *raw.NextCursor
	}
	return out, next, nil
}
