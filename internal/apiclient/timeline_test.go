package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cardforge/internal/model"
)

func postJSON(id, text string) string {
	return fmt.Sprintf(`{"id":%q,"text":%q,"created_at":"2026-08-01T10:00:00Z","likes":3,"retweets":1}`, id, text)
}

func TestFetchTimelinePaginates(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		w.Header().Set("Content-Type", "application/json")
		switch cursor {
		case "":
			fmt.Fprintf(w, `{"posts":[%s],"next_cursor":"c1"}`, postJSON("1", "first"))
		case "c1":
			fmt.Fprintf(w, `{"posts":[%s],"next_cursor":"c2"}`, postJSON("2", "second"))
		case "c2":
			fmt.Fprintf(w, `{"posts":[%s],"next_cursor":"c3"}`, postJSON("3", "third"))
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	posts, err := testClient(t, srv.URL).FetchTimeline(context.Background(), "42", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	want := []string{"", "c1", "c2"}
	if len(cursors) != len(want) {
		t.Fatalf("expected %d page requests, got %d", len(want), len(cursors))
	}
	for i, c := range want {
		if cursors[i] != c {
			t.Errorf("request %d: expected cursor %q, got %q", i, c, cursors[i])
		}
	}
}

func TestFetchTimelineStopsOnEmptyPage(t *testing.T) {
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprintf(w, `{"posts":[%s],"next_cursor":"c1"}`, postJSON("1", "only"))
			return
		}
		fmt.Fprint(w, `{"posts":[],"next_cursor":"c2"}`)
	}))
	defer srv.Close()

	posts, err := testClient(t, srv.URL).FetchTimeline(context.Background(), "42", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(posts))
	}
	if pages != 2 {
		t.Errorf("expected no third page request, got %d requests", pages)
	}
}

func TestFetchTimelineStopsOnMissingCursor(t *testing.T) {
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"posts":[%s],"next_cursor":null}`, postJSON("1", "only"))
	}))
	defer srv.Close()

	posts, err := testClient(t, srv.URL).FetchTimeline(context.Background(), "42", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(posts))
	}
	if pages != 1 {
		t.Errorf("expected a single page request, got %d", pages)
	}
}

func TestFetchTimelineClassifiesPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"posts":[
			{"id":"1","text":"RT @other: news","in_reply_to_id":"9","created_at":"2026-08-01T10:00:00Z"},
			{"id":"2","text":"replying","in_reply_to_id":"9","created_at":"2026-08-01T10:01:00Z"},
			{"id":"3","text":"quoting","quoted_post_id":"8","created_at":"2026-08-01T10:02:00Z"},
			{"id":"4","text":"plain","created_at":"2026-08-01T10:03:00Z"}
		],"next_cursor":null}`)
	}))
	defer srv.Close()

	posts, err := testClient(t, srv.URL).FetchTimeline(context.Background(), "42", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.PostKind{model.KindRetweet, model.KindReply, model.KindQuote, model.KindOriginal}
	if len(posts) != len(want) {
		t.Fatalf("expected %d posts, got %d", len(want), len(posts))
	}
	for i, k := range want {
		if posts[i].Kind != k {
			t.Errorf("post %s: expected kind %q, got %q", posts[i].ExternalID, k, posts[i].Kind)
		}
	}
	if posts[0].SubjectID != "42" {
		t.Errorf("expected subject id stamped on posts, got %q", posts[0].SubjectID)
	}
}
