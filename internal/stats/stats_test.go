package stats

import (
	"testing"
	"time"

	"cardforge/internal/model"
)

func mkPosts(n, likes, retweets int) []model.Post {
	posts := make([]model.Post, n)
	for i := range posts {
		posts[i] = model.Post{
			ExternalID: "p",
			CreatedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			Likes:      likes,
			Retweets:   retweets,
		}
	}
	return posts
}

func TestComputeZeroPostFloor(t *testing.T) {
	profile := model.Profile{ExternalID: "42", Followers: 1000, Following: 10, Verified: true}
	s := Compute(profile, nil)
	if s.Charisma != 1 || s.Influence != 1 || s.Energy != 1 {
		t.Errorf("expected all attributes to floor at 1, got %+v", s)
	}
	if s.SubjectID != "42" {
		t.Errorf("expected subject id carried, got %q", s.SubjectID)
	}
}

func TestComputeZeroFollowingIsSafe(t *testing.T) {
	profile := model.Profile{ExternalID: "42", Followers: 5000, Following: 0}
	s := Compute(profile, mkPosts(10, 5, 2))
	// Reaching here without a panic is the point; the ratio term used
	// max(following, 1). Sanity-check the bounds too.
	for _, v := range []int{s.Charisma, s.Influence, s.Energy} {
		if v < 1 || v > 100 {
			t.Errorf("attribute out of range: %+v", s)
		}
	}
}

func TestComputeClampUpperBound(t *testing.T) {
	// Huge engagement drives every raw sum far past 100.
	profile := model.Profile{ExternalID: "42", Followers: 1_000_000, Following: 1, Verified: true}
	s := Compute(profile, mkPosts(50, 100000, 50000))
	if s.Charisma != 100 || s.Influence != 100 || s.Energy != 100 {
		t.Errorf("expected all attributes clamped to 100, got %+v", s)
	}
}

func TestComputeClampLowerBound(t *testing.T) {
	// One post with no engagement and no followers: raw sums under 1.
	profile := model.Profile{ExternalID: "42"}
	s := Compute(profile, mkPosts(1, 0, 0))
	if s.Influence < 1 {
		t.Errorf("expected influence floored at 1, got %d", s.Influence)
	}
	for _, v := range []int{s.Charisma, s.Influence, s.Energy} {
		if v < 1 {
			t.Errorf("attribute below floor: %+v", s)
		}
	}
}

func TestComputeClampBoundaryValues(t *testing.T) {
	if got := clamp(500); got != 100 {
		t.Errorf("clamp(500) = %d, want 100", got)
	}
	if got := clamp(-20); got != 1 {
		t.Errorf("clamp(-20) = %d, want 1", got)
	}
	if got := clamp(100); got != 100 {
		t.Errorf("clamp(100) = %d, want 100", got)
	}
	if got := clamp(1); got != 1 {
		t.Errorf("clamp(1) = %d, want 1", got)
	}
	if got := clamp(42.9); got != 42 {
		t.Errorf("clamp(42.9) = %d, want 42", got)
	}
}

func TestComputeBoundsSampleSize(t *testing.T) {
	profile := model.Profile{ExternalID: "42", Followers: 10, Following: 10}
	// 200 zero-engagement posts: only the activity term contributes, and it
	// must be capped at the 50-post sample.
	s := Compute(profile, mkPosts(200, 0, 0))
	if s.Energy != 50 {
		t.Errorf("expected energy 50 from a capped sample, got %d", s.Energy)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	profile := model.Profile{ExternalID: "42", Followers: 1234, Following: 56, Verified: true}
	posts := mkPosts(20, 7, 3)
	a := Compute(profile, posts)
	b := Compute(profile, posts)
	if a != b {
		t.Errorf("expected identical results, got %+v and %+v", a, b)
	}
}
