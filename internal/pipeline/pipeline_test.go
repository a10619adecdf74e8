package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cardforge/internal/database"
	"cardforge/internal/fault"
	"cardforge/internal/model"
)

type fakeFetcher struct {
	profile    model.Profile
	profileErr error
	posts      []model.Post
	postsErr   error
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, identifier string) (model.Profile, error) {
	if f.profileErr != nil {
		return model.Profile{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeFetcher) FetchTimeline(ctx context.Context, subjectID string, pageCount int) ([]model.Post, error) {
	if f.postsErr != nil {
		return nil, f.postsErr
	}
	return f.posts, nil
}

type fakeGenerator struct {
	err     error
	delay   time.Duration
	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
	sample  []model.Post
}

func (g *fakeGenerator) Generate(ctx context.Context, profile model.Profile, posts []model.Post) (model.GeneratedContent, error) {
	g.calls.Add(1)
	g.sample = posts
	if g.active.Add(1) > 1 {
		g.overlap.Store(true)
	}
	defer g.active.Add(-1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return model.GeneratedContent{}, g.err
	}
	return model.GeneratedContent{
		SubjectID:              profile.ExternalID,
		ShortBio:               "short",
		LongBio:                "long",
		Tags:                   []string{"a", "b", "c", "d", "e", "f"},
		Buff:                   "buff",
		Weakness:               "weakness",
		Vibe:                   "vibe",
		SpecialMove:            "move",
		FlavorText:             "flavor",
		BuffDescription:        "bd",
		WeaknessDescription:    "wd",
		VibeDescription:        "vd",
		SpecialMoveDescription: "sd",
	}, nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func subjectProfile() model.Profile {
	return model.Profile{
		ExternalID: "42",
		Handle:     "ada",
		Followers:  1000,
		Following:  10,
	}
}

func subjectPosts() []model.Post {
	return []model.Post{
		{ExternalID: "1", SubjectID: "42", Kind: model.KindOriginal, Text: "hello", Likes: 10, CreatedAt: time.Now()},
		{ExternalID: "2", SubjectID: "42", Kind: model.KindReply, Text: "hi back", Likes: 2, CreatedAt: time.Now()},
	}
}

func TestRunSuccess(t *testing.T) {
	db := openTestDB(t)
	fetcher := &fakeFetcher{profile: subjectProfile(), posts: subjectPosts()}
	gen := &fakeGenerator{}
	r := New(fetcher, db, gen, 3)

	res := r.Run(context.Background(), "ada", &model.SubmissionMeta{SubmittedBy: "test"})
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.FailedStage != "" {
		t.Errorf("expected no failed stage, got %q", res.FailedStage)
	}
	if res.PostsStored != 2 {
		t.Errorf("expected 2 posts stored, got %d", res.PostsStored)
	}

	stored, err := db.FindProfileByExternalID("42")
	if err != nil || stored == nil {
		t.Fatalf("expected profile persisted, got %v/%v", stored, err)
	}
	card, err := db.GetGeneratedContent("42")
	if err != nil || card == nil {
		t.Fatalf("expected card persisted, got %v/%v", card, err)
	}
	st, err := db.GetDerivedStats("42")
	if err != nil || st == nil {
		t.Fatalf("expected stats persisted, got %v/%v", st, err)
	}
}

func TestRunZeroPostSubject(t *testing.T) {
	db := openTestDB(t)
	fetcher := &fakeFetcher{profile: subjectProfile()}
	gen := &fakeGenerator{}
	r := New(fetcher, db, gen, 3)

	res := r.Run(context.Background(), "ada", nil)
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	// With no posts every attribute floors at 1.
	if res.Stats.Charisma != 1 || res.Stats.Influence != 1 || res.Stats.Energy != 1 {
		t.Errorf("expected zero-post floor, got %+v", res.Stats)
	}
	// Generation is still attempted, with an empty sample.
	if gen.calls.Load() != 1 {
		t.Errorf("expected generation attempted, calls=%d", gen.calls.Load())
	}
	if len(gen.sample) != 0 {
		t.Errorf("expected empty post sample, got %d", len(gen.sample))
	}
}

func TestRunProfileFetchFailure(t *testing.T) {
	db := openTestDB(t)
	fetcher := &fakeFetcher{profileErr: fault.New(fault.NotFound, "no such subject")}
	r := New(fetcher, db, &fakeGenerator{}, 3)

	res := r.Run(context.Background(), "ghost", nil)
	if res.Outcome != OutcomeFailure {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.FailedStage != StageFetchingProfile {
		t.Errorf("expected failure at %s, got %s", StageFetchingProfile, res.FailedStage)
	}
	if res.ErrorKind != fault.NotFound {
		t.Errorf("expected not_found kind, got %q", res.ErrorKind)
	}

	profiles, _ := db.ListProfiles()
	if len(profiles) != 0 {
		t.Errorf("expected nothing persisted after early failure, got %d profiles", len(profiles))
	}
}

func TestRunTimelineFailureKeepsProfile(t *testing.T) {
	db := openTestDB(t)
	fetcher := &fakeFetcher{
		profile:  subjectProfile(),
		postsErr: fault.New(fault.TransientServer, "api down"),
	}
	r := New(fetcher, db, &fakeGenerator{}, 3)

	res := r.Run(context.Background(), "ada", nil)
	if res.Outcome != OutcomeFailure {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.FailedStage != StageFetchingTimeline {
		t.Errorf("expected failure at %s, got %s", StageFetchingTimeline, res.FailedStage)
	}

	// Committed prior-stage writes stay in place; no cross-stage rollback.
	stored, _ := db.FindProfileByExternalID("42")
	if stored == nil {
		t.Error("expected profile upsert to survive downstream failure")
	}
}

func TestRunGenerationFailureKeepsEarlierWrites(t *testing.T) {
	db := openTestDB(t)
	fetcher := &fakeFetcher{profile: subjectProfile(), posts: subjectPosts()}
	gen := &fakeGenerator{err: fault.New(fault.ValidationExhausted, "never valid")}
	r := New(fetcher, db, gen, 3)

	res := r.Run(context.Background(), "ada", nil)
	if res.FailedStage != StageGeneratingContent {
		t.Fatalf("expected failure at generation, got %+v", res)
	}
	if res.ErrorKind != fault.ValidationExhausted {
		t.Errorf("expected validation_exhausted, got %q", res.ErrorKind)
	}

	if card, _ := db.GetGeneratedContent("42"); card != nil {
		t.Error("expected no card persisted after generation failure")
	}
	if st, _ := db.GetDerivedStats("42"); st == nil {
		t.Error("expected stats from earlier stage to survive")
	}
	posts, _ := db.GetPosts("42")
	if len(posts) != 2 {
		t.Errorf("expected synced posts to survive, got %d", len(posts))
	}
}

func TestRunCancelledContext(t *testing.T) {
	db := openTestDB(t)
	fetcher := &fakeFetcher{profile: subjectProfile(), posts: subjectPosts()}
	r := New(fetcher, db, &fakeGenerator{}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Run(ctx, "ada", nil)
	if res.Outcome != OutcomeFailure {
		t.Fatalf("expected failure for cancelled context, got %+v", res)
	}
}

func TestRunSerializesSameSubject(t *testing.T) {
	db := openTestDB(t)
	fetcher := &fakeFetcher{profile: subjectProfile(), posts: subjectPosts()}
	gen := &fakeGenerator{delay: 20 * time.Millisecond}
	r := New(fetcher, db, gen, 3)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(context.Background(), "ada", nil)
		}()
	}
	wg.Wait()

	if gen.overlap.Load() {
		t.Error("expected same-subject runs to be serialized")
	}
	if gen.calls.Load() != 4 {
		t.Errorf("expected all 4 runs to execute, got %d", gen.calls.Load())
	}
}

func TestRunSerializesAliasedIdentifiers(t *testing.T) {
	db := openTestDB(t)
	// The fetcher resolves both the handle and the external id to the same
	// subject, as the remote API does.
	fetcher := &fakeFetcher{profile: subjectProfile(), posts: subjectPosts()}
	gen := &fakeGenerator{delay: 30 * time.Millisecond}
	r := New(fetcher, db, gen, 3)

	var wg sync.WaitGroup
	for _, identifier := range []string{"ada", "42", "ada", "42"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.Run(context.Background(), id, nil)
		}(identifier)
	}
	wg.Wait()

	if gen.overlap.Load() {
		t.Error("expected runs naming one subject differently to be serialized")
	}
	if gen.calls.Load() != 4 {
		t.Errorf("expected all 4 runs to execute, got %d", gen.calls.Load())
	}
}
