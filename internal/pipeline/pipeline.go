// Package pipeline sequences the acquisition, persistence, derivation, and
// generation stages for one subject.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"cardforge/internal/database"
	"cardforge/internal/fault"
	"cardforge/internal/metrics"
	"cardforge/internal/model"
	"cardforge/internal/stats"
)

// Stage names the pipeline's state-machine states.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageFetchingProfile   Stage = "fetching_profile"
	StageStoringProfile    Stage = "storing_profile"
	StageFetchingTimeline  Stage = "fetching_timeline"
	StageStoringTimeline   Stage = "storing_timeline"
	StageComputingStats    Stage = "computing_stats"
	StageGeneratingContent Stage = "generating_content"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Outcome tags a run's result. Partial exists for wire compatibility with
// older consumers; the orchestrator itself only ever produces success or
// failure, since a stage either fully completes or the run fails.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Result is the per-run outcome handed back to the trigger. Ephemeral: it is
// never persisted.
type Result struct {
	Outcome     Outcome
	FailedStage Stage // empty on success
	ErrorKind   fault.Kind
	Message     string
	SubjectID   string
	PostsStored int
	Stats       model.DerivedStats
}

// Fetcher acquires remote profile and timeline data.
type Fetcher interface {
	FetchProfile(ctx context.Context, identifier string) (model.Profile, error)
	FetchTimeline(ctx context.Context, subjectID string, pageCount int) ([]model.Post, error)
}

// Store is the persistence surface the pipeline consumes. *database.DB
// satisfies it.
type Store interface {
	UpsertProfile(p model.Profile, meta *model.SubmissionMeta) (*database.StoredProfile, error)
	ReplacePosts(subjectID string, posts []model.Post) (int, error)
	SaveDerivedStats(s model.DerivedStats) error
	SaveGeneratedContent(c model.GeneratedContent) error
}

// ContentGenerator produces schema-valid card content.
type ContentGenerator interface {
	Generate(ctx context.Context, profile model.Profile, posts []model.Post) (model.GeneratedContent, error)
}

// Runner executes pipeline runs. Runs for different subjects may proceed
// concurrently; runs for the same subject are serialized because the
// timeline replace sync is not safe against interleaved writers.
type Runner struct {
	fetcher   Fetcher
	store     Store
	generator ContentGenerator
	pages     int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a runner. pages bounds how many timeline pages each run fetches.
func New(fetcher Fetcher, store Store, generator ContentGenerator, pages int) *Runner {
	if pages < 1 {
		pages = 1
	}
	return &Runner{
		fetcher:   fetcher,
		store:     store,
		generator: generator,
		pages:     pages,
		locks:     make(map[string]*sync.Mutex),
	}
}

// subjectLock returns the mutex serializing runs for one subject id.
func (r *Runner) subjectLock(subjectID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[subjectID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[subjectID] = l
	}
	return l
}

// Run executes every stage for one subject and reports a single result.
// Synchronous: callers wanting deferred execution schedule it themselves.
func (r *Runner) Run(ctx context.Context, identifier string, meta *model.SubmissionMeta) Result {
	start := time.Now()
	defer metrics.ObservePipelineDuration(start)

	state := StageIdle
	advance := func(next Stage) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		state = next
		log.Debug().Str("subject", identifier).Str("stage", string(state)).Msg("pipeline stage")
		return nil
	}

	if err := advance(StageFetchingProfile); err != nil {
		return r.fail(identifier, state, err)
	}
	profile, err := r.fetcher.FetchProfile(ctx, identifier)
	if err != nil {
		return r.fail(identifier, state, err)
	}

	// Serialization keys on the resolved external id, not the caller's
	// identifier: a handle and an external id may name the same subject,
	// and the replace-style post sync is not safe against interleaved
	// writers. The fetch above is read-only, so it runs unlocked.
	lock := r.subjectLock(profile.ExternalID)
	lock.Lock()
	defer lock.Unlock()

	if err := advance(StageStoringProfile); err != nil {
		return r.fail(identifier, state, err)
	}
	if _, err := r.store.UpsertProfile(profile, meta); err != nil {
		return r.fail(identifier, state, err)
	}

	if err := advance(StageFetchingTimeline); err != nil {
		return r.fail(identifier, state, err)
	}
	posts, err := r.fetcher.FetchTimeline(ctx, profile.ExternalID, r.pages)
	if err != nil {
		return r.fail(identifier, state, err)
	}

	if err := advance(StageStoringTimeline); err != nil {
		return r.fail(identifier, state, err)
	}
	stored, err := r.store.ReplacePosts(profile.ExternalID, posts)
	if err != nil {
		return r.fail(identifier, state, err)
	}

	if err := advance(StageComputingStats); err != nil {
		return r.fail(identifier, state, err)
	}
	derived := stats.Compute(profile, posts)
	if err := r.store.SaveDerivedStats(derived); err != nil {
		return r.fail(identifier, state, err)
	}

	if err := advance(StageGeneratingContent); err != nil {
		return r.fail(identifier, state, err)
	}
	content, err := r.generator.Generate(ctx, profile, posts)
	if err != nil {
		return r.fail(identifier, state, err)
	}
	if err := r.store.SaveGeneratedContent(content); err != nil {
		return r.fail(identifier, state, err)
	}

	state = StageDone
	metrics.PipelineRuns.WithLabelValues(string(OutcomeSuccess)).Inc()
	log.Info().
		Str("subject", identifier).
		Int("posts", stored).
		Dur("elapsed", time.Since(start)).
		Msg("pipeline run complete")

	return Result{
		Outcome:     OutcomeSuccess,
		Message:     fmt.Sprintf("card generated for %s (%d posts)", profile.Handle, stored),
		SubjectID:   profile.ExternalID,
		PostsStored: stored,
		Stats:       derived,
	}
}

// fail transitions to the terminal failed state. Writes committed by earlier
// stages stay in place; there is no cross-stage rollback.
func (r *Runner) fail(identifier string, at Stage, err error) Result {
	kind := fault.KindOf(err)
	metrics.PipelineRuns.WithLabelValues(string(OutcomeFailure)).Inc()
	metrics.StageFailures.WithLabelValues(string(at)).Inc()
	log.Error().
		Str("subject", identifier).
		Str("stage", string(at)).
		Str("kind", string(kind)).
		Err(err).
		Msg("pipeline run failed")

	return Result{
		Outcome:     OutcomeFailure,
		FailedStage: at,
		ErrorKind:   kind,
		Message:     fmt.Sprintf("%s failed: %v", at, err),
	}
}
