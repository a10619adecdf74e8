// Package generate synthesizes schema-validated card content for a subject.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gookit/validate"
	"github.com/rs/zerolog/log"

	"cardforge/internal/fault"
	"cardforge/internal/llm"
	"cardforge/internal/metrics"
	"cardforge/internal/model"
)

const systemInstruction = `You write collectible trading-card copy for real social media personalities. You are given a profile and samples of their posts. Capture their authentic voice and interests. Stay playful but never mocking. Respond with ONLY a JSON object matching the provided schema.`

const promptTemplate = `Create card copy for this profile.

Profile:
- Name: %s (@%s)
- Bio: %s
- Location: %s
- Followers: %d, Following: %d
- Verified: %t
- On the platform since: %s

Sample of their own posts:
%s

Sample of their replies:
%s

Field requirements:
- short_bio: 150-250 characters capturing who they are
- long_bio: 900-1100 characters, their story and online presence
- tags: exactly 6 short topical tags
- buff / weakness / vibe / special_move: max 30 characters each, trading-card style
- flavor_text: 30-60 characters, evocative one-liner
- *_description fields: max 100 characters each, explain the matching attribute`

// sample sizes for post text embedded in the prompt
const (
	maxOriginalSamples = 8
	maxReplySamples    = 5
	maxSampleLen       = 240
)

// Generator invokes the generation backend and validates its output against
// the card schema, retrying invalid responses with the same prompt.
type Generator struct {
	provider    llm.Provider
	maxAttempts int
	retryDelay  time.Duration
}

// New creates a generator. maxAttempts bounds both validation retries and
// transport retries; retryDelay is the fixed pause between validation
// retries and the base for transport backoff.
func New(provider llm.Provider, maxAttempts int, retryDelay time.Duration) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Generator{provider: provider, maxAttempts: maxAttempts, retryDelay: retryDelay}
}

// Generate builds the prompt once and calls the backend until a response
// passes full schema validation. Partial or invalid content never escapes:
// the result is either a complete valid card or an error.
func (g *Generator) Generate(ctx context.Context, profile model.Profile, posts []model.Post) (model.GeneratedContent, error) {
	var empty model.GeneratedContent
	if g.provider == nil {
		return empty, fault.New(fault.GenerationUnavailable, "no generation backend configured")
	}

	prompt := buildPrompt(profile, posts)
	schema := contentSchema()

	var lastErr error
	transport := false

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := g.retryDelay
			if transport {
				// exponential backoff for backend outages
				wait = g.retryDelay * time.Duration(1<<(attempt-2))
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return empty, ctx.Err()
			}
		}

		metrics.GenerationAttempts.Inc()
		raw, err := g.provider.GenerateJSON(ctx, systemInstruction, prompt, schema)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("generation backend error")
			lastErr = err
			transport = true
			continue
		}

		content, err := parseContent(raw)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("generated content failed validation")
			lastErr = err
			transport = false
			continue
		}

		content.SubjectID = profile.ExternalID
		return content, nil
	}

	if transport {
		return empty, fault.Wrap(fault.GenerationUnavailable, lastErr,
			fmt.Sprintf("backend unavailable after %d attempts", g.maxAttempts))
	}
	return empty, fault.Wrap(fault.ValidationExhausted, lastErr,
		fmt.Sprintf("no schema-valid content after %d attempts", g.maxAttempts))
}

// parseContent decodes a backend response and checks every field constraint.
func parseContent(raw string) (model.GeneratedContent, error) {
	var content model.GeneratedContent
	text := llm.ExtractJSON(raw)
	if text == "" {
		return content, fmt.Errorf("empty backend response")
	}
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return content, fmt.Errorf("decoding content: %w", err)
	}

	v := validate.Struct(&content)
	if !v.Validate() {
		return content, fmt.Errorf("schema violation: %s", v.Errors.One())
	}
	return content, nil
}

// buildPrompt embeds the profile summary and bounded post samples.
func buildPrompt(profile model.Profile, posts []model.Post) string {
	var originals, replies []string
	for _, p := range posts {
		switch p.Kind {
		case model.KindOriginal, model.KindQuote:
			if len(originals) < maxOriginalSamples {
				originals = append(originals, truncate(p.Text, maxSampleLen))
			}
		case model.KindReply:
			if len(replies) < maxReplySamples {
				replies = append(replies, truncate(p.Text, maxSampleLen))
			}
		}
	}

	since := "unknown"
	if !profile.AccountCreatedAt.IsZero() {
		since = profile.AccountCreatedAt.Format("January 2006")
	}

	return fmt.Sprintf(promptTemplate,
		profile.DisplayName, profile.Handle,
		profile.Bio, profile.Location,
		profile.Followers, profile.Following,
		profile.Verified, since,
		formatSamples(originals), formatSamples(replies))
}

func formatSamples(samples []string) string {
	if len(samples) == 0 {
		return "(none available)"
	}
	var b strings.Builder
	for _, s := range samples {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so the cut never leaves invalid UTF-8
	// in the prompt sample.
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
