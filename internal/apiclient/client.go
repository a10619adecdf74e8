// Package apiclient talks to the remote profile and timeline APIs. All calls
// pass through the shared rate-limit bucket; 5xx responses are retried with
// exponential backoff before surfacing a transient error.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cardforge/internal/config"
	"cardforge/internal/fault"
	"cardforge/internal/metrics"
	"cardforge/internal/model"
	"cardforge/internal/ratelimit"
)

// Client is a bearer-token client for the profile/timeline API.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	bucket      *ratelimit.Bucket
	maxAttempts int
	backoffBase time.Duration
	pageDelay   time.Duration
}

// New creates a client from configuration. The bucket is shared across every
// client in the process so concurrent runs stay under the provider ceiling.
func New(cfg *config.Config, bucket *ratelimit.Bucket) *Client {
	return &Client{
		baseURL:     cfg.API.BaseURL,
		token:       cfg.APIToken(),
		httpClient:  &http.Client{Timeout: cfg.API.Timeout},
		bucket:      bucket,
		maxAttempts: cfg.API.MaxAttempts,
		backoffBase: cfg.API.BackoffBase,
		pageDelay:   cfg.Timeline.PageDelay,
	}
}

func (c *Client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}

// profileResponse mirrors the profile API wire format.
type profileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Bio       string    `json:"bio"`
	Location  string    `json:"location"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
	PostCount int       `json:"post_count"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	AvatarURL string    `json:"avatar_url"`
	BannerURL string    `json:"banner_url"`
}

// FetchProfile retrieves one subject's profile record.
func (c *Client) FetchProfile(ctx context.Context, identifier string) (model.Profile, error) {
	var out model.Profile
	if identifier == "" {
		return out, fault.New(fault.InvalidRequest, "empty profile identifier")
	}

	if err := c.bucket.Acquire(ctx); err != nil {
		return out, fmt.Errorf("waiting for rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/profile/%s", c.baseURL, url.PathEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, fmt.Errorf("creating request: %w", err)
	}
	c.auth(req)

	resp, err := c.doWithRetry(ctx, req, "profile")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, mapStatus(resp.StatusCode, identifier)
	}

	var raw profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return out, fmt.Errorf("decoding profile response: %w", err)
	}

	out = model.Profile{
		ExternalID:       raw.ID,
		DisplayName:      raw.Name,
		Handle:           raw.Handle,
		Bio:              raw.Bio,
		Location:         raw.Location,
		Followers:        raw.Followers,
		Following:        raw.Following,
		PostCount:        raw.PostCount,
		Verified:         raw.Verified,
		AccountCreatedAt: raw.CreatedAt,
		AvatarURL:        raw.AvatarURL,
		AvatarFullURL:    model.FullSizeAvatarURL(raw.AvatarURL),
		BannerURL:        raw.BannerURL,
	}
	return out, nil
}

// mapStatus converts a non-200 response code into a classified error.
func mapStatus(code int, subject string) error {
	switch {
	case code == http.StatusPaymentRequired:
		return fault.New(fault.RateLimited, "api rate limit reached for %s", subject)
	case code == http.StatusForbidden:
		return fault.New(fault.Forbidden, "account %s is protected", subject)
	case code == http.StatusNotFound:
		return fault.New(fault.NotFound, "subject %s not found", subject)
	case code == http.StatusUnprocessableEntity:
		return fault.New(fault.InvalidRequest, "api rejected request for %s", subject)
	case code >= 500:
		return fault.New(fault.TransientServer, "api server error %d for %s", code, subject)
	default:
		return fault.New(fault.Fatal, "unexpected api status %d for %s", code, subject)
	}
}

// doWithRetry performs the request, retrying transport errors and 5xx
// responses with exponential backoff. Retry-After is honored when present.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	backoff := c.backoffBase
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		wait := backoff
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("api status %d", resp.StatusCode)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			resp.Body.Close()
		}

		if attempt == c.maxAttempts {
			break
		}

		metrics.IncAPIRetry(endpoint)
		// jitter +/-20% so concurrent runs don't retry in lockstep
		jitter := time.Duration(float64(wait) * 0.2)
		if jitter > 0 {
			wait = wait - jitter + time.Duration(rand.Int63n(int64(2*jitter)))
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	return nil, fault.Wrap(fault.TransientServer,
		fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr),
		endpoint+" request")
}
