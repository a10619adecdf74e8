// Package stats derives the three card attributes from a profile and its
// recent posts. Pure computation, no I/O.
package stats

import "cardforge/internal/model"

// sampleSize caps how many recent posts feed the formula.
const sampleSize = 50

// Formula weights. These are tuning knobs, not contracts; the [1,100] clamp
// and the zero-post floor below are the load-bearing parts.
const (
	charismaLikeWeight     = 0.30
	charismaRetweetWeight  = 0.20
	charismaRatioWeight    = 0.05
	charismaVerifiedBonus  = 10
	charismaActivityWeight = 0.50

	influenceLikeWeight     = 0.10
	influenceRetweetWeight  = 0.40
	influenceRatioWeight    = 0.10
	influenceVerifiedBonus  = 15
	influenceActivityWeight = 0.20

	energyLikeWeight     = 0.20
	energyRetweetWeight  = 0.10
	energyRatioWeight    = 0.02
	energyVerifiedBonus  = 5
	energyActivityWeight = 1.0
)

// Compute derives the subject's card attributes from the profile and a
// bounded sample of recent posts. Each attribute lands in [1,100]; a subject
// with no posts floors at 1 across the board.
func Compute(profile model.Profile, recentPosts []model.Post) model.DerivedStats {
	out := model.DerivedStats{
		SubjectID: profile.ExternalID,
		Charisma:  1,
		Influence: 1,
		Energy:    1,
	}

	if len(recentPosts) == 0 {
		return out
	}

	sample := recentPosts
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	var likes, retweets float64
	for _, p := range sample {
		likes += float64(p.Likes)
		retweets += float64(p.Retweets)
	}
	n := float64(len(sample))
	avgLikes := likes / n
	avgRetweets := retweets / n

	// Denominator floored at 1: following can legitimately be zero.
	following := profile.Following
	if following < 1 {
		following = 1
	}
	ratio := float64(profile.Followers) / float64(following)

	verified := 0.0
	if profile.Verified {
		verified = 1.0
	}
	activity := n

	out.Charisma = clamp(charismaLikeWeight*avgLikes +
		charismaRetweetWeight*avgRetweets +
		charismaRatioWeight*ratio +
		charismaVerifiedBonus*verified +
		charismaActivityWeight*activity)

	out.Influence = clamp(influenceLikeWeight*avgLikes +
		influenceRetweetWeight*avgRetweets +
		influenceRatioWeight*ratio +
		influenceVerifiedBonus*verified +
		influenceActivityWeight*activity)

	out.Energy = clamp(energyLikeWeight*avgLikes +
		energyRetweetWeight*avgRetweets +
		energyRatioWeight*ratio +
		energyVerifiedBonus*verified +
		energyActivityWeight*activity)

	return out
}

// clamp bounds a raw weighted sum to the inclusive attribute range [1,100].
func clamp(raw float64) int {
	switch {
	case raw < 1:
		return 1
	case raw > 100:
		return 100
	default:
		return int(raw)
	}
}
