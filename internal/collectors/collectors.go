package collectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/risk"
	"golang.org/x/time/rate"
)

// ErrAllSourcesFailed is returned when every configured evidence source
// errored for a lookup. A single failed source is never fatal; it just
// contributes zero.
var ErrAllSourcesFailed = errors.New("all evidence sources unavailable")

// Report is one community-submitted report about an identifier.
type Report struct {
	Category   string    `json:"category"` // scam, spam, harassment, other
	Comment    string    `json:"comment,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}

// ReputationResult is the narrow contract of the external reputation/fraud API.
type ReputationResult struct {
	SpamScore  int  `json:"spam_score"`  // 0-100
	FraudScore int  `json:"fraud_score"` // 0-100
	IsVoip     bool `json:"is_voip"`
	Valid      bool `json:"valid"`
}

// Profile is the observable state of a social profile.
type Profile struct {
	Bio            string `json:"bio"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	PostCount      int    `json:"post_count"`
	Verified       bool   `json:"verified"`
}

// CommunitySource looks up community reports for an identifier.
type CommunitySource interface {
	ReportsFor(ctx context.Context, key string) ([]Report, error)
}

// ReputationSource queries the external reputation/fraud API. Best-effort;
// callers must tolerate errors.
type ReputationSource interface {
	Lookup(ctx context.Context, key string) (*ReputationResult, error)
}

// ProfileSource fetches the current observable state of a profile target.
type ProfileSource interface {
	Fetch(ctx context.Context, key string) (*Profile, error)
}

// Observation is everything one collection pass learned about a target:
// the evidence feeding the aggregator plus the raw fields for snapshots.
type Observation struct {
	Evidence []risk.Evidence
	Fields   models.SnapshotFields
	Flags    []string
}

// Collector fans a lookup out to every configured evidence source. Sources
// are independent: one failing source contributes zero and the collection
// still succeeds. A shared rate limiter bounds the aggregate call rate
// across the scheduler and all batch workers.
type Collector struct {
	Community  CommunitySource
	Reputation ReputationSource
	Geo        *GeoRiskTable
	Behavioral *BehavioralMatcher
	Profiles   ProfileSource

	Limiter *rate.Limiter
	// Timeout bounds each individual source call (default 5s).
	Timeout time.Duration
}

func (c *Collector) sourceTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 5 * time.Second
}

// Collect gathers evidence for one identifier. kind selects which sources
// apply (profile fetch and behavioral matching only run for profiles).
// It returns ErrAllSourcesFailed only when every applicable source errored.
func (c *Collector) Collect(ctx context.Context, identifier, kind string) (*Observation, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("collector limiter: %w", err)
		}
	}

	obs := &Observation{}
	attempted := 0
	failed := 0

	fail := func(source string, err error) {
		failed++
		obs.Flags = append(obs.Flags, source+"_unavailable")
		slog.Warn("evidence source unavailable", "source", source, "identifier", identifier, "error", err)
	}

	if c.Community != nil {
		attempted++
		sctx, cancel := context.WithTimeout(ctx, c.sourceTimeout())
		reports, err := c.Community.ReportsFor(sctx, identifier)
		cancel()
		if err != nil {
			fail("community", err)
		} else if len(reports) > 0 {
			obs.Evidence = append(obs.Evidence, communityEvidence(reports)...)
		}
	}

	if c.Reputation != nil {
		attempted++
		sctx, cancel := context.WithTimeout(ctx, c.sourceTimeout())
		rep, err := c.Reputation.Lookup(sctx, identifier)
		cancel()
		if err != nil {
			fail("reputation", err)
		} else if rep != nil {
			ev, flags := reputationEvidence(rep)
			obs.Evidence = append(obs.Evidence, ev...)
			obs.Flags = append(obs.Flags, flags...)
		}
	}

	if c.Geo != nil {
		attempted++
		if weight, prefix, ok := c.Geo.Lookup(identifier); ok {
			obs.Evidence = append(obs.Evidence, risk.Evidence{
				Kind:   risk.KindGeographic,
				Points: weight,
				Reason: fmt.Sprintf("identifier prefix %s is in a high-risk region", prefix),
			})
		}
	}

	if kind == models.KindProfile && c.Profiles != nil {
		attempted++
		sctx, cancel := context.WithTimeout(ctx, c.sourceTimeout())
		profile, err := c.Profiles.Fetch(sctx, identifier)
		cancel()
		if err != nil {
			fail("profile", err)
		} else if profile != nil {
			obs.Fields = models.SnapshotFields{
				Bio:            profile.Bio,
				FollowerCount:  profile.FollowerCount,
				FollowingCount: profile.FollowingCount,
				PostCount:      profile.PostCount,
				Verified:       profile.Verified,
			}
			if c.Behavioral != nil {
				for _, m := range c.Behavioral.Match(profile.Bio) {
					obs.Evidence = append(obs.Evidence, risk.Evidence{
						Kind:   risk.KindBehavioral,
						Points: m.Points,
						Reason: fmt.Sprintf("bio matches %s pattern %q", m.Category, m.Pattern),
					})
					obs.Flags = append(obs.Flags, "pattern:"+m.Category)
				}
			}
		}
	}

	if attempted > 0 && failed == attempted {
		return nil, ErrAllSourcesFailed
	}
	return obs, nil
}

// communityEvidence converts report lookups into community-category
// evidence: a volume signal plus a bump when any report alleges a scam.
func communityEvidence(reports []Report) []risk.Evidence {
	ev := []risk.Evidence{{
		Kind:   risk.KindCommunity,
		Points: len(reports) * 8,
		Reason: fmt.Sprintf("%d community report(s) on file", len(reports)),
	}}
	for _, r := range reports {
		if r.Category == "scam" {
			ev = append(ev, risk.Evidence{
				Kind:   risk.KindCommunity,
				Points: 10,
				Reason: "reported as scam by the community",
			})
			break
		}
	}
	return ev
}

// reputationEvidence converts a reputation API result into external-api
// evidence. Spam and fraud scores arrive on a 0-100 scale and are scaled
// into the category budget.
func reputationEvidence(rep *ReputationResult) ([]risk.Evidence, []string) {
	var ev []risk.Evidence
	var flags []string
	if rep.SpamScore > 0 {
		ev = append(ev, risk.Evidence{
			Kind:   risk.KindExternalAPI,
			Points: rep.SpamScore / 5, // 0-20
			Reason: fmt.Sprintf("reputation API spam score %d/100", rep.SpamScore),
		})
	}
	if rep.FraudScore > 0 {
		ev = append(ev, risk.Evidence{
			Kind:   risk.KindExternalAPI,
			Points: rep.FraudScore / 10, // 0-10
			Reason: fmt.Sprintf("reputation API fraud score %d/100", rep.FraudScore),
		})
	}
	if rep.IsVoip {
		ev = append(ev, risk.Evidence{
			Kind:   risk.KindExternalAPI,
			Points: 5,
			Reason: "number is VoIP-based",
		})
		flags = append(flags, "voip")
	}
	if !rep.Valid {
		ev = append(ev, risk.Evidence{
			Kind:   risk.KindExternalAPI,
			Points: 10,
			Reason: "number failed carrier validation",
		})
		flags = append(flags, "invalid_number")
	}
	return ev, flags
}
