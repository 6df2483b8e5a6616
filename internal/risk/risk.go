package risk

// EvidenceKind is the category of an evidence signal. The aggregator matches
// kinds exhaustively; an unknown kind contributes nothing.
type EvidenceKind string

const (
	KindCommunity   EvidenceKind = "community"
	KindExternalAPI EvidenceKind = "external-api"
	KindGeographic  EvidenceKind = "geographic"
	KindBehavioral  EvidenceKind = "behavioral"
)

// Risk levels, most severe first.
const (
	LevelCritical   = "critical"
	LevelHigh       = "high"
	LevelSuspicious = "suspicious"
	LevelSafe       = "safe"
)

// Evidence is one weighted signal contributing to a score.
type Evidence struct {
	Kind   EvidenceKind `json:"kind"`
	Points int          `json:"points"`
	Reason string       `json:"reason"`
}

// Assessment is the result of aggregating evidence for one identifier.
type Assessment struct {
	Identifier string         `json:"identifier"`
	Score      int            `json:"score"`
	Level      string         `json:"level"`
	Reasons    []string       `json:"reasons"`
	Breakdown  map[string]int `json:"breakdown"`
}

// Per-category score caps. Contributions within a category are summed and
// clamped to the cap before categories are summed.
var categoryCaps = map[EvidenceKind]int{
	KindCommunity:   40,
	KindExternalAPI: 30,
	KindGeographic:  35,
	KindBehavioral:  20,
}

// kindOrder lists categories by cap descending; ties in reason ordering are
// broken by insertion order within a category.
var kindOrder = []EvidenceKind{KindCommunity, KindGeographic, KindExternalAPI, KindBehavioral}

// Aggregate combines evidence into a deterministic assessment. Identical
// evidence always yields identical score, level, and reasons. Evidence with
// an unknown kind is ignored.
func Aggregate(identifier string, evidence []Evidence) Assessment {
	byKind := make(map[EvidenceKind]int, len(categoryCaps))
	reasonsByKind := make(map[EvidenceKind][]string, len(categoryCaps))

	for _, ev := range evidence {
		limit, ok := categoryCaps[ev.Kind]
		if !ok {
			continue
		}
		byKind[ev.Kind] += ev.Points
		if byKind[ev.Kind] > limit {
			byKind[ev.Kind] = limit
		}
		if ev.Reason != "" {
			reasonsByKind[ev.Kind] = append(reasonsByKind[ev.Kind], ev.Reason)
		}
	}

	total := 0
	breakdown := make(map[string]int, len(byKind))
	var reasons []string
	for _, kind := range kindOrder {
		points := byKind[kind]
		if points > 0 {
			breakdown[string(kind)] = points
			total += points
		}
		reasons = append(reasons, reasonsByKind[kind]...)
	}
	if total > 100 {
		total = 100
	}
	if reasons == nil {
		reasons = []string{}
	}

	return Assessment{
		Identifier: identifier,
		Score:      total,
		Level:      LevelFor(total),
		Reasons:    reasons,
		Breakdown:  breakdown,
	}
}

// LevelFor maps a score to a risk level. Bounds are inclusive: exactly 70 is
// already critical.
func LevelFor(score int) string {
	switch {
	case score >= 70:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 30:
		return LevelSuspicious
	default:
		return LevelSafe
	}
}

// LevelOrder ranks levels for result sorting: most severe first, error rows
// last. Unknown levels sort after error.
func LevelOrder(level string) int {
	switch level {
	case LevelCritical:
		return 0
	case LevelHigh:
		return 1
	case LevelSuspicious:
		return 2
	case LevelSafe:
		return 3
	case "error":
		return 4
	default:
		return 5
	}
}
