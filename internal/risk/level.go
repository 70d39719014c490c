package risk

// Level is the four-tier categorical rendering of a score. Ordered; always
// compare with Rank, never by string.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var levelRanks = map[Level]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// Rank gives the ordinal position for comparisons. Unknown levels rank
// below low.
func (l Level) Rank() int {
	if r, ok := levelRanks[l]; ok {
		return r
	}
	return -1
}

// LevelFromScore maps a capped score onto its tier. Boundaries are fixed:
// 0-25 low, 26-50 medium, 51-75 high, 76-100 critical.
func LevelFromScore(score int) Level {
	switch {
	case score <= 25:
		return LevelLow
	case score <= 50:
		return LevelMedium
	case score <= 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}
