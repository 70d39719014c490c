package report

// Severity is the shared tier scale for risk factors, risk levels, and
// alerts. Comparisons go through Rank; the string values are part of the
// persisted contract and never compared lexically.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position: info < low < medium < high < critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return -1
	}
}

// AtLeast reports whether s ranks at or above min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// ParseSeverity maps a stored string back onto the scale. Unknown input
// yields SeverityInfo, the lowest tier, so malformed rows never out-rank
// real findings.
func ParseSeverity(v string) Severity {
	s := Severity(v)
	if !s.Valid() {
		return SeverityInfo
	}
	return s
}
