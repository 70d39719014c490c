package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/MOYARU/driftwatch/internal/drift"
	"github.com/MOYARU/driftwatch/internal/risk"
)

type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// Interval is the gap between scheduled runs. Unknown frequencies fall
// back to daily.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// A monitored (user, URL) pair. Domain is the registrable domain, kept
// denormalized for digest grouping.
type Target struct {
	gorm.Model

	UserID uint   `gorm:"index;uniqueIndex:idx_targets_user_url"`
	URL    string `gorm:"uniqueIndex:idx_targets_user_url"`
	Domain string `gorm:"index"`

	ScheduleEnabled bool
	Frequency       Frequency
	NextRunAt       *time.Time `gorm:"index"`

	LastAssessmentID *uint
}

type AssessmentStatus string

const (
	StatusPending   AssessmentStatus = "pending"
	StatusRunning   AssessmentStatus = "running"
	StatusCompleted AssessmentStatus = "completed"
	StatusFailed    AssessmentStatus = "failed"
)

// One scan of one target at one instant. Completed rows are never mutated;
// later scans supersede them.
type Assessment struct {
	gorm.Model

	TargetID uint             `gorm:"index"`
	Status   AssessmentStatus `gorm:"index"`

	SSLValid    bool
	SSLDaysLeft *int
	SSLIssuer   string

	HeadersChecked bool
	PresentHeaders datatypes.JSON
	MissingHeaders datatypes.JSON

	Technologies datatypes.JSON
	CMS          string
	ServerBanner string
	FaviconHash  uint32

	Score   int
	Level   string
	Factors datatypes.JSON
	Summary string

	// Failed runs only; already scrubbed of internal detail.
	FailureReason string

	RequestCount int64
	ElapsedMS    int64
	CompletedAt  *time.Time `gorm:"index"`
}

func (a *Assessment) SetPresentHeaders(names []string) { a.PresentHeaders = marshalJSON(names) }
func (a *Assessment) SetMissingHeaders(names []string) { a.MissingHeaders = marshalJSON(names) }
func (a *Assessment) SetTechnologies(names []string)   { a.Technologies = marshalJSON(names) }
func (a *Assessment) SetFactors(factors []risk.Factor) { a.Factors = marshalJSON(factors) }

func (a *Assessment) PresentHeaderList() []string { return unmarshalStrings(a.PresentHeaders) }
func (a *Assessment) MissingHeaderList() []string { return unmarshalStrings(a.MissingHeaders) }
func (a *Assessment) TechnologyList() []string    { return unmarshalStrings(a.Technologies) }

func (a *Assessment) FactorList() []risk.Factor {
	var factors []risk.Factor
	if len(a.Factors) > 0 {
		_ = json.Unmarshal(a.Factors, &factors)
	}
	return factors
}

// Snapshot projects the drift-relevant fields for comparison.
func (a *Assessment) Snapshot() drift.Snapshot {
	return drift.Snapshot{
		SSLValid:       a.SSLValid,
		Score:          a.Score,
		Level:          risk.Level(a.Level),
		HeadersChecked: a.HeadersChecked,
		PresentHeaders: a.PresentHeaderList(),
		MissingHeaders: a.MissingHeaderList(),
		Technologies:   a.TechnologyList(),
	}
}

// A notification-worthy drift event that passed policy. Mutated only by
// read/dismiss/send transitions; never deleted programmatically.
type AlertRecord struct {
	gorm.Model

	UserID   uint   `gorm:"index"`
	TargetID uint   `gorm:"index"`
	Type     string `gorm:"index"`

	Severity      string
	Title         string
	Description   string
	PreviousValue string
	CurrentValue  string

	Read      bool
	Dismissed bool
	Sent      bool `gorm:"index"`
	SentAt    *time.Time
}

// Per (user, alert type) delivery policy. Absent rows mean the defaults.
type AlertPreference struct {
	gorm.Model

	UserID uint   `gorm:"uniqueIndex:idx_prefs_user_type"`
	Type   string `gorm:"uniqueIndex:idx_prefs_user_type"`

	Enabled       bool
	MinSeverity   string
	CooldownHours int
	// Overrides CooldownHours for improvement-class alerts when set.
	ImprovementCooldownHours *int
}

// Per-user digest channel: the address plus a global on/off switch.
type NotificationSetting struct {
	gorm.Model

	UserID  uint `gorm:"uniqueIndex"`
	Email   string
	Enabled bool
}

func marshalJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func unmarshalStrings(raw datatypes.JSON) []string {
	var out []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}
