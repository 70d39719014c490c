package store

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MOYARU/driftwatch/internal/report"
)

const defaultCooldownHours = 24

type Preferences struct {
	db *gorm.DB
}

// DefaultPreference is what applies when a user never configured a type:
// enabled, medium floor, built-in 24h cooldown, no separate improvement
// cooldown. Callers holding a policy swap the window in with
// ApplyDefaultCooldown.
func DefaultPreference(userID uint, alertType string) *AlertPreference {
	return &AlertPreference{
		UserID:        userID,
		Type:          alertType,
		Enabled:       true,
		MinSeverity:   string(report.SeverityMedium),
		CooldownHours: defaultCooldownHours,
	}
}

// ApplyDefaultCooldown replaces the built-in cooldown with the configured
// default on a preference that was never persisted. Stored rows keep the
// window they were saved with.
func (p *AlertPreference) ApplyDefaultCooldown(hours int) {
	if p.ID == 0 && hours > 0 {
		p.CooldownHours = hours
	}
}

// For returns the stored preference or the default. The default is not
// persisted; absence keeps meaning "defaults".
func (r *Preferences) For(userID uint, alertType string) (*AlertPreference, error) {
	var p AlertPreference
	err := r.db.Where("user_id = ? AND type = ?", userID, alertType).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultPreference(userID, alertType), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find preference")
	}
	return &p, nil
}

// Upsert writes the preference keyed by (user, type). Rows loaded from the
// store carry an id and go through Save; fresh values resolve against the
// (user, type) unique index.
func (r *Preferences) Upsert(p *AlertPreference) error {
	if p.ID != 0 {
		if err := r.db.Save(p).Error; err != nil {
			return errors.Wrap(err, "failed to save preference")
		}
		return nil
	}
	q := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		UpdateAll: true,
	}).Create(p)
	if err := q.Error; err != nil {
		return errors.Wrap(err, "failed to upsert preference")
	}
	return nil
}

func (r *Preferences) ListByUser(userID uint) ([]*AlertPreference, error) {
	var rows []*AlertPreference
	if err := r.db.Where("user_id = ?", userID).Order("type").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list preferences")
	}
	return rows, nil
}

type Settings struct {
	db *gorm.DB
}

// For returns the user's channel settings. A user with no row has no
// address to deliver to, so the channel reads as disabled.
func (r *Settings) For(userID uint) (*NotificationSetting, error) {
	var s NotificationSetting
	err := r.db.Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotificationSetting{UserID: userID, Enabled: false}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find notification setting")
	}
	return &s, nil
}

func (r *Settings) Upsert(s *NotificationSetting) error {
	if s.ID != 0 {
		if err := r.db.Save(s).Error; err != nil {
			return errors.Wrap(err, "failed to save notification setting")
		}
		return nil
	}
	q := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(s)
	if err := q.Error; err != nil {
		return errors.Wrap(err, "failed to upsert notification setting")
	}
	return nil
}
