package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Targets struct {
	db *gorm.DB
}

func (r *Targets) Create(t *Target) error {
	if err := r.db.Create(t).Error; err != nil {
		return errors.Wrap(err, "failed to create target")
	}
	return nil
}

func (r *Targets) Save(t *Target) error {
	if err := r.db.Save(t).Error; err != nil {
		return errors.Wrap(err, "failed to save target")
	}
	return nil
}

func (r *Targets) ByID(id uint) (*Target, error) {
	var t Target
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find target")
	}
	return &t, nil
}

// ByUserAndURL returns nil without error when no such target exists.
func (r *Targets) ByUserAndURL(userID uint, url string) (*Target, error) {
	var t Target
	err := r.db.Where("user_id = ? AND url = ?", userID, url).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find target")
	}
	return &t, nil
}

func (r *Targets) ListByUser(userID uint) ([]*Target, error) {
	var targets []*Target
	if err := r.db.Where("user_id = ?", userID).Order("id").Find(&targets).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list targets")
	}
	return targets, nil
}

// Due returns scheduled targets whose next run is at or before now.
func (r *Targets) Due(now time.Time, limit int) ([]*Target, error) {
	q := r.db.
		Where("schedule_enabled = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Order("next_run_at")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var targets []*Target
	if err := q.Find(&targets).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list due targets")
	}
	return targets, nil
}

// ClaimDue advances the target's next run in one conditional update and
// reports whether this caller won the claim. A concurrent scheduler loses
// because the first update moves next_run_at past now.
func (r *Targets) ClaimDue(t *Target, now time.Time) (bool, error) {
	next := now.Add(t.Frequency.Interval())
	res := r.db.Model(&Target{}).
		Where("id = ? AND schedule_enabled = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", t.ID, true, now).
		Update("next_run_at", next)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "failed to claim due target")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	t.NextRunAt = &next
	return true, nil
}

func (r *Targets) SetLastAssessment(targetID, assessmentID uint) error {
	err := r.db.Model(&Target{}).
		Where("id = ?", targetID).
		Update("last_assessment_id", assessmentID).Error
	if err != nil {
		return errors.Wrap(err, "failed to point target at assessment")
	}
	return nil
}

// Delete removes a target along with its assessment and alert history.
func (r *Targets) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("target_id = ?", id).Delete(&AlertRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_id = ?", id).Delete(&Assessment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Target{}, id).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete target")
	}
	return nil
}
