package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Assessments struct {
	db *gorm.DB
}

func (r *Assessments) Create(a *Assessment) error {
	if err := r.db.Create(a).Error; err != nil {
		return errors.Wrap(err, "failed to create assessment")
	}
	return nil
}

// Complete freezes the row as the final record of this run.
func (r *Assessments) Complete(a *Assessment) error {
	now := time.Now()
	a.Status = StatusCompleted
	a.CompletedAt = &now
	if err := r.db.Save(a).Error; err != nil {
		return errors.Wrap(err, "failed to complete assessment")
	}
	return nil
}

// Fail records a terminal failure. The reason must already be scrubbed.
func (r *Assessments) Fail(a *Assessment, reason string) error {
	now := time.Now()
	a.Status = StatusFailed
	a.FailureReason = reason
	a.CompletedAt = &now
	if err := r.db.Save(a).Error; err != nil {
		return errors.Wrap(err, "failed to mark assessment failed")
	}
	return nil
}

func (r *Assessments) ByID(id uint) (*Assessment, error) {
	var a Assessment
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find assessment")
	}
	return &a, nil
}

func (r *Assessments) ListByTarget(targetID uint, limit int) ([]*Assessment, error) {
	q := r.db.Where("target_id = ?", targetID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []*Assessment
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list assessments")
	}
	return rows, nil
}

// LatestPair returns the newest completed assessment for a target and the
// one immediately before it. Ordering is completion time, ties broken by
// row id. Either may be nil when history is short.
func (r *Assessments) LatestPair(targetID uint) (curr, prev *Assessment, err error) {
	var rows []*Assessment
	err = r.db.
		Where("target_id = ? AND status = ?", targetID, StatusCompleted).
		Order("completed_at DESC, id DESC").
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load assessment pair")
	}

	if len(rows) > 0 {
		curr = rows[0]
	}
	if len(rows) > 1 {
		prev = rows[1]
	}
	return curr, prev, nil
}

// PreviousCompleted returns the newest completed assessment for the target
// other than the given row, or nil when it is the first.
func (r *Assessments) PreviousCompleted(targetID, excludeID uint) (*Assessment, error) {
	var a Assessment
	err := r.db.
		Where("target_id = ? AND status = ? AND id <> ?", targetID, StatusCompleted, excludeID).
		Order("completed_at DESC, id DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load previous assessment")
	}
	return &a, nil
}
