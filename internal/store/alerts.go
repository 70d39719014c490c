package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Alerts struct {
	db *gorm.DB
}

func (r *Alerts) Create(a *AlertRecord) error {
	if err := r.db.Create(a).Error; err != nil {
		return errors.Wrap(err, "failed to create alert")
	}
	return nil
}

// LatestFor returns the newest record of this (user, target, type), or nil.
// The alert engine reads this inside the same transaction that inserts, so
// the cooldown check and the insert see one consistent state.
func (r *Alerts) LatestFor(userID, targetID uint, alertType string) (*AlertRecord, error) {
	var a AlertRecord
	err := r.db.
		Where("user_id = ? AND target_id = ? AND type = ?", userID, targetID, alertType).
		Order("created_at DESC, id DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find latest alert")
	}
	return &a, nil
}

// Unsent returns deliverable records: not sent, not dismissed, oldest first.
func (r *Alerts) Unsent() ([]*AlertRecord, error) {
	var rows []*AlertRecord
	err := r.db.
		Where("sent = ? AND dismissed = ?", false, false).
		Order("user_id, id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list unsent alerts")
	}
	return rows, nil
}

// MarkSent stamps delivery. Idempotent: re-marking an already-sent record
// just rewrites the same flags.
func (r *Alerts) MarkSent(ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.Model(&AlertRecord{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"sent": true, "sent_at": at}).Error
	if err != nil {
		return errors.Wrap(err, "failed to mark alerts sent")
	}
	return nil
}

func (r *Alerts) MarkRead(id uint) error {
	err := r.db.Model(&AlertRecord{}).Where("id = ?", id).Update("read", true).Error
	if err != nil {
		return errors.Wrap(err, "failed to mark alert read")
	}
	return nil
}

// MarkDismissed is a soft state, not a delete.
func (r *Alerts) MarkDismissed(id uint) error {
	err := r.db.Model(&AlertRecord{}).Where("id = ?", id).Update("dismissed", true).Error
	if err != nil {
		return errors.Wrap(err, "failed to dismiss alert")
	}
	return nil
}

func (r *Alerts) ListByUser(userID uint, limit int) ([]*AlertRecord, error) {
	q := r.db.Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []*AlertRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list alerts")
	}
	return rows, nil
}
