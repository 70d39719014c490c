package store

import (
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InMemory opens a throwaway database. Tests and one-shot CLI runs use it.
const InMemory = ":memory:"

// Store owns the database handle and hands out per-entity repositories.
type Store struct {
	db *gorm.DB
}

// Open connects, enables foreign keys, and migrates the schema.
func Open(location string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(location), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", location)
	}

	// A pooled in-memory sqlite would hand every connection its own empty
	// database; pin the pool to one connection instead.
	if location == InMemory {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	db = db.Exec("PRAGMA foreign_keys = ON")
	if err := db.AutoMigrate(
		&Target{},
		&Assessment{},
		&AlertRecord{},
		&AlertPreference{},
		&NotificationSetting{},
	); err != nil {
		return nil, errors.Wrap(err, "failed to migrate schema")
	}

	return &Store{db: db}, nil
}

// WithTransaction runs fn inside one transaction; the alert evaluation path
// relies on this for a consistent cooldown read + insert.
func (s *Store) WithTransaction(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

func (s *Store) Targets() *Targets         { return &Targets{db: s.db} }
func (s *Store) Assessments() *Assessments { return &Assessments{db: s.db} }
func (s *Store) Alerts() *Alerts           { return &Alerts{db: s.db} }
func (s *Store) Preferences() *Preferences { return &Preferences{db: s.db} }
func (s *Store) Settings() *Settings       { return &Settings{db: s.db} }

// Transaction-scoped variants for use inside WithTransaction callbacks.

func AlertsIn(tx *gorm.DB) *Alerts           { return &Alerts{db: tx} }
func PreferencesIn(tx *gorm.DB) *Preferences { return &Preferences{db: tx} }
func TargetsIn(tx *gorm.DB) *Targets         { return &Targets{db: tx} }
