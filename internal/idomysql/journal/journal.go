// Package journal persists a record of every convergence pass to a local
// sqlite database, so operators can see when the feature last changed, when
// the schema was imported, and why a pass failed.
package journal

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Record is one convergence pass. Error carries the failure message of an
// aborted pass; it never contains credential values, which the error system
// keeps out of messages in the first place.
type Record struct {
	RunID       string    `gorm:"primaryKey;size:26"`
	StartedAt   time.Time `gorm:"index"`
	FinishedAt  time.Time
	Changed     bool
	Notified    bool
	ImportState string `gorm:"size:32"`
	Error       string
}

// TableName maps the model to its table.
func (Record) TableName() string {
	return "runs"
}

// Store is the sqlite-backed pass journal.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the journal at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return &Store{db: db}, nil
}

// Append writes one pass record.
func (s *Store) Append(rec *Record) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	var records []Record
	err := s.db.Order("started_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return records, nil
}

// Last returns the most recent record, if any.
func (s *Store) Last() (*Record, bool, error) {
	records, err := s.Recent(1)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return &records[0], true, nil
}
