// Package mode persists the day/night flag that seeds the window job.
package mode

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath is the sqlite file used when none is configured.
const DefaultPath = "mode.db"

// ErrNoModeRow is returned when the mode row is missing and the store
// was opened without auto-create.
var ErrNoModeRow = errors.New("mode: no row in table mode")

// row is the single row of table mode(is_night).
type row struct {
	IsNight bool `gorm:"column:is_night;not null"`
}

func (row) TableName() string { return "mode" }

// Store reads and toggles the persisted flag.
type Store struct {
	db         *gorm.DB
	autoCreate bool
}

// Open opens the sqlite file at path. With autoCreate the table is
// created if missing and a first toggle seeds a row with is_night=false;
// without it a missing table or row is an error.
func Open(path string, autoCreate bool) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open mode store %s: %w", path, err)
	}
	if autoCreate {
		if err := db.AutoMigrate(&row{}); err != nil {
			return nil, fmt.Errorf("migrate mode store: %w", err)
		}
	}
	return &Store{db: db, autoCreate: autoCreate}, nil
}

// ToggleAndGetPrevious flips the flag in one transaction and returns the
// value it had before.
func (s *Store) ToggleAndGetPrevious(ctx context.Context) (bool, error) {
	var prev bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.load(tx)
		if err != nil {
			return err
		}
		prev = r.IsNight
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Model(&row{}).
			Update("is_night", !prev).Error
	})
	if err != nil {
		return false, fmt.Errorf("toggle mode: %w", err)
	}
	return prev, nil
}

// Current returns the flag without changing it.
func (s *Store) Current(ctx context.Context) (bool, error) {
	var night bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.load(tx)
		night = r.IsNight
		return err
	})
	if err != nil {
		return false, fmt.Errorf("read mode: %w", err)
	}
	return night, nil
}

// Set overwrites the flag, creating the row if needed.
func (s *Store) Set(ctx context.Context, night bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(tx); err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Model(&row{}).
			Update("is_night", night).Error
	})
}

// load reads the row, seeding it when auto-create is on.
func (s *Store) load(tx *gorm.DB) (row, error) {
	var r row
	err := tx.Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !s.autoCreate {
			return r, ErrNoModeRow
		}
		r = row{IsNight: false}
		if err := tx.Create(&r).Error; err != nil {
			return r, fmt.Errorf("seed mode row: %w", err)
		}
		return r, nil
	}
	return r, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
