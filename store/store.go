// Package store persists readings in a single SQLite file.
//
// The store keeps no connection between calls: every operation opens the
// file, runs and closes it again, whatever the outcome.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ZamarianPatrick/pms/model"
)

// ErrNoDatabase is returned by Insert when the database file does not exist.
var ErrNoDatabase = errors.New("store: database does not exist")

const createTable = `
CREATE TABLE pms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT,
	light_intensity REAL,
	soil_moisture REAL,
	air_humidity REAL,
	temperature REAL)`

// Opener opens a connection to the database file at path.
type Opener func(path string) (*gorm.DB, error)

type Store struct {
	path   string
	logger *slog.Logger
	open   Opener
}

type Option func(*Store)

// WithOpener replaces the default sqlite opener.
func WithOpener(open Opener) Option {
	return func(s *Store) {
		s.open = open
	}
}

// WithGormLogging makes gorm log every statement.
func WithGormLogging() Option {
	return func(s *Store) {
		s.open = func(path string) (*gorm.DB, error) {
			return gorm.Open(sqlite.Open(path), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Info),
			})
		}
	}
}

func New(path string, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: logger,
		open:   OpenSQLite,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSQLite is the default Opener.
func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func (s *Store) exists() bool {
	_, err := os.Stat(s.path)
	return !errors.Is(err, os.ErrNotExist)
}

// withDB opens the database, runs fn and always closes the connection.
func (s *Store) withDB(fn func(db *gorm.DB) error) (err error) {
	db, err := s.open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", s.path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close database %s: %w", s.path, cerr)
		}
		s.logger.Debug("database closed", "path", s.path)
	}()

	s.logger.Debug("connected to database", "path", s.path)
	return fn(db)
}

// EnsureSchema creates the database file and the pms table unless the file
// already exists. An existing file is trusted as is. When the table cannot be
// created the file is removed again.
func (s *Store) EnsureSchema() error {
	if s.exists() {
		s.logger.Info("database exists", "path", s.path)
		return nil
	}

	err := s.withDB(func(db *gorm.DB) error {
		s.logger.Info("database created", "path", s.path)
		return s.transaction(db, func(tx *gorm.DB) error {
			return tx.Exec(createTable).Error
		})
	})
	if err != nil {
		s.logger.Error("failed to create database schema", "path", s.path, "error", err)
		// a file without the table would be trusted by the next call
		if rerr := os.Remove(s.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			s.logger.Error("failed to remove database", "path", s.path, "error", rerr)
		}
		return err
	}
	return nil
}

// Insert appends r as one row. The row is written completely or not at all.
func (s *Store) Insert(r model.Reading) error {
	s.logger.Debug("insert to database", "path", s.path)

	if !s.exists() {
		s.logger.Error("database does not exist", "path", s.path)
		return fmt.Errorf("%w: %s", ErrNoDatabase, s.path)
	}

	record := model.NewRecord(r)
	err := s.withDB(func(db *gorm.DB) error {
		return s.transaction(db, func(tx *gorm.DB) error {
			return tx.Create(&record).Error
		})
	})
	if err != nil {
		s.logger.Error("failed to insert reading", "path", s.path, "error", err)
		return err
	}
	return nil
}

func (s *Store) transaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	err := db.Transaction(fn)
	if err != nil {
		s.logger.Debug("database rollback", "path", s.path)
	}
	return err
}

// Latest returns up to limit records, newest first.
func (s *Store) Latest(limit int) ([]model.Record, error) {
	if !s.exists() {
		return nil, fmt.Errorf("%w: %s", ErrNoDatabase, s.path)
	}

	var records []model.Record
	err := s.withDB(func(db *gorm.DB) error {
		return db.Order("id desc").Limit(limit).Find(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) Count() (int64, error) {
	if !s.exists() {
		return 0, fmt.Errorf("%w: %s", ErrNoDatabase, s.path)
	}

	var count int64
	err := s.withDB(func(db *gorm.DB) error {
		return db.Model(&model.Record{}).Count(&count).Error
	})
	return count, err
}
