// Package history stores accepted completion words per directory in sqlite.
package history

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrEmptyWord is returned when recording a blank word.
var ErrEmptyWord = errors.New("word is empty")

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

type Entry struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`

	Word      string `gorm:"index"`
	Category  string
	Directory string `gorm:"index"`
}

// Open opens the store at dbFilePath, creating the file and schema when
// needed.
func Open(dbFilePath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(dbFilePath), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create history directory")
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history database %s", dbFilePath)
	}

	if !db.Migrator().HasTable(&Entry{}) {
		log.Debug("creating history schema", zap.String("path", dbFilePath))
		if err := db.AutoMigrate(&Entry{}); err != nil {
			return nil, errors.Wrap(err, "failed to migrate history schema")
		}
	}

	return &Store{db: db, logger: log}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores words accepted in directory under category.
func (s *Store) Record(ctx context.Context, directory, category string, words ...string) error {
	entries := make([]Entry, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			return ErrEmptyWord
		}
		entries = append(entries, Entry{Word: w, Category: category, Directory: directory})
	}
	if len(entries) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return errors.Wrap(err, "failed to record history")
	}
	s.logger.Debug("recorded history", zap.String("directory", directory), zap.Int("words", len(entries)))
	return nil
}

// Words returns up to limit distinct words recorded for directory under
// category, most recently used first.
func (s *Store) Words(ctx context.Context, directory, category string, limit int) ([]string, error) {
	var words []string
	result := s.db.WithContext(ctx).
		Model(&Entry{}).
		Where("directory = ? AND category = ?", directory, category).
		Group("word").
		Order("MAX(id) desc").
		Limit(limit).
		Pluck("word", &words)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query history")
	}
	return words, nil
}

// Revision identifies the state of the entries of one directory and
// category. Ids are never reused, so any insert raises LastID and any delete
// lowers Count.
type Revision struct {
	Count  int64
	LastID uint
}

// Revision returns the current revision of directory and category.
func (s *Store) Revision(ctx context.Context, directory, category string) (Revision, error) {
	var rev Revision
	result := s.db.WithContext(ctx).
		Model(&Entry{}).
		Select("COUNT(*) AS count, COALESCE(MAX(id), 0) AS last_id").
		Where("directory = ? AND category = ?", directory, category).
		Scan(&rev)
	if result.Error != nil {
		return Revision{}, errors.Wrap(result.Error, "failed to query history revision")
	}
	return rev, nil
}

// Recent returns the last limit entries across all directories, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	result := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query history")
	}

	slices.Reverse(entries)
	return entries, nil
}

// DeleteEntry removes one entry.
func (s *Store) DeleteEntry(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Entry{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete history entry")
	}
	if result.RowsAffected == 0 {
		return errors.Newf("no history entry found with id %d", id)
	}
	return nil
}

// Reset removes every entry.
func (s *Store) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("DELETE FROM entries").Error
}
