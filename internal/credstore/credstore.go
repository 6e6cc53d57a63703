package credstore

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage keys shared with the HTTP adapter. The adapter never imports
// the session store; this persisted side-channel is the only state the
// two have in common.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyAuthSnapshot = "auth-storage"
)

type Entry struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (Entry) TableName() string {
	return "client_state"
}

// Store is the persisted key/value state of the client process. It
// outlives a restart the way browser localStorage outlives a tab.
type Store struct {
	db *gorm.DB
}

// Open connects to the state database at path (":memory:" for an
// ephemeral store) and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key string) (string, bool) {
	var e Entry
	err := s.db.First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		return "", false
	}
	return e.Value, true
}

func (s *Store) Set(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&Entry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if err := s.db.Delete(&Entry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Token reads the bearer credential the adapter attaches to outbound
// requests. Empty means unauthenticated.
func (s *Store) Token() string {
	v, _ := s.Get(KeyToken)
	return v
}

// Clear removes every session artifact: token, refresh token and the
// persisted session snapshot.
func (s *Store) Clear() {
	s.db.Delete(&Entry{}, "key IN ?", []string{KeyToken, KeyRefreshToken, KeyAuthSnapshot})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
