// Package credstore persists the bearer credential between runs so a restarted
// client reconnects without logging in again.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"github.com/DoyleJ11/deposit-auction-client/internal/token"
)

const credentialKey = "auth_token"

type CredentialModel struct {
	Key       string `gorm:"primaryKey"`
	Token     string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CredentialModel) TableName() string { return "credentials" }

// Open picks postgres for postgres:// DSNs and a sqlite file otherwise.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, cfg)
}

// Store implements token.Store on a single row.
type Store struct {
	db *gorm.DB
}

var _ token.Store = (*Store)(nil)

func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&CredentialModel{}); err != nil {
		return nil, fmt.Errorf("credstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (string, error) {
	var m CredentialModel
	err := s.db.WithContext(ctx).Where(&CredentialModel{Key: credentialKey}).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && m.Token == "") {
		return "", token.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("credstore: load: %w", err)
	}
	return m.Token, nil
}

func (s *Store) Save(ctx context.Context, tok string) error {
	m := CredentialModel{Key: credentialKey, Token: tok}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("credstore: save: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where(&CredentialModel{Key: credentialKey}).Delete(&CredentialModel{}).Error
	if err != nil {
		return fmt.Errorf("credstore: remove: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
