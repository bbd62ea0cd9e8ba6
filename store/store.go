package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/semiekhin/sofia-bot/llm"
)

const modelModeKey = "model_mode"

type Store struct {
	db *gorm.DB
}

func Open(cfg Config) (*Store, error) {
	dsn, err := ResolveDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("resolve dsn: %w", err)
	}
	cfg.DSN = dsn

	gdb, err := gorm.Open(sqlite.Open(cfg.sqliteDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	}

	s := &Store{db: gdb}
	if cfg.AutoMigrate {
		if err := s.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return s, nil
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Message{},
		&ChatMeta{},
		&DecisionLog{},
		&Setting{},
		&Feedback{},
	)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// History returns up to limit most recent messages for the chat in
// chronological order, most recent last.
func (s *Store) History(ctx context.Context, chatID int64, limit int) ([]llm.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = llm.Message{Role: row.Role, Content: row.Content}
	}
	return out, nil
}

// Append records one message. Fire-and-forget semantics belong to the
// caller; Append itself reports errors so best-effort paths can log them.
func (s *Store) Append(ctx context.Context, chatID int64, role, content string) error {
	err := s.db.WithContext(ctx).Create(&Message{
		ChatID:  chatID,
		Role:    role,
		Content: content,
	}).Error
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&ChatMeta{}).
		Where("chat_id = ?", chatID).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (s *Store) ClientName(ctx context.Context, chatID int64) (string, error) {
	var meta ChatMeta
	err := s.db.WithContext(ctx).First(&meta, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return meta.ClientName, nil
}

func (s *Store) SaveClientName(ctx context.Context, chatID int64, name string) error {
	var meta ChatMeta
	err := s.db.WithContext(ctx).First(&meta, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(&ChatMeta{
			ChatID:     chatID,
			ClientName: name,
			Status:     "active",
		}).Error
	}
	if err != nil {
		return err
	}
	meta.ClientName = name
	return s.db.WithContext(ctx).Save(&meta).Error
}

// ClearChat starts a new session: messages and decision logs go, chat meta
// stays.
func (s *Store) ClearChat(ctx context.Context, chatID int64) error {
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&Message{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&DecisionLog{}).Error
}

// RecordDecision persists the audit trace for one turn.
func (s *Store) RecordDecision(ctx context.Context, rec DecisionLog) error {
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Store) RecentDecisions(ctx context.Context, chatID int64, limit int) ([]DecisionLog, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []DecisionLog
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *Store) Setting(ctx context.Context, key, fallback string) (string, error) {
	var row Setting
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return row.Value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	var row Setting
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(&Setting{Key: key, Value: value}).Error
	}
	if err != nil {
		return err
	}
	row.Value = value
	return s.db.WithContext(ctx).Save(&row).Error
}

// ModelMode returns the persisted generation mode for the deployment.
func (s *Store) ModelMode(ctx context.Context) (string, error) {
	return s.Setting(ctx, modelModeKey, llm.DefaultMode)
}

func (s *Store) SetModelMode(ctx context.Context, mode string) error {
	if !llm.KnownMode(mode) {
		return fmt.Errorf("unknown model mode: %s", mode)
	}
	return s.SetSetting(ctx, modelModeKey, mode)
}

// ActiveChats lists chats that have any recorded messages, with their
// client names.
func (s *Store) ActiveChats(ctx context.Context) ([]ChatMeta, error) {
	var metas []ChatMeta
	err := s.db.WithContext(ctx).
		Where("chat_id IN (?)", s.db.Model(&Message{}).Distinct("chat_id")).
		Find(&metas).Error
	return metas, err
}

func (s *Store) DialogCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Message{}).Distinct("chat_id").Count(&n).Error
	return n, err
}

func (s *Store) SaveFeedback(ctx context.Context, fb Feedback) error {
	return s.db.WithContext(ctx).Create(&fb).Error
}

// MarshalContext serializes a feedback context snapshot the way the export
// readers expect it.
func MarshalContext(history []llm.Message) string {
	b, err := json.Marshal(history)
	if err != nil {
		return "[]"
	}
	return string(b)
}
