package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore is a Store backed by a GORM database.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database at path and migrates the
// history schema. Use ":memory:" for tests.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore migrates the schema on an existing connection.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Session{}, &Node{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) CreateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return ErrInvalidInput
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *GormStore) ListSessions(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&sessions).Error
	return sessions, err
}

// DeleteSession removes the session and its nodes in one transaction.
func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&Session{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Delete(&Node{}, "session_id = ?", id).Error
	})
}

func (s *GormStore) AddNode(ctx context.Context, node *Node) error {
	if node == nil || node.SessionID == "" || node.MIMEType == "" || node.ImageData == "" {
		return ErrInvalidInput
	}
	if node.ID == "" {
		node.ID = uuid.New().String()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session Session
		if err := tx.First(&session, "id = ?", node.SessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if node.ParentID != "" {
			var count int64
			if err := tx.Model(&Node{}).
				Where("id = ? AND session_id = ?", node.ParentID, node.SessionID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
		}
		if err := tx.Create(node).Error; err != nil {
			return err
		}
		return tx.Model(&session).Update("updated_at", time.Now()).Error
	})
}

func (s *GormStore) GetNode(ctx context.Context, id string) (*Node, error) {
	var node Node
	err := s.db.WithContext(ctx).First(&node, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *GormStore) ListNodes(ctx context.Context, sessionID string) ([]*Node, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	var nodes []*Node
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&nodes).Error
	return nodes, err
}

// Lineage walks parent pointers with one query per hop. Trees stay shallow
// in practice (tens of edits), so recursive CTEs are not worth the
// portability cost.
func (s *GormStore) Lineage(ctx context.Context, nodeID string) ([]*Node, error) {
	var chain []*Node
	id := nodeID
	for id != "" {
		node, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, node)
		id = node.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
