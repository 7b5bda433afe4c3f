package history

import (
	"context"
	"errors"
	"time"

	"github.com/paintbox-ai/paintbox/imaging"
)

// Common errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// NodeKind tells how a node's image came to be.
type NodeKind string

const (
	KindUpload   NodeKind = "upload"
	KindGenerate NodeKind = "generate"
	KindEdit     NodeKind = "edit"
	KindSegment  NodeKind = "segment"
)

// Session groups one editing workflow.
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:200" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Node is one image state in a session tree. ParentID is empty for roots.
type Node struct {
	ID        string   `gorm:"primaryKey;size:36" json:"id"`
	SessionID string   `gorm:"size:36;not null;index:idx_session" json:"session_id"`
	ParentID  string   `gorm:"size:36;index:idx_parent" json:"parent_id,omitempty"`
	Kind      NodeKind `gorm:"size:20;not null" json:"kind"`

	// Prompt is the generation prompt or edit instruction that produced
	// this node. Empty for uploads.
	Prompt   string `gorm:"type:text" json:"prompt,omitempty"`
	Provider string `gorm:"size:50" json:"provider,omitempty"`
	Model    string `gorm:"size:100" json:"model,omitempty"`
	Seed     int64  `json:"seed,omitempty"`

	MIMEType  string    `gorm:"size:50;not null" json:"mime_type"`
	ImageData string    `gorm:"type:text;not null" json:"image_data"`
	CreatedAt time.Time `json:"created_at"`
}

// Image returns the node's payload as an imaging blob.
func (n *Node) Image() imaging.ImageBlob {
	return imaging.ImageBlob{MIMEType: n.MIMEType, Data: n.ImageData}
}

// Store is the session/node persistence interface.
type Store interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	AddNode(ctx context.Context, node *Node) error
	GetNode(ctx context.Context, id string) (*Node, error)
	ListNodes(ctx context.Context, sessionID string) ([]*Node, error)

	// Lineage returns the path from the session root to the given node,
	// root first.
	Lineage(ctx context.Context, nodeID string) ([]*Node, error)

	Close() error
}
