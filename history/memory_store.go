package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nodes    map[string]*Node
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		nodes:    make(map[string]*Node),
	}
}

func (s *MemoryStore) Close() error { return nil }

// CreateSession stores a new session, assigning an ID if unset.
func (s *MemoryStore) CreateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *session
	return &cp, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		cp := *session
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteSession removes a session and all of its nodes.
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	for nodeID, node := range s.nodes {
		if node.SessionID == id {
			delete(s.nodes, nodeID)
		}
	}
	return nil
}

// AddNode stores a node, validating its session and parent references.
func (s *MemoryStore) AddNode(ctx context.Context, node *Node) error {
	if node == nil || node.SessionID == "" || node.MIMEType == "" || node.ImageData == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[node.SessionID]
	if !ok {
		return ErrNotFound
	}
	if node.ParentID != "" {
		parent, ok := s.nodes[node.ParentID]
		if !ok || parent.SessionID != node.SessionID {
			return ErrNotFound
		}
	}

	if node.ID == "" {
		node.ID = uuid.New().String()
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}
	session.UpdatedAt = time.Now()

	cp := *node
	s.nodes[node.ID] = &cp
	return nil
}

func (s *MemoryStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *node
	return &cp, nil
}

// ListNodes returns a session's nodes in creation order.
func (s *MemoryStore) ListNodes(ctx context.Context, sessionID string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	var out []*Node
	for _, node := range s.nodes {
		if node.SessionID == sessionID {
			cp := *node
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Lineage walks parent pointers from the node up to the root.
func (s *MemoryStore) Lineage(ctx context.Context, nodeID string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain []*Node
	id := nodeID
	for id != "" {
		node, ok := s.nodes[id]
		if !ok {
			return nil, ErrNotFound
		}
		cp := *node
		chain = append(chain, &cp)
		id = node.ParentID
	}

	// Reverse to root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
