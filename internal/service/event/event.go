// Package event 记录问答流水线的运行事件
package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// EventQueryAnswered 问题成功得到回答
	EventQueryAnswered EventType = "query_answered"
	// EventQueryFailed 流水线失败
	EventQueryFailed EventType = "query_failed"
	// EventRegenerated 回答被重新生成
	EventRegenerated EventType = "regenerated"
	// EventReaction 用户提交反馈
	EventReaction EventType = "reaction"
)

// Event 流水线事件
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	MessageID string    `json:"message_id,omitempty"`
	EventType EventType `json:"event_type"`
	Data      string    `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent 创建事件
func NewEvent(eventType EventType, sessionID, userID, messageID, data string) *Event {
	return &Event{
		ID:        "evt_" + uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		MessageID: messageID,
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Store 事件存储接口
type Store interface {
	SaveEvent(ctx context.Context, evt *Event) error
	GetEvents(ctx context.Context, sessionID string) ([]*Event, error)
	ClearEvents(ctx context.Context, sessionID string) error
}

// Handler 事件处理器接口
type Handler interface {
	Handle(ctx context.Context, evt *Event) error
}

// HandlerFunc 函数类型的事件处理器
type HandlerFunc func(ctx context.Context, evt *Event) error

// Handle 实现 Handler 接口
func (f HandlerFunc) Handle(ctx context.Context, evt *Event) error {
	return f(ctx, evt)
}

// Bus 事件总线
type Bus struct {
	store       Store
	subscribers []Handler
	mu          sync.RWMutex
}

// NewBus 创建事件总线，store 可以为 nil（只通知不落盘）
func NewBus(store Store) *Bus {
	return &Bus{store: store}
}

// Subscribe 订阅所有事件
func (b *Bus) Subscribe(handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, handler)
	return nil
}

// Publish 保存事件并通知订阅者
func (b *Bus) Publish(ctx context.Context, evt *Event) error {
	if b.store != nil {
		if err := b.store.SaveEvent(ctx, evt); err != nil {
			return err
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.subscribers {
		// 异步处理，订阅者失败不影响流水线
		go func(h Handler) {
			_ = h.Handle(ctx, evt)
		}(handler)
	}

	return nil
}

// Events 获取会话的所有事件
func (b *Bus) Events(ctx context.Context, sessionID string) ([]*Event, error) {
	if b.store != nil {
		return b.store.GetEvents(ctx, sessionID)
	}
	return []*Event{}, nil
}

// ClearEvents 清空会话事件
func (b *Bus) ClearEvents(ctx context.Context, sessionID string) error {
	if b.store != nil {
		return b.store.ClearEvents(ctx, sessionID)
	}
	return nil
}

// ========== MemoryStore ==========

// MemoryStore 内存事件存储，按会话保留最近 limit 条
type MemoryStore struct {
	limit  int
	events map[string][]*Event
	mu     sync.RWMutex
}

// NewMemoryStore 创建内存事件存储
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 256
	}
	return &MemoryStore{
		limit:  limit,
		events: make(map[string][]*Event),
	}
}

// SaveEvent 保存事件
func (s *MemoryStore) SaveEvent(ctx context.Context, evt *Event) error {
	if evt == nil {
		return fmt.Errorf("event cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.events[evt.SessionID], evt)
	if len(list) > s.limit {
		list = list[len(list)-s.limit:]
	}
	s.events[evt.SessionID] = list
	return nil
}

// GetEvents 获取会话事件，按保存顺序返回
func (s *MemoryStore) GetEvents(ctx context.Context, sessionID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.events[sessionID]
	out := make([]*Event, len(list))
	copy(out, list)
	return out, nil
}

// ClearEvents 清空会话事件
func (s *MemoryStore) ClearEvents(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, sessionID)
	return nil
}
