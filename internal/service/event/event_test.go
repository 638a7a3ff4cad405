package event

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// ========== Event 测试 ==========

func TestNewEvent(t *testing.T) {
	evt := NewEvent(EventQueryAnswered, "session-123", "user-1", "msg-1", "answered")

	if evt.ID == "" || !strings.HasPrefix(evt.ID, "evt_") {
		t.Errorf("ID = %q, want evt_ prefix", evt.ID)
	}
	if evt.SessionID != "session-123" {
		t.Errorf("SessionID = %s, want session-123", evt.SessionID)
	}
	if evt.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", evt.UserID)
	}
	if evt.MessageID != "msg-1" {
		t.Errorf("MessageID = %s, want msg-1", evt.MessageID)
	}
	if evt.EventType != EventQueryAnswered {
		t.Errorf("EventType = %s, want %s", evt.EventType, EventQueryAnswered)
	}
	if evt.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestNewEventUniqueIDs(t *testing.T) {
	a := NewEvent(EventReaction, "s", "u", "m", "")
	b := NewEvent(EventReaction, "s", "u", "m", "")
	if a.ID == b.ID {
		t.Errorf("Expected unique event IDs, both were %s", a.ID)
	}
}

// ========== Bus 测试 ==========

func TestBusSubscribe(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		wantErr bool
	}{
		{
			name: "valid handler",
			handler: HandlerFunc(func(ctx context.Context, evt *Event) error {
				return nil
			}),
			wantErr: false,
		},
		{
			name:    "nil handler",
			handler: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus(nil)
			err := bus.Subscribe(tt.handler)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Subscribe() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Subscribe() unexpected error: %v", err)
			}
			if len(bus.subscribers) != 1 {
				t.Errorf("Expected 1 subscriber, got %d", len(bus.subscribers))
			}
		})
	}
}

func TestBusPublish(t *testing.T) {
	t.Run("publish with store and subscriber", func(t *testing.T) {
		store := NewMemoryStore(16)
		bus := NewBus(store)
		ctx := context.Background()

		var mu sync.Mutex
		callCount := 0
		_ = bus.Subscribe(HandlerFunc(func(ctx context.Context, evt *Event) error {
			mu.Lock()
			defer mu.Unlock()
			callCount++
			return nil
		}))

		evt := NewEvent(EventQueryAnswered, "session-123", "user-1", "msg-1", "")
		if err := bus.Publish(ctx, evt); err != nil {
			t.Fatalf("Publish() unexpected error: %v", err)
		}

		// 等待异步处理
		time.Sleep(100 * time.Millisecond)

		mu.Lock()
		if callCount != 1 {
			t.Errorf("Expected handler called once, got %d", callCount)
		}
		mu.Unlock()

		events, _ := bus.Events(ctx, "session-123")
		if len(events) != 1 {
			t.Errorf("Expected 1 event in store, got %d", len(events))
		}
	})

	t.Run("publish without store", func(t *testing.T) {
		bus := NewBus(nil)
		ctx := context.Background()

		var mu sync.Mutex
		handlerCalled := false
		_ = bus.Subscribe(HandlerFunc(func(ctx context.Context, evt *Event) error {
			mu.Lock()
			defer mu.Unlock()
			handlerCalled = true
			return nil
		}))

		evt := NewEvent(EventQueryFailed, "session-123", "user-1", "", "boom")
		if err := bus.Publish(ctx, evt); err != nil {
			t.Fatalf("Publish() unexpected error: %v", err)
		}

		time.Sleep(100 * time.Millisecond)

		mu.Lock()
		if !handlerCalled {
			t.Error("Handler was not called")
		}
		mu.Unlock()

		events, err := bus.Events(ctx, "session-123")
		if err != nil {
			t.Errorf("Events() unexpected error: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("Expected 0 stored events without store, got %d", len(events))
		}
	})

	t.Run("store failure propagates", func(t *testing.T) {
		bus := NewBus(failingStore{})
		err := bus.Publish(context.Background(), NewEvent(EventReaction, "s", "u", "m", ""))
		if err == nil {
			t.Error("Publish() expected error from store, got nil")
		}
	})
}

func TestBusClearEvents(t *testing.T) {
	store := NewMemoryStore(16)
	bus := NewBus(store)
	ctx := context.Background()

	_ = bus.Publish(ctx, NewEvent(EventQueryAnswered, "session-123", "user-1", "msg-1", ""))

	events, _ := bus.Events(ctx, "session-123")
	if len(events) != 1 {
		t.Fatalf("Expected 1 event before clear, got %d", len(events))
	}

	if err := bus.ClearEvents(ctx, "session-123"); err != nil {
		t.Errorf("ClearEvents() unexpected error: %v", err)
	}

	events, _ = bus.Events(ctx, "session-123")
	if len(events) != 0 {
		t.Errorf("Expected 0 events after clear, got %d", len(events))
	}
}

// ========== MemoryStore 测试 ==========

func TestMemoryStoreLimit(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		evt := NewEvent(EventQueryAnswered, "session-123", "user-1", "", fmt.Sprintf("q%d", i))
		if err := store.SaveEvent(ctx, evt); err != nil {
			t.Fatalf("SaveEvent() unexpected error: %v", err)
		}
	}

	events, _ := store.GetEvents(ctx, "session-123")
	if len(events) != 3 {
		t.Fatalf("Expected 3 events after eviction, got %d", len(events))
	}
	if events[0].Data != "q2" || events[2].Data != "q4" {
		t.Errorf("Expected oldest events evicted, got %s..%s", events[0].Data, events[2].Data)
	}
}

func TestMemoryStoreIsolatesSessions(t *testing.T) {
	store := NewMemoryStore(16)
	ctx := context.Background()

	_ = store.SaveEvent(ctx, NewEvent(EventQueryAnswered, "session-a", "user-1", "", ""))
	_ = store.SaveEvent(ctx, NewEvent(EventReaction, "session-b", "user-2", "", ""))

	a, _ := store.GetEvents(ctx, "session-a")
	b, _ := store.GetEvents(ctx, "session-b")
	if len(a) != 1 || len(b) != 1 {
		t.Errorf("Expected 1 event per session, got %d and %d", len(a), len(b))
	}
	if a[0].EventType != EventQueryAnswered || b[0].EventType != EventReaction {
		t.Error("Events leaked across sessions")
	}
}

func TestMemoryStoreRejectsNil(t *testing.T) {
	store := NewMemoryStore(16)
	if err := store.SaveEvent(context.Background(), nil); err == nil {
		t.Error("SaveEvent(nil) expected error, got nil")
	}
}

// failingStore 保存总是失败的存储
type failingStore struct{}

func (failingStore) SaveEvent(ctx context.Context, evt *Event) error {
	return fmt.Errorf("save failed")
}

func (failingStore) GetEvents(ctx context.Context, sessionID string) ([]*Event, error) {
	return nil, fmt.Errorf("get failed")
}

func (failingStore) ClearEvents(ctx context.Context, sessionID string) error {
	return fmt.Errorf("clear failed")
}

// ========== Benchmark ==========

func BenchmarkBusPublish(b *testing.B) {
	bus := NewBus(NewMemoryStore(1024))
	ctx := context.Background()
	_ = bus.Subscribe(HandlerFunc(func(ctx context.Context, evt *Event) error {
		return nil
	}))

	evt := NewEvent(EventQueryAnswered, "session-123", "user-1", "msg-1", "")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(ctx, evt)
	}
}
