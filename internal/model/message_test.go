package model

import (
	"testing"
	"time"
)

// ========== 消息模型测试 ==========

func TestComputeMessageID(t *testing.T) {
	a := ComputeMessageID("how many users", "2026-01-02 10:00:00")
	b := ComputeMessageID("how many users", "2026-01-02 10:00:00")
	c := ComputeMessageID("how many users", "2026-01-02 10:00:01")

	if a != b {
		t.Errorf("same inputs produced different ids: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("different timestamps produced same id")
	}
	if len(a) != 64 {
		t.Errorf("id length = %d, want 64", len(a))
	}
}

func TestNewMessage(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		answer  string
		sql     string
		wantErr bool
	}{
		{"完整消息", "There are 42 users.", "SELECT COUNT(*) FROM users", false},
		{"空回答", "", "SELECT 1", true},
		{"空SQL", "something", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage("u1", "s1", "how many users", tt.answer, tt.sql, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if msg.Timestamp != "2026-01-02 10:30:00" {
				t.Errorf("Timestamp = %s", msg.Timestamp)
			}
			if msg.MessageID != ComputeMessageID("how many users", msg.Timestamp) {
				t.Errorf("MessageID not derived from question and timestamp")
			}
		})
	}
}
