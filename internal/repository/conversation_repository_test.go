package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ashwinyue/chat2sql/internal/model"
)

// ========== 历史排序测试 ==========

func TestOldestFirst(t *testing.T) {
	tests := []struct {
		name  string
		in    []string // 倒序的消息ID（查询返回顺序）
		want  []string // 反转后的正序
	}{
		{
			name: "newest-first query result becomes oldest-first",
			in:   []string{"m5", "m4", "m3", "m2", "m1"},
			want: []string{"m1", "m2", "m3", "m4", "m5"},
		},
		{
			name: "single message",
			in:   []string{"m1"},
			want: []string{"m1"},
		},
		{
			name: "empty history",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var messages []*model.Message
			for _, id := range tt.in {
				messages = append(messages, &model.Message{MessageID: id})
			}

			got := oldestFirst(messages)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].MessageID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].MessageID, id)
				}
			}
		})
	}
}

// ========== 错误类型测试 ==========

func TestStorageErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := &StorageError{Op: "history", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("StorageError does not unwrap to its cause")
	}
	if got := err.Error(); got != "storage history: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}
