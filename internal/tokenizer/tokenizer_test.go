package tokenizer

import (
	"strings"
	"testing"
)

// ========== Tokenizer 测试 ==========

func TestTruncate(t *testing.T) {
	tk, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name      string
		text      string
		maxTokens int
	}{
		{"短文本不截断", "hello world", 100},
		{"长文本截断", strings.Repeat("transaction latency report ", 500), 50},
		{"预算为零", "anything", 0},
		{"空文本", "", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tk.Truncate(tt.text, tt.maxTokens)
			if n := tk.Count(got); n > tt.maxTokens && tt.maxTokens > 0 {
				t.Errorf("Truncate() produced %d tokens, budget %d", n, tt.maxTokens)
			}
			if tt.maxTokens == 0 && got != "" {
				t.Errorf("Truncate() with zero budget = %q, want empty", got)
			}
			if tk.Count(tt.text) <= tt.maxTokens && got != tt.text {
				t.Errorf("Truncate() modified text within budget")
			}
		})
	}
}

func TestTruncateIdempotent(t *testing.T) {
	tk, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	text := strings.Repeat("slow query on orders table ", 300)
	once := tk.Truncate(text, 64)
	twice := tk.Truncate(once, 64)
	if once != twice {
		t.Errorf("Truncate() not idempotent: first %d bytes, second %d bytes", len(once), len(twice))
	}
}

func TestCount(t *testing.T) {
	tk, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if n := tk.Count(""); n != 0 {
		t.Errorf("Count(empty) = %d, want 0", n)
	}
	if n := tk.Count("hello world"); n <= 0 {
		t.Errorf("Count() = %d, want > 0", n)
	}
}
