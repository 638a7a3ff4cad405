package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/ashwinyue/chat2sql/internal/service/prompt"
)

// ========== 分类器测试 ==========

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"明确肯定", "true", true},
		{"带引号", `"true"`, true},
		{"大写", "TRUE", true},
		{"明确否定", "false", false},
		{"非判定词落到否", "I think the user is asking about slowness", false},
		{"空响应落到否", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockChatModel{fallback: tt.response}
			c := NewClassifier(mock, prompt.NewRegistry())
			if got := c.IsSlownessQuestion(context.Background(), "is the app slow?"); got != tt.want {
				t.Errorf("IsSlownessQuestion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyModelErrorIsSafe(t *testing.T) {
	mock := &mockChatModel{err: errors.New("model unavailable")}
	c := NewClassifier(mock, prompt.NewRegistry())
	if c.IsSlownessQuestion(context.Background(), "q") {
		t.Error("IsSlownessQuestion() = true on model error, want safe default false")
	}
	if c.IsSuggestionQuestion(context.Background(), "q") {
		t.Error("IsSuggestionQuestion() = true on model error, want safe default false")
	}
}

func TestExtractInterval(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"标准JSON", `{"interval": "2 HOUR"}`, "2 HOUR"},
		{"小写区间", `{"interval": "30 minute"}`, "30 MINUTE"},
		{"可修复的JSON", `{interval: "1 DAY"}`, "1 DAY"},
		{"缺少区间", `{"interval": null}`, DefaultInterval},
		{"字面None", `{"interval": "None"}`, DefaultInterval},
		{"非法区间", `{"interval": "5 FORTNIGHT"}`, DefaultInterval},
		{"注入尝试", `{"interval": "5 MINUTE; DROP TABLE server"}`, DefaultInterval},
		{"完全不是JSON", "sorry, I cannot help", DefaultInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockChatModel{fallback: tt.response}
			c := NewClassifier(mock, prompt.NewRegistry())
			if got := c.ExtractInterval(context.Background(), "any slowness in the last while?"); got != tt.want {
				t.Errorf("ExtractInterval() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractIntervalModelError(t *testing.T) {
	mock := &mockChatModel{err: errors.New("model unavailable")}
	c := NewClassifier(mock, prompt.NewRegistry())
	if got := c.ExtractInterval(context.Background(), "q"); got != DefaultInterval {
		t.Errorf("ExtractInterval() = %q, want default on model error", got)
	}
}
