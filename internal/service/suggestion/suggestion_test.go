package suggestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/chat2sql/internal/service/prompt"
)

// ========== Mock ChatModel ==========

type mockChatModel struct {
	responses []string
	err       error
	callCount int
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	idx := (m.callCount - 1) % len(m.responses)
	return &schema.Message{Role: schema.Assistant, Content: m.responses[idx]}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *mockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// ========== 推荐服务测试 ==========

func TestSuggest(t *testing.T) {
	mock := &mockChatModel{responses: []string{
		`["Which server has the most errors?", "What is the average response time?"]`,
	}}
	svc := NewService(mock, prompt.NewRegistry(), nil, time.Minute, 5)

	got, err := svc.Suggest(context.Background(), "u1", "CREATE TABLE server (id INTEGER)")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if !strings.Contains(got, "1. Which server has the most errors?") {
		t.Errorf("Suggest() = %q, want numbered list", got)
	}
	if !strings.Contains(got, "2. What is the average response time?") {
		t.Errorf("Suggest() = %q, missing second question", got)
	}
}

func TestSuggestModelError(t *testing.T) {
	mock := &mockChatModel{err: errors.New("model unavailable")}
	svc := NewService(mock, prompt.NewRegistry(), nil, time.Minute, 5)

	if _, err := svc.Suggest(context.Background(), "u1", "schema"); err == nil {
		t.Fatal("Suggest() succeeded despite model error")
	}
}

func TestFormatSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"标准数组", `["a", "b"]`, "1. a\n2. b"},
		{"可修复的数组", `["a", "b",]`, "1. a\n2. b"},
		{"非数组原样返回", "just some prose", "just some prose"},
		{"空数组原样返回", `[]`, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSuggestions(tt.content); got != tt.want {
				t.Errorf("formatSuggestions(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
