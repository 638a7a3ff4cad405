package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/chat2sql/internal/service/prompt"
)

// Synthesizer SQL 与回答的生成器
type Synthesizer struct {
	chatModel model.ChatModel
	prompts   *prompt.Registry
	topK      int
}

// NewSynthesizer 创建生成器，topK 为结果行数的默认上限
func NewSynthesizer(chatModel model.ChatModel, prompts *prompt.Registry, topK int) *Synthesizer {
	if topK <= 0 {
		topK = 10
	}
	return &Synthesizer{chatModel: chatModel, prompts: prompts, topK: topK}
}

// GenerateSQL 根据表结构和对话记录生成查询
func (s *Synthesizer) GenerateSQL(ctx context.Context, dialect, schemaDesc, memory, question string) (string, error) {
	return s.generateQuery(ctx, prompt.GenerateSQL, map[string]string{
		"dialect":  dialect,
		"schema":   schemaDesc,
		"memory":   memory,
		"top_k":    fmt.Sprintf("%d", s.topK),
		"question": question,
	})
}

// RepairSQL 根据执行错误修复查询
func (s *Synthesizer) RepairSQL(ctx context.Context, dialect, question, query string, execErr error) (string, error) {
	return s.generateQuery(ctx, prompt.RepairSQL, map[string]string{
		"dialect":  dialect,
		"question": question,
		"query":    query,
		"error":    execErr.Error(),
	})
}

// RegenerateSQL 结合用户反馈重新生成查询
func (s *Synthesizer) RegenerateSQL(ctx context.Context, dialect, question, prevQuery, feedback string) (string, error) {
	return s.generateQuery(ctx, prompt.RegenerateSQL, map[string]string{
		"dialect":  dialect,
		"question": question,
		"query":    prevQuery,
		"feedback": feedback,
	})
}

// Answer 根据查询结果和对话记录生成回答
func (s *Synthesizer) Answer(ctx context.Context, question, query, results, memory string) (string, error) {
	return s.generateText(ctx, prompt.Answer, map[string]string{
		"question": question,
		"query":    query,
		"results":  results,
		"memory":   memory,
	})
}

// RegenerateAnswer 结合对话记录、上一次回答和反馈生成改进的回答
func (s *Synthesizer) RegenerateAnswer(ctx context.Context, question, query, results, memory, prevAnswer, feedback string) (string, error) {
	return s.generateText(ctx, prompt.RegenerateAnswer, map[string]string{
		"question":        question,
		"query":           query,
		"results":         results,
		"memory":          memory,
		"previous_answer": prevAnswer,
		"feedback":        feedback,
	})
}

func (s *Synthesizer) generateQuery(ctx context.Context, template string, values map[string]string) (string, error) {
	text, err := s.generateText(ctx, template, values)
	if err != nil {
		return "", err
	}
	query := cleanSQL(text)
	if query == "" {
		return "", fmt.Errorf("%w: empty query from %s", ErrSynthesis, template)
	}
	return query, nil
}

func (s *Synthesizer) generateText(ctx context.Context, template string, values map[string]string) (string, error) {
	rendered, err := s.prompts.Render(template, values)
	if err != nil {
		return "", err
	}
	resp, err := s.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: rendered},
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", template, err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response for %s", ErrSynthesis, template)
	}
	return text, nil
}

// cleanSQL 去掉模型偶尔带上的 markdown 围栏和前缀
func cleanSQL(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```sql")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "SQLQuery:")
	text = strings.TrimPrefix(text, "SQL:")
	return strings.TrimSpace(text)
}
