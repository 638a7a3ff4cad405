package chatbot

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/ashwinyue/chat2sql/internal/service/prompt"
)

// DefaultInterval 问题中没有提到时间范围时使用的区间
const DefaultInterval = "5 MINUTE"

// Classifier 问题分类器。分类只影响走哪条回答路径，
// 所以任何失败都落到安全默认值，从不返回错误。
type Classifier struct {
	chatModel model.ChatModel
	prompts   *prompt.Registry
}

// NewClassifier 创建分类器
func NewClassifier(chatModel model.ChatModel, prompts *prompt.Registry) *Classifier {
	return &Classifier{chatModel: chatModel, prompts: prompts}
}

// IsSlownessQuestion 判断问题是否在问应用变慢、慢事务
func (c *Classifier) IsSlownessQuestion(ctx context.Context, question string) bool {
	return c.classify(ctx, prompt.ClassifySlowness, question)
}

// IsSuggestionQuestion 判断问题是否在请求推荐问题
func (c *Classifier) IsSuggestionQuestion(ctx context.Context, question string) bool {
	return c.classify(ctx, prompt.ClassifySuggestion, question)
}

func (c *Classifier) classify(ctx context.Context, template, question string) bool {
	rendered, err := c.prompts.Render(template, map[string]string{"question": question})
	if err != nil {
		log.Printf("classifier render %s: %v", template, err)
		return false
	}

	resp, err := c.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: rendered},
	})
	if err != nil {
		log.Printf("classifier %s: %v", template, err)
		return false
	}

	switch strings.ToLower(strings.Trim(strings.TrimSpace(resp.Content), `"'.`)) {
	case "true":
		return true
	case "false":
		return false
	default:
		// 模型没有给出判定词，按否处理
		return false
	}
}

// ExtractInterval 从问题中抽取时间区间，形如 "5 MINUTE"、"2 HOUR"。
// 抽取失败或区间非法时返回默认区间。
func (c *Classifier) ExtractInterval(ctx context.Context, question string) string {
	rendered, err := c.prompts.Render(prompt.ExtractInterval, map[string]string{"question": question})
	if err != nil {
		log.Printf("interval render: %v", err)
		return DefaultInterval
	}

	resp, err := c.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: rendered},
	})
	if err != nil {
		log.Printf("interval extraction: %v", err)
		return DefaultInterval
	}

	var params struct {
		Interval string `json:"interval"`
	}
	content := strings.TrimSpace(resp.Content)
	if err := json.Unmarshal([]byte(content), &params); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(content)
		if rerr != nil {
			return DefaultInterval
		}
		if err := json.Unmarshal([]byte(repaired), &params); err != nil {
			return DefaultInterval
		}
	}

	interval := strings.ToUpper(strings.TrimSpace(params.Interval))
	if interval == "" || interval == "NONE" || !intervalPattern.MatchString(interval) {
		return DefaultInterval
	}
	return interval
}
