// Package suggestion 基于表结构为用户推荐可以提问的问题
package suggestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/chat2sql/internal/service/prompt"
)

const cacheKeyPrefix = "chat2sql:suggestions:"

// Service 问题推荐服务，结果按用户缓存在 Redis 中
type Service struct {
	chatModel model.ChatModel
	prompts   *prompt.Registry
	rdb       *redis.Client
	ttl       time.Duration
	count     int
}

// NewService 创建推荐服务，rdb 为 nil 时不走缓存
func NewService(chatModel model.ChatModel, prompts *prompt.Registry, rdb *redis.Client, ttl time.Duration, count int) *Service {
	if count <= 0 {
		count = 5
	}
	return &Service{
		chatModel: chatModel,
		prompts:   prompts,
		rdb:       rdb,
		ttl:       ttl,
		count:     count,
	}
}

// Suggest 生成推荐问题列表。缓存命中直接返回，
// 缓存读写失败只记录日志，不影响结果。
func (s *Service) Suggest(ctx context.Context, userID, schemaDesc string) (string, error) {
	key := cacheKeyPrefix + userID

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			log.Printf("suggestion cache read failed: %v", err)
		}
	}

	rendered, err := s.prompts.Render(prompt.Suggestions, map[string]string{
		"schema": schemaDesc,
		"count":  strconv.Itoa(s.count),
	})
	if err != nil {
		return "", err
	}

	resp, err := s.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: rendered},
	})
	if err != nil {
		return "", fmt.Errorf("generate suggestions: %w", err)
	}

	text := formatSuggestions(resp.Content)

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, text, s.ttl).Err(); err != nil {
			log.Printf("suggestion cache write failed: %v", err)
		}
	}
	return text, nil
}

// Invalidate 清除用户的推荐缓存
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, cacheKeyPrefix+userID).Err()
}

// formatSuggestions 将模型输出的 JSON 数组渲染为编号列表，
// 解析不了就原样返回
func formatSuggestions(content string) string {
	content = strings.TrimSpace(content)

	var questions []string
	if err := json.Unmarshal([]byte(content), &questions); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(content)
		if rerr != nil {
			return content
		}
		if err := json.Unmarshal([]byte(repaired), &questions); err != nil {
			return content
		}
	}
	if len(questions) == 0 {
		return content
	}

	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(q))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
