package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/chat2sql/internal/config"
	"github.com/ashwinyue/chat2sql/internal/repository"
	"github.com/ashwinyue/chat2sql/internal/service/callback"
	"github.com/ashwinyue/chat2sql/internal/service/chatbot"
	"github.com/ashwinyue/chat2sql/internal/service/event"
	"github.com/ashwinyue/chat2sql/internal/service/prompt"
	"github.com/ashwinyue/chat2sql/internal/service/suggestion"
	"github.com/ashwinyue/chat2sql/internal/tokenizer"
)

// eventHistoryLimit 每个会话保留的流水线事件数
const eventHistoryLimit = 256

// Services 服务集合
type Services struct {
	Chatbot    *chatbot.Service
	Suggestion *suggestion.Service
	Events     *event.Bus

	// 配置
	Config *config.Config

	// Eino 组件（直接使用 eino 类型，无封装）
	ChatModel model.ChatModel
}

// NewServices 创建所有服务
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	callback.SetupGlobalCallbacks(cfg.App.Debug)

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	prompts := prompt.NewRegistry()
	if err := prompts.Validate(); err != nil {
		return nil, fmt.Errorf("prompt templates: %w", err)
	}

	tk, err := tokenizer.New()
	if err != nil {
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}

	suggester := suggestion.NewService(chatModel, prompts, redisClient,
		time.Duration(cfg.Chatbot.SuggestionTTLSeconds)*time.Second, 5)

	events := event.NewBus(event.NewMemoryStore(eventHistoryLimit))
	if err := events.Subscribe(event.HandlerFunc(func(ctx context.Context, evt *event.Event) error {
		log.Printf("event %s session=%s message=%s", evt.EventType, evt.SessionID, evt.MessageID)
		return nil
	})); err != nil {
		return nil, fmt.Errorf("subscribe event logger: %w", err)
	}

	return &Services{
		Chatbot:    chatbot.NewService(chatModel, prompts, repo, tk, cfg.Chatbot, suggester, events),
		Suggestion: suggester,
		Events:     events,
		Config:     cfg,
		ChatModel:  chatModel,
	}, nil
}

// newChatModel 创建 ChatModel。生成 SQL 需要稳定输出，温度固定为 0。
func newChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := float32(0)

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}
