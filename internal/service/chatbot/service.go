// Package chatbot 实现自然语言问答流水线：
// 分类 → 生成 SQL → 带修复的执行 → 生成回答 → 落库。
package chatbot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"

	"github.com/ashwinyue/chat2sql/internal/config"
	"github.com/ashwinyue/chat2sql/internal/model"
	"github.com/ashwinyue/chat2sql/internal/repository"
	"github.com/ashwinyue/chat2sql/internal/service/dbx"
	"github.com/ashwinyue/chat2sql/internal/service/event"
	"github.com/ashwinyue/chat2sql/internal/service/prompt"
	"github.com/ashwinyue/chat2sql/internal/service/trace"
	"github.com/ashwinyue/chat2sql/internal/tokenizer"
)

// historyLimit 注入提示词的历史轮数上限
const historyLimit = 20

// ConversationStore 会话存储，由 repository.ConversationRepository 实现
type ConversationStore interface {
	CreateMessage(msg *model.Message) error
	History(userID, sessionID string, limit int) ([]*model.Message, error)
	LookupForRegeneration(messageID string) (*repository.RegenerationContext, error)
	CreateReaction(reaction *model.Reaction) error
}

// EnvironmentStore 用户目标库配置，由 repository.EnvironmentRepository 实现
type EnvironmentStore interface {
	GetByUserID(userID string) (*model.UserEnvironment, error)
}

// Suggester 问题推荐，由 suggestion.Service 实现
type Suggester interface {
	Suggest(ctx context.Context, userID, schemaDesc string) (string, error)
}

// Answer 一次问答的结果
type Answer struct {
	System    string
	UserID    string
	MessageID string
	SessionID string
	Timestamp string
	SQL       string
}

// Regenerated 重新生成的回答，带上一次回答与触发它的反馈
type Regenerated struct {
	Answer
	PreviousAnswer string
	Feedback       string
}

// Service 问答服务
type Service struct {
	conversations ConversationStore
	environments  EnvironmentStore
	classifier    *Classifier
	synth         *Synthesizer
	runner        *Runner
	analyzer      *trace.Analyzer
	suggester     Suggester
	tk            *tokenizer.Tokenizer
	cfg           config.ChatbotConfig
	events        *event.Bus

	// openTarget 默认走 dbx.Open，测试中可替换
	openTarget func(env *model.UserEnvironment) (Target, error)
}

// NewService 创建问答服务，suggester 可以为 nil
func NewService(
	chatModel einomodel.ChatModel,
	prompts *prompt.Registry,
	repos *repository.Repositories,
	tk *tokenizer.Tokenizer,
	cfg config.ChatbotConfig,
	suggester Suggester,
	events *event.Bus,
) *Service {
	synth := NewSynthesizer(chatModel, prompts, 10)
	return &Service{
		conversations: repos.Conversation,
		environments:  repos.Environment,
		classifier:    NewClassifier(chatModel, prompts),
		synth:         synth,
		runner:        NewRunner(synth, cfg.MaxRetries),
		analyzer:      trace.NewAnalyzer(),
		suggester:     suggester,
		tk:            tk,
		cfg:           cfg,
		events:        events,
		openTarget: func(env *model.UserEnvironment) (Target, error) {
			return dbx.Open(env)
		},
	}
}

// Ask 回答一个自然语言问题
func (s *Service) Ask(ctx context.Context, userID, sessionID, question string) (*Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	now := time.Now()

	target, err := s.target(userID)
	if err != nil {
		return nil, err
	}
	defer target.Close()

	if s.suggester != nil && s.classifier.IsSuggestionQuestion(ctx, question) {
		return s.askSuggestions(ctx, target, userID, sessionID, question, now)
	}

	memory := s.memory(userID, sessionID, question)

	var answer, finalQuery string
	if s.classifier.IsSlownessQuestion(ctx, question) {
		answer, finalQuery, err = s.askSlowness(ctx, target, question)
	} else {
		answer, finalQuery, err = s.askGeneral(ctx, target, memory, question)
	}
	if err != nil {
		s.publish(event.NewEvent(event.EventQueryFailed, sessionID, userID, "", err.Error()))
		return nil, err
	}

	stored, err := s.store(userID, sessionID, question, answer, finalQuery, now)
	if err != nil {
		return nil, err
	}
	s.publish(event.NewEvent(event.EventQueryAnswered, sessionID, userID, stored.MessageID, question))
	return stored, nil
}

// Regenerate 结合用户反馈重新回答。原消息查不到时上下文为空，
// 重新生成照常进行。
func (s *Service) Regenerate(ctx context.Context, userID, sessionID, messageID, question string) (*Regenerated, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	now := time.Now()

	target, err := s.target(userID)
	if err != nil {
		return nil, err
	}
	defer target.Close()

	rctx, err := s.conversations.LookupForRegeneration(messageID)
	if err != nil {
		log.Printf("regeneration lookup for message %s: %v", messageID, err)
		rctx = &repository.RegenerationContext{}
	}
	memory := s.memory(userID, sessionID, question)

	query, err := s.synth.RegenerateSQL(ctx, target.Dialect(), question, rctx.SQL, rctx.Feedback)
	if err != nil {
		return nil, err
	}

	outcome, err := s.runner.Run(ctx, target, question, query)
	if err != nil {
		return nil, err
	}

	results := s.tk.Truncate(outcome.ResultText(), s.cfg.ResultTokenBudget)
	answer, err := s.synth.RegenerateAnswer(ctx, question, outcome.Query, results, memory, rctx.Answer, rctx.Feedback)
	if err != nil {
		return nil, err
	}

	stored, err := s.store(userID, sessionID, question, answer, outcome.Query, now)
	if err != nil {
		return nil, err
	}
	s.publish(event.NewEvent(event.EventRegenerated, sessionID, userID, stored.MessageID, messageID))
	return &Regenerated{
		Answer:         *stored,
		PreviousAnswer: rctx.Answer,
		Feedback:       rctx.Feedback,
	}, nil
}

// React 记录用户对回答的反馈
func (s *Service) React(ctx context.Context, userID, sessionID, messageID, rating, feedback string) (*model.Reaction, error) {
	reaction := &model.Reaction{
		ID:        uuid.NewString(),
		MessageID: messageID,
		SessionID: sessionID,
		UserID:    userID,
		Rating:    rating,
		Feedback:  feedback,
		Timestamp: time.Now().Format(model.TimestampLayout),
	}
	if err := s.conversations.CreateReaction(reaction); err != nil {
		return nil, err
	}
	s.publish(event.NewEvent(event.EventReaction, sessionID, userID, messageID, rating))
	return reaction, nil
}

// Events 返回会话的流水线事件，事件未启用时返回空列表
func (s *Service) Events(ctx context.Context, sessionID string) ([]*event.Event, error) {
	if s.events == nil {
		return []*event.Event{}, nil
	}
	return s.events.Events(ctx, sessionID)
}

// Suggestions 为用户生成推荐问题
func (s *Service) Suggestions(ctx context.Context, userID string) (string, error) {
	if s.suggester == nil {
		return "", fmt.Errorf("suggestions are not enabled")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	target, err := s.target(userID)
	if err != nil {
		return "", err
	}
	defer target.Close()

	schemaDesc, err := s.schema(ctx, target)
	if err != nil {
		return "", err
	}
	return s.suggester.Suggest(ctx, userID, schemaDesc)
}

func (s *Service) askGeneral(ctx context.Context, target Target, memory, question string) (answer, finalQuery string, err error) {
	schemaDesc, err := s.schema(ctx, target)
	if err != nil {
		return "", "", err
	}

	query, err := s.synth.GenerateSQL(ctx, target.Dialect(), schemaDesc, memory, question)
	if err != nil {
		return "", "", err
	}

	outcome, err := s.runner.Run(ctx, target, question, query)
	if err != nil {
		return "", "", err
	}

	results := s.tk.Truncate(outcome.ResultText(), s.cfg.ResultTokenBudget)
	answer, err = s.synth.Answer(ctx, question, outcome.Query, results, memory)
	if err != nil {
		return "", "", err
	}
	return answer, outcome.Query, nil
}

// memory 构建注入提示词的对话记录视图，历史读取失败按空历史处理
func (s *Service) memory(userID, sessionID, question string) string {
	history, err := s.conversations.History(userID, sessionID, historyLimit)
	if err != nil {
		log.Printf("loading history for session %s: %v", sessionID, err)
		history = nil
	}
	return MemoryView(history, question)
}

func (s *Service) askSlowness(ctx context.Context, target Target, question string) (answer, finalQuery string, err error) {
	interval := s.classifier.ExtractInterval(ctx, question)
	query := slowTransactionQuery(target.Dialect(), interval)

	outcome, err := s.runner.Run(ctx, target, question, query)
	if err != nil {
		return "", "", err
	}
	if outcome.FellBack || outcome.Result == nil || len(outcome.Result.Rows) == 0 {
		return NoSlownessMessage, outcome.Query, nil
	}

	details := formatSlowTransactions(outcome.Result)
	cause := s.analyzer.Analyze(firstTrace(outcome.Result))
	link := consoleLink(s.cfg.ConsoleURL)
	return strings.Join([]string{details, cause, link}, "\n\n"), outcome.Query, nil
}

func (s *Service) askSuggestions(ctx context.Context, target Target, userID, sessionID, question string, now time.Time) (*Answer, error) {
	schemaDesc, err := s.schema(ctx, target)
	if err != nil {
		return nil, err
	}
	text, err := s.suggester.Suggest(ctx, userID, schemaDesc)
	if err != nil {
		return nil, err
	}
	return s.store(userID, sessionID, question, text, FallbackSentinel, now)
}

// store 落库并组装响应。回答已经生成，存储失败只记录日志。
func (s *Service) store(userID, sessionID, question, answer, query string, now time.Time) (*Answer, error) {
	msg, err := model.NewMessage(userID, sessionID, question, answer, query, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	if err := s.conversations.CreateMessage(msg); err != nil {
		log.Printf("storing message %s: %v", msg.MessageID, err)
	}
	return &Answer{
		System:    answer,
		UserID:    userID,
		MessageID: msg.MessageID,
		SessionID: sessionID,
		Timestamp: msg.Timestamp,
		SQL:       query,
	}, nil
}

// publish 发布事件，事件总线未启用时为空操作。事件不影响流水线，
// 发布失败只记录日志。
func (s *Service) publish(evt *event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.Background(), evt); err != nil {
		log.Printf("publishing %s event: %v", evt.EventType, err)
	}
}

func (s *Service) target(userID string) (Target, error) {
	env, err := s.environments.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.openTarget(env)
}

func (s *Service) schema(ctx context.Context, target Target) (string, error) {
	schemaDesc, err := target.DescribeSchema(ctx, s.cfg.SampleRows)
	if err != nil {
		return "", err
	}
	return s.tk.Truncate(schemaDesc, s.cfg.SchemaTokenBudget), nil
}

func (s *Service) timeout() time.Duration {
	if s.cfg.PipelineTimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(s.cfg.PipelineTimeoutSeconds) * time.Second
}
