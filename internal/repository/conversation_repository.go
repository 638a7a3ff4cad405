package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ashwinyue/chat2sql/internal/model"
)

// ErrMessageNotFound 按ID查不到消息
var ErrMessageNotFound = errors.New("message not found")

// ErrMessageExists 消息ID冲突，同一问题在同一秒内重复提交
var ErrMessageExists = errors.New("message already exists")

// StorageError 会话存储层错误，区别于目标库的执行错误
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RegenerationContext 重新生成回答时需要的历史上下文
type RegenerationContext struct {
	Question string
	Answer   string
	SQL      string
	Feedback string
}

// ConversationRepository 会话数据访问
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话仓库
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateMessage 保存一条问答记录，ID冲突时拒绝写入
func (r *ConversationRepository) CreateMessage(msg *model.Message) error {
	var count int64
	if err := r.db.Model(&model.Message{}).
		Where("message_id = ?", msg.MessageID).
		Count(&count).Error; err != nil {
		return &StorageError{Op: "create message", Err: err}
	}
	if count > 0 {
		return ErrMessageExists
	}
	if err := r.db.Create(msg).Error; err != nil {
		return &StorageError{Op: "create message", Err: err}
	}
	return nil
}

// GetMessageByID 获取单条消息
func (r *ConversationRepository) GetMessageByID(messageID string) (*model.Message, error) {
	var msg model.Message
	err := r.db.Where("message_id = ?", messageID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get message", Err: err}
	}
	return &msg, nil
}

// History 获取用户在某会话的最近 limit 条记录，时间正序返回。
// 取最新的 limit 条再反转，长会话里的新上下文不会被旧消息挤掉。
func (r *ConversationRepository) History(userID, sessionID string, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	query := r.db.Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, &StorageError{Op: "history", Err: err}
	}
	return oldestFirst(messages), nil
}

// oldestFirst 把倒序查询结果反转为时间正序
func oldestFirst(messages []*model.Message) []*model.Message {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}

// LookupForRegeneration 查出原消息及其最新一条反馈。
// 消息不存在时返回空上下文而不是错误，重新生成仍可进行。
func (r *ConversationRepository) LookupForRegeneration(messageID string) (*RegenerationContext, error) {
	rctx := &RegenerationContext{}

	var msg model.Message
	err := r.db.Where("message_id = ?", messageID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rctx, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "lookup message", Err: err}
	}
	rctx.Question = msg.Query
	rctx.Answer = msg.System
	rctx.SQL = msg.SQL

	var reaction model.Reaction
	err = r.db.Where("message_id = ?", messageID).
		Order("created_at DESC").
		First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rctx, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "lookup reaction", Err: err}
	}
	rctx.Feedback = reaction.Feedback
	return rctx, nil
}

// CreateReaction 保存反馈，只增不改
func (r *ConversationRepository) CreateReaction(reaction *model.Reaction) error {
	if err := r.db.Create(reaction).Error; err != nil {
		return &StorageError{Op: "create reaction", Err: err}
	}
	return nil
}

// ReactionsByMessage 获取某条消息的全部反馈，时间正序
func (r *ConversationRepository) ReactionsByMessage(messageID string) ([]*model.Reaction, error) {
	var reactions []*model.Reaction
	err := r.db.Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, &StorageError{Op: "list reactions", Err: err}
	}
	return reactions, nil
}
