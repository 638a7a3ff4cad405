package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// TimestampLayout 消息时间戳格式，参与 MessageID 的计算
const TimestampLayout = "2006-01-02 15:04:05"

// Message 一次问答的完整记录
type Message struct {
	MessageID string    `gorm:"primaryKey;size:64"`
	SessionID string    `gorm:"index;size:64"`
	UserID    string    `gorm:"index;size:64"`
	Query     string    `gorm:"type:text"` // 用户的自然语言问题
	System    string    `gorm:"type:text"` // 助手的回答
	SQL       string    `gorm:"column:sql;type:text"`
	Timestamp string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// Reaction 用户对回答的反馈，只增不改
type Reaction struct {
	ID        string    `gorm:"primaryKey;size:36"`
	MessageID string    `gorm:"index;size:64"`
	SessionID string    `gorm:"index;size:64"`
	UserID    string    `gorm:"index;size:64"`
	Rating    string    `gorm:"size:16"`
	Feedback  string    `gorm:"type:text"`
	Timestamp string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// UserEnvironment 用户的目标数据库连接参数与可见表配置
type UserEnvironment struct {
	UserID    string    `gorm:"primaryKey;size:64"`
	Engine    string    `gorm:"size:20"` // mysql, mariadb, postgres, sqlite
	Host      string    `gorm:"size:255"`
	Port      int       ``
	Database  string    `gorm:"size:128"`
	Username  string    `gorm:"size:128"`
	Password  string    `gorm:"size:255"`
	Tables    string    `gorm:"type:text"` // 逗号分隔的可见表名
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

func (Reaction) TableName() string {
	return "reactions"
}

func (UserEnvironment) TableName() string {
	return "user_environments"
}

// ComputeMessageID 由问题和时间戳派生消息ID，相同输入得到相同ID
func ComputeMessageID(question, timestamp string) string {
	sum := sha256.Sum256([]byte(question + "_" + timestamp))
	return hex.EncodeToString(sum[:])
}

// NewMessage 构造一条完整的消息记录。回答和SQL都不允许为空，
// 保证存储中不会出现半成品记录。
func NewMessage(userID, sessionID, question, answer, sql string, at time.Time) (*Message, error) {
	if answer == "" {
		return nil, errors.New("message answer must not be empty")
	}
	if sql == "" {
		return nil, errors.New("message sql must not be empty")
	}
	ts := at.Format(TimestampLayout)
	return &Message{
		MessageID: ComputeMessageID(question, ts),
		SessionID: sessionID,
		UserID:    userID,
		Query:     question,
		System:    answer,
		SQL:       sql,
		Timestamp: ts,
	}, nil
}
