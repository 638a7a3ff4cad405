package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ashwinyue/chat2sql/internal/model"
)

// ErrEnvironmentNotFound 用户未配置目标数据库
var ErrEnvironmentNotFound = errors.New("user environment not found")

// EnvironmentRepository 用户目标数据库配置访问
type EnvironmentRepository struct {
	db *gorm.DB
}

// NewEnvironmentRepository 创建环境配置仓库
func NewEnvironmentRepository(db *gorm.DB) *EnvironmentRepository {
	return &EnvironmentRepository{db: db}
}

// GetByUserID 获取用户的目标数据库配置
func (r *EnvironmentRepository) GetByUserID(userID string) (*model.UserEnvironment, error) {
	var env model.UserEnvironment
	err := r.db.Where("user_id = ?", userID).First(&env).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEnvironmentNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get environment", Err: err}
	}
	return &env, nil
}

// Upsert 保存或更新用户配置
func (r *EnvironmentRepository) Upsert(env *model.UserEnvironment) error {
	if err := r.db.Save(env).Error; err != nil {
		return &StorageError{Op: "upsert environment", Err: err}
	}
	return nil
}
