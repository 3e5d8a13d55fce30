package repository

import (
	"github.com/sello-bot/luna-data-science-chatbot/internal/model"
	"gorm.io/gorm"
)

// ModelRepository 训练模型数据访问
type ModelRepository struct {
	db *gorm.DB
}

// NewModelRepository 创建模型仓库
func NewModelRepository(db *gorm.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// Create 保存训练模型
func (r *ModelRepository) Create(m *model.TrainedModel) error {
	return r.db.Create(m).Error
}

// GetByID 获取训练模型
func (r *ModelRepository) GetByID(id string) (*model.TrainedModel, error) {
	var m model.TrainedModel
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListBySession 列出会话训练过的模型
func (r *ModelRepository) ListBySession(sessionID string) ([]*model.TrainedModel, error) {
	var models []*model.TrainedModel
	err := r.db.Where("session_id = ?", sessionID).Order("created_at DESC").Find(&models).Error
	return models, err
}
