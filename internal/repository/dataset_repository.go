package repository

import (
	"github.com/sello-bot/luna-data-science-chatbot/internal/model"
	"gorm.io/gorm"
)

// DatasetRepository 数据集记录数据访问
type DatasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository 创建数据集仓库
func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Create 创建数据集记录
func (r *DatasetRepository) Create(record *model.DatasetRecord) error {
	return r.db.Create(record).Error
}

// GetByID 获取数据集记录
func (r *DatasetRepository) GetByID(id string) (*model.DatasetRecord, error) {
	var record model.DatasetRecord
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetLatestBySession 获取会话最近上传的数据集记录
func (r *DatasetRepository) GetLatestBySession(sessionID string) (*model.DatasetRecord, error) {
	var record model.DatasetRecord
	err := r.db.Where("session_id = ?", sessionID).Order("created_at DESC").First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListBySession 列出会话的数据集记录
func (r *DatasetRepository) ListBySession(sessionID string) ([]*model.DatasetRecord, error) {
	var records []*model.DatasetRecord
	err := r.db.Where("session_id = ?", sessionID).Order("created_at DESC").Find(&records).Error
	return records, err
}

// Update 更新数据集记录
func (r *DatasetRepository) Update(record *model.DatasetRecord) error {
	return r.db.Save(record).Error
}
