package repository

import (
	"time"

	"github.com/sello-bot/luna-data-science-chatbot/internal/model"
	"gorm.io/gorm"
)

// ArtifactRepository 副产物文件数据访问
type ArtifactRepository struct {
	db *gorm.DB
}

// NewArtifactRepository 创建副产物仓库
func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create 记录副产物
func (r *ArtifactRepository) Create(a *model.Artifact) error {
	return r.db.Create(a).Error
}

// GetByID 获取副产物
func (r *ArtifactRepository) GetByID(id string) (*model.Artifact, error) {
	var a model.Artifact
	err := r.db.Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListBySession 列出会话的副产物，kind 为空时不过滤
func (r *ArtifactRepository) ListBySession(sessionID, kind string) ([]*model.Artifact, error) {
	var artifacts []*model.Artifact
	query := r.db.Where("session_id = ?", sessionID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("created_at DESC").Find(&artifacts).Error
	return artifacts, err
}

// ListOlderThan 列出早于指定时间的副产物（供外部清理任务使用）
func (r *ArtifactRepository) ListOlderThan(before time.Time) ([]*model.Artifact, error) {
	var artifacts []*model.Artifact
	err := r.db.Where("created_at < ?", before).Find(&artifacts).Error
	return artifacts, err
}

// Delete 删除副产物记录
func (r *ArtifactRepository) Delete(id string) error {
	return r.db.Delete(&model.Artifact{}, "id = ?", id).Error
}
