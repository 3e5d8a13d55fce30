package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB       *gorm.DB // 直接访问数据库
	Chat     *ChatRepository
	Dataset  *DatasetRepository
	Model    *ModelRepository
	Artifact *ArtifactRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:       db,
		Chat:     NewChatRepository(db),
		Dataset:  NewDatasetRepository(db),
		Model:    NewModelRepository(db),
		Artifact: NewArtifactRepository(db),
	}
}
