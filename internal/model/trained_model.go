package model

import "time"

// TrainedModel 已训练模型的持久化记录
// Blob 为模型参数的 JSON 序列化，训练完成后不再修改（重训产生新记录）
type TrainedModel struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID string    `json:"session_id" gorm:"index;size:36"`
	ModelType string    `json:"model_type" gorm:"size:30;index"`
	Target    string    `json:"target" gorm:"size:255"` // 无监督模型为空
	Features  string    `json:"features" gorm:"type:text"` // 特征列 JSON 数组（有序）
	Metrics   string    `json:"metrics" gorm:"type:text"`  // 评估指标 JSON
	Blob      []byte    `json:"-" gorm:"type:bytea"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (TrainedModel) TableName() string {
	return "trained_models"
}
