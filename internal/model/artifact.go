package model

import "time"

// Artifact 操作副产物文件（图表 JSON、序列化模型）
// 记录来源列和创建时间，用于回答"我生成过哪些图"以及外部按时效清理
type Artifact struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID     string    `json:"session_id" gorm:"index;size:36"`
	Kind          string    `json:"kind" gorm:"size:20;index"` // plot, model
	SubType       string    `json:"sub_type" gorm:"size:30"`   // scatter, histogram... / linear_regression...
	Path          string    `json:"path" gorm:"size:512"`
	Title         string    `json:"title" gorm:"size:255"`
	SourceColumns string    `json:"source_columns" gorm:"type:text"` // 来源列名 JSON 数组
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (Artifact) TableName() string {
	return "artifacts"
}
