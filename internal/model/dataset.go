package model

import "time"

// DatasetRecord 已上传数据集的持久化记录
// 内存中的表数据本身不落库，这里只保留元信息用于列表和恢复展示
type DatasetRecord struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID   string    `json:"session_id" gorm:"index;size:36"`
	FileName    string    `json:"file_name" gorm:"size:255"`
	Format      string    `json:"format" gorm:"size:20"` // csv, xlsx, json, parquet
	SourcePath  string    `json:"source_path" gorm:"size:512"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	Metadata    string    `json:"metadata" gorm:"type:text"` // 元数据 JSON
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (DatasetRecord) TableName() string {
	return "dataset_records"
}
