package model

import "time"

// ChatSession 聊天会话
type ChatSession struct {
	ID        string        `gorm:"primaryKey;size:36"`
	UserID    string        `gorm:"index;size:36"`
	Title     string        `gorm:"size:255"`
	Status    string        `gorm:"index;size:20;default:active"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
	Messages  []ChatMessage `gorm:"foreignKey:SessionID"`
}

// ChatMessage 聊天消息
// Operation/Payload/ArtifactID 记录该条消息对应执行的数据操作及其结果
type ChatMessage struct {
	ID         string    `gorm:"primaryKey;size:36"`
	SessionID  string    `gorm:"index;size:36"`
	Role       string    `gorm:"size:20;index"` // user, assistant, system, tool
	Content    string    `gorm:"type:text"`
	Operation  string    `gorm:"size:50"`   // 执行的操作名（analyze_data 等），可为空
	Payload    string    `gorm:"type:text"` // 操作结构化结果（JSON），可为空
	ArtifactID string    `gorm:"size:36"`   // 产出的图表/模型文件 ID，可为空
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
