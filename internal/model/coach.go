package model

// CoachSession AI 教练会话。TaskID 为空表示通用会话，否则绑定到具体任务
// swagger:model CoachSession
type CoachSession struct {
	UUIDBase
	UserID   uint           `gorm:"index" json:"userId"`
	TaskID   *uint          `gorm:"index" json:"taskId,omitempty"`
	Title    string         `gorm:"size:255" json:"title"`
	Messages []CoachMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

func (CoachSession) TableName() string {
	return "coach_sessions"
}

// CoachMessage 会话内的单条消息
type CoachMessage struct {
	UUIDBase
	SessionID string `gorm:"index;type:varchar(36);not null" json:"sessionId"`
	Role      string `gorm:"size:20;not null" json:"role"` // user / assistant
	Content   string `gorm:"type:text;not null" json:"content"`
}

func (CoachMessage) TableName() string {
	return "coach_messages"
}
