package model

import (
	"encoding/json"
	"time"
)

// AssessmentQuestion 入门测评问卷题目，按步骤分组展示
// swagger:model AssessmentQuestion
type AssessmentQuestion struct {
	BaseModel
	Step    int             `gorm:"index;default:1" json:"step"`
	Order   int             `gorm:"default:0" json:"order"`
	Prompt  string          `gorm:"type:text;not null" json:"prompt"`
	Kind    string          `gorm:"size:20;default:'single_choice'" json:"kind"` // single_choice, scale, free_text
	Options json.RawMessage `gorm:"type:json" json:"options,omitempty"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

// AssessmentSubmission 用户一次完整的问卷提交，答案为原始 JSON
type AssessmentSubmission struct {
	UUIDBase
	UserID      uint            `gorm:"index" json:"userId"`
	Answers     json.RawMessage `gorm:"type:json" json:"answers"`
	CompletedAt time.Time       `json:"completedAt"`
}

func (AssessmentSubmission) TableName() string {
	return "assessment_submissions"
}

// CoachingProfile AI 根据测评生成的教练画像，每个用户一份，重测时覆盖
// swagger:model CoachingProfile
type CoachingProfile struct {
	BaseModel
	UserID          uint      `gorm:"uniqueIndex" json:"userId"`
	Summary         string    `gorm:"type:text" json:"summary"`
	Strengths       string    `gorm:"type:text" json:"strengths"`
	GrowthAreas     string    `gorm:"type:text" json:"growthAreas"`
	AttachmentStyle string    `gorm:"size:50" json:"attachmentStyle"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

func (CoachingProfile) TableName() string {
	return "coaching_profiles"
}
