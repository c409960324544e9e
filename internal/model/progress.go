package model

import (
	"time"
)

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "NOT_STARTED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// UserProgress 用户对课程的报名记录。
// TotalTasks 在报名时快照一次；CompletedTasks 为冗余计数，
// 每次任务状态变化时按行重算，不做增量维护。
// swagger:model UserProgress
type UserProgress struct {
	BaseModel
	UserID         uint       `gorm:"uniqueIndex:idx_user_program" json:"userId"`
	ProgramID      uint       `gorm:"uniqueIndex:idx_user_program" json:"programId"`
	TotalTasks     int        `gorm:"default:0" json:"totalTasks"`
	CompletedTasks int        `gorm:"default:0" json:"completedTasks"`
	CurrentPhase   int        `gorm:"default:1" json:"currentPhase"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Program        *Program   `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// TaskProgress 用户对单个任务的状态与提交内容。
// 行按 (user, task) 唯一，首次 start/submit 时懒创建，只更新不删除。
// swagger:model TaskProgress
type TaskProgress struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex:idx_user_task" json:"userId"`
	TaskID      uint       `gorm:"uniqueIndex:idx_user_task" json:"taskId"`
	Status      TaskStatus `gorm:"size:20;default:'NOT_STARTED'" json:"status"`
	Response    string     `gorm:"type:text" json:"response,omitempty"`
	Feedback    string     `gorm:"type:text" json:"feedback,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Task        *Task      `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (TaskProgress) TableName() string {
	return "task_progress"
}
