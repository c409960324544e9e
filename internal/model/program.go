package model

import (
	"encoding/json"
)

// TaskType 任务的交互类型
type TaskType string

const (
	TaskReflection    TaskType = "REFLECTION"
	TaskAssessment    TaskType = "ASSESSMENT"
	TaskExercise      TaskType = "EXERCISE"
	TaskJournaling    TaskType = "JOURNALING"
	TaskCommunication TaskType = "COMMUNICATION"
)

// Program 教练课程，由有序的阶段组成。目录数据由种子脚本写入，运行期只读。
// IsActive 不能带 default 标签：gorm 对带默认值的零值字段会在 INSERT 时省略，
// false 会被数据库默认值覆盖成 true。写入方显式赋值。
// swagger:model Program
type Program struct {
	BaseModel
	Name         string  `gorm:"size:255;not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	DurationDays int     `gorm:"default:0" json:"durationDays"`
	IsActive     bool    `json:"isActive"`
	Phases       []Phase `gorm:"foreignKey:ProgramID" json:"phases,omitempty"`
}

func (Program) TableName() string {
	return "programs"
}

// Phase 课程阶段，Order 在同一课程内唯一
type Phase struct {
	BaseModel
	ProgramID   uint     `gorm:"index;uniqueIndex:idx_program_phase_order" json:"programId"`
	Name        string   `gorm:"size:255;not null" json:"name"`
	Description string   `gorm:"type:text" json:"description"`
	Order       int      `gorm:"uniqueIndex:idx_program_phase_order" json:"order"`
	Tasks       []Task   `gorm:"foreignKey:PhaseID" json:"tasks,omitempty"`
	Program     *Program `gorm:"foreignKey:ProgramID" json:"-"`
}

func (Phase) TableName() string {
	return "phases"
}

// Task 最小的教练内容单元，Content 为展示层解释的提示词/指引载荷
type Task struct {
	BaseModel
	PhaseID     uint            `gorm:"index;uniqueIndex:idx_phase_task_order" json:"phaseId"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Type        TaskType        `gorm:"size:20;not null" json:"type"`
	Order       int             `gorm:"uniqueIndex:idx_phase_task_order" json:"order"`
	Content     json.RawMessage `gorm:"type:json" json:"content,omitempty"`
	Phase       *Phase          `gorm:"foreignKey:PhaseID" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}
