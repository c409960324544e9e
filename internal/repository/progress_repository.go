package repository

import (
	"heartwise_backend/internal/model"

	"gorm.io/gorm"
)

// ProgressRepository 报名与任务进度台账的读写。
// 写路径上涉及冗余计数的更新由 service 层在事务内完成。
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindEnrollment(userID, programID uint) (*model.UserProgress, error) {
	var enrollment model.UserProgress
	err := r.DB.Where("user_id = ? AND program_id = ?", userID, programID).First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *ProgressRepository) CreateEnrollment(enrollment *model.UserProgress) error {
	return r.DB.Create(enrollment).Error
}

func (r *ProgressRepository) FindEnrollmentsByUser(userID uint) ([]model.UserProgress, error) {
	var enrollments []model.UserProgress
	err := r.DB.Preload("Program").
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *ProgressRepository) FindTaskProgress(userID, taskID uint) (*model.TaskProgress, error) {
	var progress model.TaskProgress
	err := r.DB.Where("user_id = ? AND task_id = ?", userID, taskID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// FindTaskProgressByProgram 返回用户在某课程下已有的全部任务进度行
// （从未 start/submit 过的任务没有行，调用方按 NOT_STARTED 处理）
func (r *ProgressRepository) FindTaskProgressByProgram(userID, programID uint) ([]model.TaskProgress, error) {
	var rows []model.TaskProgress
	err := r.DB.
		Joins("JOIN tasks ON tasks.id = task_progress.task_id").
		Joins("JOIN phases ON phases.id = tasks.phase_id").
		Where("task_progress.user_id = ? AND phases.program_id = ?", userID, programID).
		Find(&rows).Error
	return rows, err
}

// CountCompleted 统计用户在某课程下 COMPLETED 的任务进度行数。
// 聚合器用它重算冗余计数；必须与触发它的状态写入共用同一事务。
func CountCompleted(tx *gorm.DB, userID, programID uint) (int64, error) {
	var count int64
	err := tx.Model(&model.TaskProgress{}).
		Joins("JOIN tasks ON tasks.id = task_progress.task_id").
		Joins("JOIN phases ON phases.id = tasks.phase_id").
		Where("task_progress.user_id = ? AND phases.program_id = ? AND task_progress.status = ?",
			userID, programID, model.TaskCompleted).
		Count(&count).Error
	return count, err
}
