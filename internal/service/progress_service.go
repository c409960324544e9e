package service

import (
	"encoding/json"
	"errors"
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// ProgressService 报名与任务进度核心。
// 任务状态写入和报名行的冗余计数更新始终在同一事务内完成，
// 读到的 CompletedTasks 与任务进度行不会出现可观测的偏差。
type ProgressService struct {
	ProgramRepo  *repository.ProgramRepository
	ProgressRepo *repository.ProgressRepository
	DB           *gorm.DB
}

func NewProgressService(
	programRepo *repository.ProgramRepository,
	progressRepo *repository.ProgressRepository,
	db *gorm.DB,
) *ProgressService {
	return &ProgressService{
		ProgramRepo:  programRepo,
		ProgressRepo: progressRepo,
		DB:           db,
	}
}

// Enroll 报名课程。TotalTasks 在此刻快照，之后目录变更不回填。
// 重复报名直接拒绝：快照只能捕获一次。
func (s *ProgressService) Enroll(userID, programID uint) (*model.UserProgress, error) {
	_, err := s.ProgressRepo.FindEnrollment(userID, programID)
	if err == nil {
		return nil, util.ErrAlreadyEnrolled
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	_, err = s.ProgramRepo.FindByID(programID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgramNotFound
	}
	if err != nil {
		return nil, err
	}

	total, err := s.ProgramRepo.CountTasks(programID)
	if err != nil {
		return nil, err
	}

	enrollment := &model.UserProgress{
		UserID:         userID,
		ProgramID:      programID,
		TotalTasks:     int(total),
		CompletedTasks: 0,
		CurrentPhase:   1,
		StartedAt:      time.Now(),
	}
	if err := s.ProgressRepo.CreateEnrollment(enrollment); err != nil {
		// 并发报名时两个请求可能都通过上面的预检查，
		// 由 (user_id, program_id) 唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyEnrolled
		}
		return nil, err
	}
	return enrollment, nil
}

// StartTask 将任务置为 IN_PROGRESS，按 (user, task) 幂等 upsert。
// 已完成的任务也会被拉回 IN_PROGRESS（复习即重做，与前端行为一致），
// 此时完成计数在同一事务内重算。
// 不校验用户是否报名了任务所属课程（与线上行为保持一致）。
func (s *ProgressService) StartTask(userID, taskID uint) (*model.TaskProgress, error) {
	task, err := s.ProgramRepo.FindTaskWithPhase(taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	var progress model.TaskProgress
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND task_id = ?", userID, taskID).First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			progress = model.TaskProgress{
				UserID: userID,
				TaskID: taskID,
				Status: model.TaskInProgress,
			}
			return tx.Create(&progress).Error
		}
		if err != nil {
			return err
		}

		wasCompleted := progress.Status == model.TaskCompleted
		progress.Status = model.TaskInProgress
		progress.CompletedAt = nil
		if err := tx.Save(&progress).Error; err != nil {
			return err
		}

		if wasCompleted {
			return s.refreshEnrollment(tx, userID, task.Phase.ProgramID, task.Phase.Order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// SubmitTaskResponse 记录任务提交并置为 COMPLETED。
// 无论之前状态如何都覆盖 Response 和 CompletedAt；历史 Feedback 保留。
// 允许未 start 直接提交。
func (s *ProgressService) SubmitTaskResponse(userID, taskID uint, response string) (*model.TaskProgress, error) {
	task, err := s.ProgramRepo.FindTaskWithPhase(taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	var progress model.TaskProgress
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Where("user_id = ? AND task_id = ?", userID, taskID).First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			progress = model.TaskProgress{
				UserID:      userID,
				TaskID:      taskID,
				Status:      model.TaskCompleted,
				Response:    response,
				CompletedAt: &now,
			}
			if err := tx.Create(&progress).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else {
			progress.Status = model.TaskCompleted
			progress.Response = response
			progress.CompletedAt = &now
			if err := tx.Save(&progress).Error; err != nil {
				return err
			}
		}

		return s.refreshEnrollment(tx, userID, task.Phase.ProgramID, task.Phase.Order)
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// refreshEnrollment 聚合器：按行重算完成计数并写回报名行。
// 用户未报名该课程时跳过，提交本身不受影响。
func (s *ProgressService) refreshEnrollment(tx *gorm.DB, userID, programID uint, phaseOrder int) error {
	var enrollment model.UserProgress
	err := tx.Where("user_id = ? AND program_id = ?", userID, programID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	completed, err := repository.CountCompleted(tx, userID, programID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"completed_tasks": int(completed),
	}
	if phaseOrder > enrollment.CurrentPhase {
		updates["current_phase"] = phaseOrder
	}
	if enrollment.TotalTasks > 0 && int(completed) >= enrollment.TotalTasks {
		if enrollment.CompletedAt == nil {
			now := time.Now()
			updates["completed_at"] = &now
		}
	} else if enrollment.CompletedAt != nil {
		updates["completed_at"] = nil
	}

	return tx.Model(&model.UserProgress{}).Where("id = ?", enrollment.ID).Updates(updates).Error
}

type TaskProgressItem struct {
	TaskID      uint             `json:"taskId"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        model.TaskType   `json:"type"`
	Order       int              `json:"order"`
	Content     json.RawMessage  `json:"content,omitempty"`
	Status      model.TaskStatus `json:"status"`
	Response    string           `json:"response,omitempty"`
	Feedback    string           `json:"feedback,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

type PhaseProgressItem struct {
	PhaseID     uint               `json:"phaseId"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Order       int                `json:"order"`
	Tasks       []TaskProgressItem `json:"tasks"`
}

type ProgramProgressResponse struct {
	Enrollment *model.UserProgress `json:"enrollment"`
	ProgramID  uint                `json:"programId"`
	Name       string              `json:"name"`
	Phases     []PhaseProgressItem `json:"phases"`
}

// GetProgramProgress 返回报名记录、完整阶段/任务树和用户逐任务状态。
// 从未 start/submit 的任务没有进度行，这里按 NOT_STARTED 展示。
func (s *ProgressService) GetProgramProgress(userID, programID uint) (*ProgramProgressResponse, error) {
	enrollment, err := s.ProgressRepo.FindEnrollment(userID, programID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}

	program, err := s.ProgramRepo.FindByIDWithTree(programID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgramNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.ProgressRepo.FindTaskProgressByProgram(userID, programID)
	if err != nil {
		return nil, err
	}
	byTask := make(map[uint]model.TaskProgress, len(rows))
	for _, row := range rows {
		byTask[row.TaskID] = row
	}

	resp := &ProgramProgressResponse{
		Enrollment: enrollment,
		ProgramID:  program.ID,
		Name:       program.Name,
	}
	for _, phase := range program.Phases {
		item := PhaseProgressItem{
			PhaseID:     phase.ID,
			Name:        phase.Name,
			Description: phase.Description,
			Order:       phase.Order,
			Tasks:       make([]TaskProgressItem, 0, len(phase.Tasks)),
		}
		for _, task := range phase.Tasks {
			taskItem := TaskProgressItem{
				TaskID:      task.ID,
				Title:       task.Title,
				Description: task.Description,
				Type:        task.Type,
				Order:       task.Order,
				Content:     task.Content,
				Status:      model.TaskNotStarted,
			}
			if row, ok := byTask[task.ID]; ok {
				taskItem.Status = row.Status
				taskItem.Response = row.Response
				taskItem.Feedback = row.Feedback
				taskItem.CompletedAt = row.CompletedAt
			}
			item.Tasks = append(item.Tasks, taskItem)
		}
		resp.Phases = append(resp.Phases, item)
	}

	return resp, nil
}

// GetAllProgress 返回用户全部报名记录及课程展示信息（不含任务明细）
func (s *ProgressService) GetAllProgress(userID uint) ([]model.UserProgress, error) {
	return s.ProgressRepo.FindEnrollmentsByUser(userID)
}

type TaskProgressDetail struct {
	Task        *model.Task         `json:"task"`
	PhaseName   string              `json:"phaseName"`
	PhaseOrder  int                 `json:"phaseOrder"`
	ProgramID   uint                `json:"programId"`
	ProgramName string              `json:"programName"`
	Progress    *model.TaskProgress `json:"progress"`
	Status      model.TaskStatus    `json:"status"`
}

// GetTaskProgress 返回单任务进度及其阶段、课程上下文。
// 进度行可能不存在，Status 此时为 NOT_STARTED。
func (s *ProgressService) GetTaskProgress(userID, taskID uint) (*TaskProgressDetail, error) {
	task, err := s.ProgramRepo.FindTaskWithAncestry(taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	detail := &TaskProgressDetail{
		Task:   task,
		Status: model.TaskNotStarted,
	}
	if task.Phase != nil {
		detail.PhaseName = task.Phase.Name
		detail.PhaseOrder = task.Phase.Order
		detail.ProgramID = task.Phase.ProgramID
		if task.Phase.Program != nil {
			detail.ProgramName = task.Phase.Program.Name
		}
	}

	progress, err := s.ProgressRepo.FindTaskProgress(userID, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return detail, nil
	}
	if err != nil {
		return nil, err
	}
	detail.Progress = progress
	detail.Status = progress.Status
	return detail, nil
}
