package repository

import (
	"heartwise_backend/internal/model"

	"gorm.io/gorm"
)

// ProgramRepository 课程目录只读访问。目录由种子脚本写入，运行期不修改。
type ProgramRepository struct {
	DB *gorm.DB
}

func NewProgramRepository(db *gorm.DB) *ProgramRepository {
	return &ProgramRepository{DB: db}
}

func (r *ProgramRepository) FindActive() ([]model.Program, error) {
	var programs []model.Program
	err := r.DB.Where("is_active = ?", true).Order("created_at ASC").Find(&programs).Error
	return programs, err
}

func (r *ProgramRepository) FindByID(id uint) (*model.Program, error) {
	var program model.Program
	err := r.DB.First(&program, id).Error
	if err != nil {
		return nil, err
	}
	return &program, nil
}

// FindByIDWithTree 加载课程及其全部阶段、任务，按 order 排序
func (r *ProgramRepository) FindByIDWithTree(id uint) (*model.Program, error) {
	var program model.Program
	err := r.DB.
		Preload("Phases", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` ASC")
		}).
		Preload("Phases.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` ASC")
		}).
		First(&program, id).Error
	if err != nil {
		return nil, err
	}
	return &program, nil
}

// FindTaskWithPhase 加载任务及其所属阶段（用于定位课程）
func (r *ProgramRepository) FindTaskWithPhase(id uint) (*model.Task, error) {
	var task model.Task
	err := r.DB.Preload("Phase").First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindTaskWithAncestry 加载任务及其阶段、课程全链路，用于展示上下文
func (r *ProgramRepository) FindTaskWithAncestry(id uint) (*model.Task, error) {
	var task model.Task
	err := r.DB.Preload("Phase.Program").Preload("Phase").First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CountTasks 统计课程下所有阶段的任务总数
func (r *ProgramRepository) CountTasks(programID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Task{}).
		Joins("JOIN phases ON phases.id = tasks.phase_id").
		Where("phases.program_id = ?", programID).
		Count(&count).Error
	return count, err
}
