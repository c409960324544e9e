package service

import (
	"fmt"
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Program{},
		&model.Phase{},
		&model.Task{},
		&model.UserProgress{},
		&model.TaskProgress{},
		&model.AssessmentQuestion{},
		&model.AssessmentSubmission{},
		&model.CoachingProfile{},
		&model.CoachSession{},
		&model.CoachMessage{},
	))
	return db
}

// seedCatalog 写入一个 2 阶段 3 任务的课程并返回完整树
func seedCatalog(t *testing.T, db *gorm.DB) *model.Program {
	t.Helper()
	program := &model.Program{
		Name:     "重建连接",
		IsActive: true,
		Phases: []model.Phase{
			{
				Name:  "觉察",
				Order: 1,
				Tasks: []model.Task{
					{Title: "记录互动", Type: model.TaskJournaling, Order: 1},
					{Title: "识别需求", Type: model.TaskReflection, Order: 2},
				},
			},
			{
				Name:  "表达",
				Order: 2,
				Tasks: []model.Task{
					{Title: "专注对话", Type: model.TaskCommunication, Order: 1},
				},
			},
		},
	}
	require.NoError(t, db.Create(program).Error)
	return program
}

func newProgressService(db *gorm.DB) *ProgressService {
	return NewProgressService(
		repository.NewProgramRepository(db),
		repository.NewProgressRepository(db),
		db,
	)
}

func (s *ProgressService) mustEnrollment(t *testing.T, userID, programID uint) *model.UserProgress {
	t.Helper()
	enrollment, err := s.ProgressRepo.FindEnrollment(userID, programID)
	require.NoError(t, err)
	return enrollment
}

func TestEnroll(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	enrollment, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, enrollment.TotalTasks)
	assert.Equal(t, 0, enrollment.CompletedTasks)
	assert.Equal(t, 1, enrollment.CurrentPhase)
	assert.False(t, enrollment.StartedAt.IsZero())
	assert.Nil(t, enrollment.CompletedAt)
}

func TestEnrollDuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	_, err = svc.Enroll(1, program.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	// 其他用户不受影响
	_, err = svc.Enroll(2, program.ID)
	assert.NoError(t, err)
}

func TestEnrollConcurrentDuplicateMapsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	// 模拟预检查通过后、写入前被并发请求抢先写入同一 (user, program) 行：
	// 唯一索引冲突应映射为已报名，而不是透传数据库错误
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("enroll_race", func(tx *gorm.DB) {
		if raced {
			return
		}
		if _, ok := tx.Statement.Dest.(*model.UserProgress); !ok {
			return
		}
		raced = true
		rival := &model.UserProgress{
			UserID:       1,
			ProgramID:    program.ID,
			TotalTasks:   3,
			CurrentPhase: 1,
			StartedAt:    time.Now(),
		}
		require.NoError(t, db.Create(rival).Error)
	})
	require.NoError(t, err)

	_, err = svc.Enroll(1, program.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	// 抢先写入的那一行保持不变
	enrollment := svc.mustEnrollment(t, 1, program.ID)
	assert.Equal(t, 3, enrollment.TotalTasks)
}

func TestEnrollProgramNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, 999)
	assert.ErrorIs(t, err, util.ErrProgramNotFound)
}

func TestEnrollSnapshotIgnoresLaterCatalogChanges(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	// 报名后目录新增任务，快照不回填
	require.NoError(t, db.Create(&model.Task{
		PhaseID: program.Phases[1].ID,
		Title:   "新任务",
		Type:    model.TaskExercise,
		Order:   2,
	}).Error)

	enrollment := svc.mustEnrollment(t, 1, program.ID)
	assert.Equal(t, 3, enrollment.TotalTasks)
}

func TestStartTask(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	taskID := program.Phases[0].Tasks[0].ID
	progress, err := svc.StartTask(1, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, progress.Status)
	assert.Nil(t, progress.CompletedAt)

	// 重复 start 幂等，不产生新行
	again, err := svc.StartTask(1, taskID)
	require.NoError(t, err)
	assert.Equal(t, progress.ID, again.ID)
	assert.Equal(t, model.TaskInProgress, again.Status)

	var count int64
	require.NoError(t, db.Model(&model.TaskProgress{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStartTaskNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newProgressService(db)

	_, err := svc.StartTask(1, 999)
	assert.ErrorIs(t, err, util.ErrTaskNotFound)
}

func TestSubmitTaskResponse(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	taskID := program.Phases[0].Tasks[0].ID
	progress, err := svc.SubmitTaskResponse(1, taskID, "昨晚我们因为家务吵了一架……")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, progress.Status)
	assert.Equal(t, "昨晚我们因为家务吵了一架……", progress.Response)
	require.NotNil(t, progress.CompletedAt)

	enrollment := svc.mustEnrollment(t, 1, program.ID)
	assert.Equal(t, 1, enrollment.CompletedTasks)
	assert.Nil(t, enrollment.CompletedAt)
}

func TestSubmitWithoutStart(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	// 不经过 start 直接提交也合法
	taskID := program.Phases[0].Tasks[1].ID
	progress, err := svc.SubmitTaskResponse(1, taskID, "我需要被倾听")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, progress.Status)
}

func TestResubmitOverwritesResponseKeepsFeedback(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	taskID := program.Phases[0].Tasks[0].ID
	first, err := svc.SubmitTaskResponse(1, taskID, "第一版回答")
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.TaskProgress{}).
		Where("id = ?", first.ID).
		Update("feedback", "教练反馈：很好的开始").Error)

	second, err := svc.SubmitTaskResponse(1, taskID, "修改后的回答")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "修改后的回答", second.Response)

	var row model.TaskProgress
	require.NoError(t, db.First(&row, first.ID).Error)
	assert.Equal(t, "教练反馈：很好的开始", row.Feedback)

	// 重复提交不会虚增计数
	enrollment := svc.mustEnrollment(t, 1, program.ID)
	assert.Equal(t, 1, enrollment.CompletedTasks)
}

func TestStartOnCompletedRegressesAndRecounts(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	taskID := program.Phases[0].Tasks[0].ID
	_, err = svc.SubmitTaskResponse(1, taskID, "回答")
	require.NoError(t, err)
	require.Equal(t, 1, svc.mustEnrollment(t, 1, program.ID).CompletedTasks)

	// 重新打开已完成的任务：状态回退，计数同步回落
	progress, err := svc.StartTask(1, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, progress.Status)
	assert.Nil(t, progress.CompletedAt)
	// 提交内容保留，便于用户在原稿上修改
	assert.Equal(t, "回答", progress.Response)

	enrollment := svc.mustEnrollment(t, 1, program.ID)
	assert.Equal(t, 0, enrollment.CompletedTasks)
}

func TestCompleteAllTasks(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	for _, phase := range program.Phases {
		for _, task := range phase.Tasks {
			_, err := svc.SubmitTaskResponse(1, task.ID, "完成")
			require.NoError(t, err)
		}
	}

	enrollment := svc.mustEnrollment(t, 1, program.ID)
	assert.Equal(t, 3, enrollment.CompletedTasks)
	assert.Equal(t, 2, enrollment.CurrentPhase)
	require.NotNil(t, enrollment.CompletedAt)

	// 重新打开任意任务后整体完成状态被清除
	_, err = svc.StartTask(1, program.Phases[1].Tasks[0].ID)
	require.NoError(t, err)

	enrollment = svc.mustEnrollment(t, 1, program.ID)
	assert.Equal(t, 2, enrollment.CompletedTasks)
	assert.Nil(t, enrollment.CompletedAt)
}

func TestCurrentPhaseNeverMovesBackward(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	// 先做第二阶段的任务
	_, err = svc.SubmitTaskResponse(1, program.Phases[1].Tasks[0].ID, "先做后面的")
	require.NoError(t, err)
	require.Equal(t, 2, svc.mustEnrollment(t, 1, program.ID).CurrentPhase)

	// 回头做第一阶段的任务，CurrentPhase 不回退
	_, err = svc.SubmitTaskResponse(1, program.Phases[0].Tasks[0].ID, "再补前面的")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.mustEnrollment(t, 1, program.ID).CurrentPhase)
}

func TestSubmitWithoutEnrollmentIsNoOp(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	// 未报名也能提交任务，报名行不会被创建
	taskID := program.Phases[0].Tasks[0].ID
	progress, err := svc.SubmitTaskResponse(1, taskID, "未报名的提交")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, progress.Status)

	var count int64
	require.NoError(t, db.Model(&model.UserProgress{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCompletedTasksMatchesLiveCount(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)

	tasks := []uint{
		program.Phases[0].Tasks[0].ID,
		program.Phases[0].Tasks[1].ID,
		program.Phases[1].Tasks[0].ID,
	}

	// 交错的 start/submit/重做序列后，冗余计数始终等于实时行数
	_, err = svc.StartTask(1, tasks[0])
	require.NoError(t, err)
	_, err = svc.SubmitTaskResponse(1, tasks[0], "a")
	require.NoError(t, err)
	_, err = svc.SubmitTaskResponse(1, tasks[1], "b")
	require.NoError(t, err)
	_, err = svc.StartTask(1, tasks[1])
	require.NoError(t, err)
	_, err = svc.SubmitTaskResponse(1, tasks[2], "c")
	require.NoError(t, err)

	live, err := repository.CountCompleted(db, 1, program.ID)
	require.NoError(t, err)

	enrollment := svc.mustEnrollment(t, 1, program.ID)
	assert.EqualValues(t, live, enrollment.CompletedTasks)
	assert.Equal(t, 2, enrollment.CompletedTasks)
}

func TestGetProgramProgress(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	_, err := svc.GetProgramProgress(1, program.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)

	_, err = svc.Enroll(1, program.ID)
	require.NoError(t, err)

	taskID := program.Phases[0].Tasks[0].ID
	_, err = svc.SubmitTaskResponse(1, taskID, "已完成")
	require.NoError(t, err)

	resp, err := svc.GetProgramProgress(1, program.ID)
	require.NoError(t, err)
	require.Len(t, resp.Phases, 2)
	assert.Equal(t, program.Name, resp.Name)
	assert.Equal(t, 1, resp.Enrollment.CompletedTasks)

	first := resp.Phases[0].Tasks[0]
	assert.Equal(t, model.TaskCompleted, first.Status)
	assert.Equal(t, "已完成", first.Response)

	// 没有进度行的任务按 NOT_STARTED 展示
	assert.Equal(t, model.TaskNotStarted, resp.Phases[0].Tasks[1].Status)
	assert.Equal(t, model.TaskNotStarted, resp.Phases[1].Tasks[0].Status)
}

func TestGetTaskProgress(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	svc := newProgressService(db)

	taskID := program.Phases[1].Tasks[0].ID

	detail, err := svc.GetTaskProgress(1, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskNotStarted, detail.Status)
	assert.Nil(t, detail.Progress)
	assert.Equal(t, "表达", detail.PhaseName)
	assert.Equal(t, program.ID, detail.ProgramID)
	assert.Equal(t, program.Name, detail.ProgramName)

	_, err = svc.SubmitTaskResponse(1, taskID, "十分钟对话完成了")
	require.NoError(t, err)

	detail, err = svc.GetTaskProgress(1, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, detail.Status)
	require.NotNil(t, detail.Progress)
	assert.Equal(t, "十分钟对话完成了", detail.Progress.Response)

	_, err = svc.GetTaskProgress(1, 999)
	assert.ErrorIs(t, err, util.ErrTaskNotFound)
}

func TestGetAllProgress(t *testing.T) {
	db := newTestDB(t)
	program := seedCatalog(t, db)
	second := &model.Program{Name: "独自成长", IsActive: true}
	require.NoError(t, db.Create(second).Error)

	svc := newProgressService(db)

	_, err := svc.Enroll(1, program.ID)
	require.NoError(t, err)
	_, err = svc.Enroll(1, second.ID)
	require.NoError(t, err)
	_, err = svc.Enroll(2, program.ID)
	require.NoError(t, err)

	enrollments, err := svc.GetAllProgress(1)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	for _, e := range enrollments {
		assert.EqualValues(t, 1, e.UserID)
		require.NotNil(t, e.Program)
	}
}
