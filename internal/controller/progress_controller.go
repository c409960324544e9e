package controller

import (
	"errors"
	"heartwise_backend/internal/service"
	"heartwise_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	CoachService    *service.CoachService
}

func NewProgressController(progressService *service.ProgressService, coachService *service.CoachService) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		CoachService:    coachService,
	}
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// Enroll godoc
// @Summary 报名课程
// @Description 为当前用户报名课程。任务总数在报名时快照，重复报名返回 409
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   programId path int true "课程ID"
// @Success 201 {object} util.Response{data=model.UserProgress} "报名成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 409 {object} util.Response "已报名该课程"
// @Router /api/programs/{programId}/enroll [post]
func (c *ProgressController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	programID, ok := parseUintParam(ctx, "programId")
	if !ok {
		return
	}

	enrollment, err := c.ProgressService.Enroll(claims.UserID, programID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAlreadyEnrolled):
			util.Conflict(ctx, "已报名该课程")
		case errors.Is(err, util.ErrProgramNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, enrollment)
}

// StartTask godoc
// @Summary 开始任务
// @Description 将任务标记为进行中。重复调用幂等；已完成的任务会被拉回进行中
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   taskId path int true "任务ID"
// @Success 200 {object} util.Response{data=model.TaskProgress} "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/tasks/{taskId}/start [post]
func (c *ProgressController) StartTask(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	taskID, ok := parseUintParam(ctx, "taskId")
	if !ok {
		return
	}

	progress, err := c.ProgressService.StartTask(claims.UserID, taskID)
	if err != nil {
		if errors.Is(err, util.ErrTaskNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, progress)
}

type SubmitResponseRequest struct {
	Response string `json:"response" binding:"required"`
}

// SubmitTaskResponse godoc
// @Summary 提交任务
// @Description 记录任务提交内容并标记为已完成，重复提交覆盖原内容
// @Tags 进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   taskId path int true "任务ID"
// @Param   body body SubmitResponseRequest true "提交内容"
// @Success 200 {object} util.Response{data=model.TaskProgress} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/tasks/{taskId}/response [post]
func (c *ProgressController) SubmitTaskResponse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	taskID, ok := parseUintParam(ctx, "taskId")
	if !ok {
		return
	}

	var req SubmitResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.ProgressService.SubmitTaskResponse(claims.UserID, taskID, req.Response)
	if err != nil {
		if errors.Is(err, util.ErrTaskNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, progress)
}

// GetTaskProgress godoc
// @Summary 单任务进度
// @Description 获取任务详情及当前用户的完成状态，未开始的任务返回 NOT_STARTED
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   taskId path int true "任务ID"
// @Success 200 {object} util.Response{data=service.TaskProgressDetail} "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/tasks/{taskId}/progress [get]
func (c *ProgressController) GetTaskProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	taskID, ok := parseUintParam(ctx, "taskId")
	if !ok {
		return
	}

	detail, err := c.ProgressService.GetTaskProgress(claims.UserID, taskID)
	if err != nil {
		if errors.Is(err, util.ErrTaskNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, detail)
}

// GetProgramProgress godoc
// @Summary 课程进度
// @Description 获取报名记录、课程完整结构和逐任务完成状态
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   programId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgramProgressResponse} "成功"
// @Failure 404 {object} util.Response "未报名或课程不存在"
// @Router /api/programs/{programId}/progress [get]
func (c *ProgressController) GetProgramProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	programID, ok := parseUintParam(ctx, "programId")
	if !ok {
		return
	}

	resp, err := c.ProgressService.GetProgramProgress(claims.UserID, programID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrEnrollmentNotFound), errors.Is(err, util.ErrProgramNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, resp)
}

// GetAllProgress godoc
// @Summary 全部报名进度
// @Description 获取当前用户所有课程的报名记录和汇总进度
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserProgress} "成功"
// @Router /api/progress [get]
func (c *ProgressController) GetAllProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollments, err := c.ProgressService.GetAllProgress(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, enrollments)
}

// GenerateFeedback godoc
// @Summary 生成任务反馈
// @Description 为已完成的任务提交生成 AI 教练反馈
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   taskId path int true "任务ID"
// @Success 200 {object} util.Response{data=model.TaskProgress} "成功"
// @Failure 400 {object} util.Response "任务尚未提交"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/tasks/{taskId}/feedback [post]
func (c *ProgressController) GenerateFeedback(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	taskID, ok := parseUintParam(ctx, "taskId")
	if !ok {
		return
	}

	progress, err := c.CoachService.GenerateTaskFeedback(claims.UserID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTaskNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrTaskNotSubmitted):
			util.BadRequest(ctx, "任务尚未提交，无法生成反馈")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, progress)
}
