package controller

import (
	"errors"
	"heartwise_backend/internal/service"
	"heartwise_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
}

func NewAssessmentController(assessmentService *service.AssessmentService) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService}
}

// GetQuestionnaire godoc
// @Summary 获取测评问卷
// @Description 按步骤分组返回关系测评问卷
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.QuestionnaireStep} "成功"
// @Router /api/assessment/questionnaire [get]
func (c *AssessmentController) GetQuestionnaire(ctx *gin.Context) {
	steps, err := c.AssessmentService.GetQuestionnaire()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, steps)
}

type SubmitAssessmentRequest struct {
	Answers []service.AssessmentAnswer `json:"answers" binding:"required,min=1,dive"`
}

// Submit godoc
// @Summary 提交测评
// @Description 保存问卷答案并生成教练画像
// @Tags 测评
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SubmitAssessmentRequest true "问卷答案"
// @Success 201 {object} util.Response{data=model.CoachingProfile} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/assessment/submit [post]
func (c *AssessmentController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.AssessmentService.Submit(claims.UserID, req.Answers)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, profile)
}

// GetProfile godoc
// @Summary 获取教练画像
// @Description 获取当前用户的测评生成画像
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.CoachingProfile} "成功"
// @Failure 404 {object} util.Response "尚未完成测评"
// @Router /api/assessment/profile [get]
func (c *AssessmentController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.AssessmentService.GetProfile(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrProfileNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, profile)
}
