package controller

import (
	"errors"
	"heartwise_backend/internal/service"
	"heartwise_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CoachController struct {
	CoachService *service.CoachService
}

func NewCoachController(coachService *service.CoachService) *CoachController {
	return &CoachController{CoachService: coachService}
}

type CreateSessionRequest struct {
	TaskID *uint  `json:"taskId"`
	Title  string `json:"title"`
}

// CreateSession godoc
// @Summary 新建教练会话
// @Description 创建 AI 教练会话，可绑定到某个任务
// @Tags 教练
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateSessionRequest true "会话信息"
// @Success 201 {object} util.Response{data=model.CoachSession} "成功"
// @Failure 404 {object} util.Response "绑定的任务不存在"
// @Router /api/coach/sessions [post]
func (c *CoachController) CreateSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.CoachService.CreateSession(claims.UserID, req.TaskID, req.Title)
	if err != nil {
		if errors.Is(err, util.ErrTaskNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, session)
}

// ListSessions godoc
// @Summary 会话列表
// @Description 获取当前用户的所有教练会话
// @Tags 教练
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.CoachSession} "成功"
// @Router /api/coach/sessions [get]
func (c *CoachController) ListSessions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	sessions, err := c.CoachService.ListSessions(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, sessions)
}

// GetMessages godoc
// @Summary 会话消息记录
// @Description 获取会话的完整消息历史
// @Tags 教练
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=[]model.CoachMessage} "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/coach/sessions/{sessionId}/messages [get]
func (c *CoachController) GetMessages(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	messages, err := c.CoachService.GetMessages(claims.UserID, ctx.Param("sessionId"))
	if err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, messages)
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage godoc
// @Summary 发送消息
// @Description 向教练会话发送消息并同步返回 AI 回复
// @Tags 教练
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "会话ID"
// @Param   body body SendMessageRequest true "消息内容"
// @Success 200 {object} util.Response{data=model.CoachMessage} "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/coach/sessions/{sessionId}/messages [post]
func (c *CoachController) SendMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.CoachService.SendMessage(claims.UserID, ctx.Param("sessionId"), req.Content)
	if err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, reply)
}

// StreamMessage godoc
// @Summary 流式发送消息
// @Description 向教练会话发送消息，AI 回复以 SSE 流式返回
// @Tags 教练
// @Accept  json
// @Produce  text/event-stream
// @Security ApiKeyAuth
// @Param   sessionId path string true "会话ID"
// @Param   body body SendMessageRequest true "消息内容"
// @Success 200 {string} string "SSE 流"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/coach/sessions/{sessionId}/stream [post]
func (c *CoachController) StreamMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	stream, errChan, err := c.CoachService.SendMessageStream(claims.UserID, ctx.Param("sessionId"), req.Content)
	if err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	// 设置SSE响应头
	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("Transfer-Encoding", "chunked")

	for content := range stream {
		ctx.SSEvent("message", content)
		ctx.Writer.Flush()
	}

	if err := <-errChan; err != nil {
		ctx.SSEvent("error", err.Error())
		ctx.Writer.Flush()
	}

	ctx.SSEvent("end", "done")
	ctx.Writer.Flush()
}
