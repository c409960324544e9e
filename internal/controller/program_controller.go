package controller

import (
	"errors"
	"heartwise_backend/internal/service"
	"heartwise_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgramController struct {
	ProgramService *service.ProgramService
}

func NewProgramController(programService *service.ProgramService) *ProgramController {
	return &ProgramController{ProgramService: programService}
}

// ListPrograms godoc
// @Summary 课程列表
// @Description 获取所有上架课程（不含阶段和任务明细）
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Program} "成功"
// @Router /api/programs [get]
func (c *ProgramController) ListPrograms(ctx *gin.Context) {
	programs, err := c.ProgramService.ListPrograms()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, programs)
}

// GetProgram godoc
// @Summary 课程详情
// @Description 获取课程完整的阶段和任务结构
// @Tags 课程
// @Produce  json
// @Param   programId path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Program} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/programs/{programId} [get]
func (c *ProgramController) GetProgram(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("programId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid program id")
		return
	}

	program, err := c.ProgramService.GetProgram(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrProgramNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, program)
}
