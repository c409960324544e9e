package app

import (
	"heartwise_backend/docs"
	"heartwise_backend/internal/config"
	"heartwise_backend/internal/middleware"
	"heartwise_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程目录允许游客浏览
		public.GET("/programs", c.program.ListPrograms)
		public.GET("/programs/:programId", c.program.GetProgram)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 用户资料
		authGroup.GET("/profile", c.user.GetProfile)
		authGroup.PUT("/profile", c.user.UpdateProfile)
		authGroup.POST("/profile/avatar", c.user.UploadAvatar)

		// 报名与进度
		authGroup.POST("/programs/:programId/enroll", c.progress.Enroll)
		authGroup.GET("/programs/:programId/progress", c.progress.GetProgramProgress)
		authGroup.GET("/progress", c.progress.GetAllProgress)
		authGroup.POST("/tasks/:taskId/start", c.progress.StartTask)
		authGroup.POST("/tasks/:taskId/response", c.progress.SubmitTaskResponse)
		authGroup.GET("/tasks/:taskId/progress", c.progress.GetTaskProgress)
		authGroup.POST("/tasks/:taskId/feedback", c.progress.GenerateFeedback)

		// 关系测评
		authGroup.GET("/assessment/questionnaire", c.assessment.GetQuestionnaire)
		authGroup.POST("/assessment/submit", c.assessment.Submit)
		authGroup.GET("/assessment/profile", c.assessment.GetProfile)

		// AI 教练会话
		authGroup.POST("/coach/sessions", c.coach.CreateSession)
		authGroup.GET("/coach/sessions", c.coach.ListSessions)
		authGroup.GET("/coach/sessions/:sessionId/messages", c.coach.GetMessages)
		authGroup.POST("/coach/sessions/:sessionId/messages", c.coach.SendMessage)
		authGroup.POST("/coach/sessions/:sessionId/stream", c.coach.StreamMessage)
	}
}
