package service

import (
	"errors"
	"fmt"
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"heartwise_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 会话历史注入上限，避免 token 超限
const maxHistoryMessages = 20

const coachUnavailableReply = "抱歉，教练暂时无法回应，请稍后再试。你刚才说的内容已经保存，不会丢失。"

// CoachService AI 教练会话。会话可绑定到某个任务，
// 绑定后对话上下文会带上任务指引和用户画像。
type CoachService struct {
	CoachRepo      *repository.CoachRepository
	ProgramRepo    *repository.ProgramRepository
	ProgressRepo   *repository.ProgressRepository
	AssessmentRepo *repository.AssessmentRepository
	AIService      *AIService
	DB             *gorm.DB
}

func NewCoachService(
	coachRepo *repository.CoachRepository,
	programRepo *repository.ProgramRepository,
	progressRepo *repository.ProgressRepository,
	assessmentRepo *repository.AssessmentRepository,
	aiService *AIService,
	db *gorm.DB,
) *CoachService {
	return &CoachService{
		CoachRepo:      coachRepo,
		ProgramRepo:    programRepo,
		ProgressRepo:   progressRepo,
		AssessmentRepo: assessmentRepo,
		AIService:      aiService,
		DB:             db,
	}
}

// CreateSession 新建会话。taskID 非空时校验任务存在并默认用任务标题命名
func (s *CoachService) CreateSession(userID uint, taskID *uint, title string) (*model.CoachSession, error) {
	if taskID != nil {
		task, err := s.ProgramRepo.FindTaskWithPhase(*taskID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTaskNotFound
		}
		if err != nil {
			return nil, err
		}
		if title == "" {
			title = task.Title
		}
	}
	if title == "" {
		title = "教练对话"
	}

	session := &model.CoachSession{
		UserID: userID,
		TaskID: taskID,
		Title:  title,
	}
	if err := s.CoachRepo.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *CoachService) ListSessions(userID uint) ([]model.CoachSession, error) {
	return s.CoachRepo.ListSessionsByUser(userID)
}

func (s *CoachService) GetMessages(userID uint, sessionID string) ([]model.CoachMessage, error) {
	if _, err := s.findOwnedSession(userID, sessionID); err != nil {
		return nil, err
	}
	return s.CoachRepo.ListMessages(sessionID, 0)
}

func (s *CoachService) findOwnedSession(userID uint, sessionID string) (*model.CoachSession, error) {
	session, err := s.CoachRepo.FindSession(sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// buildContext 组装对话背景：用户画像 + 绑定任务的指引
func (s *CoachService) buildContext(userID uint, taskID *uint) string {
	var sb strings.Builder

	if profile, err := s.AssessmentRepo.FindProfileByUser(userID); err == nil {
		fmt.Fprintf(&sb, "用户画像：%s\n优势：%s\n成长方向：%s\n依恋风格：%s\n",
			profile.Summary, profile.Strengths, profile.GrowthAreas, profile.AttachmentStyle)
	}

	if taskID != nil {
		if task, err := s.ProgramRepo.FindTaskWithAncestry(*taskID); err == nil {
			fmt.Fprintf(&sb, "\n当前任务：%s（类型：%s）\n任务说明：%s\n", task.Title, task.Type, task.Description)
			if task.Phase != nil && task.Phase.Program != nil {
				fmt.Fprintf(&sb, "所属课程：%s / %s\n", task.Phase.Program.Name, task.Phase.Name)
			}
			if progress, err := s.ProgressRepo.FindTaskProgress(userID, *taskID); err == nil && progress.Response != "" {
				fmt.Fprintf(&sb, "用户此前的提交：%s\n", progress.Response)
			}
		}
	}

	return sb.String()
}

func (s *CoachService) historyFor(sessionID string) ([]AIChatMessage, error) {
	messages, err := s.CoachRepo.ListMessages(sessionID, maxHistoryMessages)
	if err != nil {
		return nil, err
	}
	history := make([]AIChatMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, AIChatMessage{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

// SendMessage 同步问答：保存用户消息，调用 AI，保存并返回回复。
// AI 失败时落盘固定文案，用户消息不丢。
func (s *CoachService) SendMessage(userID uint, sessionID, content string) (*model.CoachMessage, error) {
	session, err := s.findOwnedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.historyFor(sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.CoachMessage{
		SessionID: sessionID,
		Role:      "user",
		Content:   content,
	}
	if err := s.CoachRepo.CreateMessage(userMsg); err != nil {
		return nil, err
	}

	context := s.buildContext(userID, session.TaskID)
	reply, err := s.AIService.Chat(content, context, history)
	if err != nil {
		logger.Log.Warn("coach reply failed, using canned response",
			zap.String("session", sessionID), zap.Error(err))
		reply = coachUnavailableReply
	}

	assistantMsg := &model.CoachMessage{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   reply,
	}
	if err := s.CoachRepo.CreateMessage(assistantMsg); err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

// SendMessageStream 流式问答。回复片段通过通道返回，
// 完整回复在流结束后落盘。
func (s *CoachService) SendMessageStream(userID uint, sessionID, content string) (<-chan string, <-chan error, error) {
	session, err := s.findOwnedSession(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	history, err := s.historyFor(sessionID)
	if err != nil {
		return nil, nil, err
	}

	userMsg := &model.CoachMessage{
		SessionID: sessionID,
		Role:      "user",
		Content:   content,
	}
	if err := s.CoachRepo.CreateMessage(userMsg); err != nil {
		return nil, nil, err
	}

	context := s.buildContext(userID, session.TaskID)
	stream, streamErr := s.AIService.ChatStream(content, context, history)

	out := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errChan)

		var sb strings.Builder
		for chunk := range stream {
			sb.WriteString(chunk)
			out <- chunk
		}

		if err := <-streamErr; err != nil {
			errChan <- err
			return
		}

		if sb.Len() > 0 {
			msg := &model.CoachMessage{
				SessionID: sessionID,
				Role:      "assistant",
				Content:   sb.String(),
			}
			if err := s.CoachRepo.CreateMessage(msg); err != nil {
				logger.Log.Error("persist streamed coach reply failed",
					zap.String("session", sessionID), zap.Error(err))
			}
		}
	}()

	return out, errChan, nil
}

// GenerateTaskFeedback 为已完成的任务提交生成教练反馈并写回进度行。
// 画像、反馈的填充都发生在提交之后，进度核心只把 Feedback 当作普通字段。
func (s *CoachService) GenerateTaskFeedback(userID, taskID uint) (*model.TaskProgress, error) {
	task, err := s.ProgramRepo.FindTaskWithAncestry(taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	progress, err := s.ProgressRepo.FindTaskProgress(userID, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTaskNotSubmitted
	}
	if err != nil {
		return nil, err
	}
	if progress.Status != model.TaskCompleted || progress.Response == "" {
		return nil, util.ErrTaskNotSubmitted
	}

	prompt := fmt.Sprintf(
		"用户刚完成了任务「%s」（类型：%s）。任务说明：%s\n\n用户的提交内容：\n%s\n\n"+
			"请给出一段简短、温和、具体的教练反馈：先肯定用户做得好的地方，再给一个可操作的建议。",
		task.Title, task.Type, task.Description, progress.Response)

	feedback, err := s.AIService.Chat(prompt, s.buildContext(userID, nil), nil)
	if err != nil {
		logger.Log.Warn("task feedback generation failed, using canned response",
			zap.Uint("task", taskID), zap.Error(err))
		feedback = "感谢你的认真投入。你的提交已收到，教练反馈稍后会更新，请先继续下一个任务。"
	}

	if err := s.DB.Model(&model.TaskProgress{}).
		Where("id = ?", progress.ID).
		Update("feedback", feedback).Error; err != nil {
		return nil, err
	}
	progress.Feedback = feedback
	return progress, nil
}
