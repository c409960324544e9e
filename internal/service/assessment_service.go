package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"heartwise_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AssessmentService struct {
	AssessmentRepo *repository.AssessmentRepository
	AIService      *AIService
}

func NewAssessmentService(assessmentRepo *repository.AssessmentRepository, aiService *AIService) *AssessmentService {
	return &AssessmentService{
		AssessmentRepo: assessmentRepo,
		AIService:      aiService,
	}
}

type QuestionnaireStep struct {
	Step      int                        `json:"step"`
	Questions []model.AssessmentQuestion `json:"questions"`
}

// GetQuestionnaire 按步骤分组返回问卷
func (s *AssessmentService) GetQuestionnaire() ([]QuestionnaireStep, error) {
	questions, err := s.AssessmentRepo.ListQuestions()
	if err != nil {
		return nil, err
	}

	var steps []QuestionnaireStep
	for _, q := range questions {
		if len(steps) == 0 || steps[len(steps)-1].Step != q.Step {
			steps = append(steps, QuestionnaireStep{Step: q.Step})
		}
		last := &steps[len(steps)-1]
		last.Questions = append(last.Questions, q)
	}
	return steps, nil
}

type AssessmentAnswer struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

type generatedProfile struct {
	Summary         string `json:"summary"`
	Strengths       string `json:"strengths"`
	GrowthAreas     string `json:"growthAreas"`
	AttachmentStyle string `json:"attachmentStyle"`
}

// Submit 保存问卷提交并生成教练画像。
// AI 调用失败时退回到固定文案的兜底画像，提交本身不失败。
func (s *AssessmentService) Submit(userID uint, answers []AssessmentAnswer) (*model.CoachingProfile, error) {
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	submission := &model.AssessmentSubmission{
		UserID:      userID,
		Answers:     raw,
		CompletedAt: time.Now(),
	}
	if err := s.AssessmentRepo.CreateSubmission(submission); err != nil {
		return nil, err
	}

	profile := s.generateProfile(userID, answers)
	profile.GeneratedAt = time.Now()
	if err := s.AssessmentRepo.UpsertProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *AssessmentService) generateProfile(userID uint, answers []AssessmentAnswer) *model.CoachingProfile {
	questions, err := s.AssessmentRepo.ListQuestions()
	if err != nil {
		logger.Log.Warn("load questions for profile generation failed", zap.Error(err))
		return fallbackProfile(userID)
	}
	prompts := make(map[uint]string, len(questions))
	for _, q := range questions {
		prompts[q.ID] = q.Prompt
	}

	var sb strings.Builder
	for _, a := range answers {
		prompt := prompts[a.QuestionID]
		if prompt == "" {
			continue
		}
		fmt.Fprintf(&sb, "问：%s\n答：%s\n\n", prompt, a.Answer)
	}

	instruction := "以下是一位用户的关系测评问卷结果。请基于这些回答生成教练画像，" +
		"只输出一个 JSON 对象，字段为 summary（整体概述）、strengths（关系中的优势）、" +
		"growthAreas（成长方向）、attachmentStyle（依恋风格，secure/anxious/avoidant/mixed 之一），" +
		"不要输出其他内容。\n\n" + sb.String()

	reply, err := s.AIService.Chat(instruction, "", nil)
	if err != nil {
		logger.Log.Warn("AI profile generation failed, using fallback", zap.Error(err))
		return fallbackProfile(userID)
	}

	var parsed generatedProfile
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &parsed); err != nil || parsed.Summary == "" {
		logger.Log.Warn("AI profile response not parseable, using fallback", zap.String("reply", reply))
		return fallbackProfile(userID)
	}

	return &model.CoachingProfile{
		UserID:          userID,
		Summary:         parsed.Summary,
		Strengths:       parsed.Strengths,
		GrowthAreas:     parsed.GrowthAreas,
		AttachmentStyle: parsed.AttachmentStyle,
	}
}

// AI 不可用时的兜底画像
func fallbackProfile(userID uint) *model.CoachingProfile {
	return &model.CoachingProfile{
		UserID:          userID,
		Summary:         "你已经迈出了重要的一步：愿意停下来审视自己的关系模式。接下来的课程会帮助你逐步建立更清晰的觉察。",
		Strengths:       "愿意自我反思，并主动寻求改善关系的方法。",
		GrowthAreas:     "在日常沟通中练习表达感受与需求，觉察冲突中的自动反应。",
		AttachmentStyle: "mixed",
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func (s *AssessmentService) GetProfile(userID uint) (*model.CoachingProfile, error) {
	profile, err := s.AssessmentRepo.FindProfileByUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}
