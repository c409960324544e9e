package service

import (
	"encoding/json"
	"heartwise_backend/internal/config"
	"heartwise_backend/internal/model"
	"heartwise_backend/internal/repository"
	"heartwise_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedQuestions(t *testing.T, db *gorm.DB) []model.AssessmentQuestion {
	t.Helper()
	questions := []model.AssessmentQuestion{
		{Step: 1, Order: 1, Prompt: "你目前的感情状态是？", Kind: "single_choice"},
		{Step: 1, Order: 2, Prompt: "最近一次争吵是什么时候？", Kind: "single_choice"},
		{Step: 2, Order: 1, Prompt: "冲突发生时你通常的反应是？", Kind: "single_choice"},
		{Step: 3, Order: 1, Prompt: "用一段话描述你理想中的关系。", Kind: "free_text"},
	}
	require.NoError(t, db.Create(&questions).Error)
	return questions
}

func TestGetQuestionnaireGroupsBySteps(t *testing.T) {
	db := newTestDB(t)
	seedQuestions(t, db)

	svc := NewAssessmentService(repository.NewAssessmentRepository(db), nil)
	steps, err := svc.GetQuestionnaire()
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, 1, steps[0].Step)
	assert.Len(t, steps[0].Questions, 2)
	assert.Len(t, steps[1].Questions, 1)
	assert.Len(t, steps[2].Questions, 1)
	assert.Equal(t, "你目前的感情状态是？", steps[0].Questions[0].Prompt)
}

func TestSubmitGeneratesProfile(t *testing.T) {
	db := newTestDB(t)
	questions := seedQuestions(t, db)

	profileJSON, _ := json.Marshal(map[string]string{
		"summary":         "你重视亲密但害怕冲突。",
		"strengths":       "善于共情。",
		"growthAreas":     "直接表达需求。",
		"attachmentStyle": "anxious",
	})
	ai := newTestAIService(t, string(profileJSON))

	svc := NewAssessmentService(repository.NewAssessmentRepository(db), ai)
	answers := []AssessmentAnswer{
		{QuestionID: questions[0].ID, Answer: "dating"},
		{QuestionID: questions[2].ID, Answer: "回避话题"},
	}

	profile, err := svc.Submit(7, answers)
	require.NoError(t, err)
	assert.Equal(t, "你重视亲密但害怕冲突。", profile.Summary)
	assert.Equal(t, "anxious", profile.AttachmentStyle)
	assert.False(t, profile.GeneratedAt.IsZero())

	// 原始答案落盘
	var submissions []model.AssessmentSubmission
	require.NoError(t, db.Where("user_id = ?", 7).Find(&submissions).Error)
	require.Len(t, submissions, 1)

	stored, err := svc.GetProfile(7)
	require.NoError(t, err)
	assert.Equal(t, profile.Summary, stored.Summary)
}

func TestSubmitFallsBackWhenAIFails(t *testing.T) {
	db := newTestDB(t)
	questions := seedQuestions(t, db)

	// 指向不存在的地址，AI 调用必然失败
	ai := NewAIService(config.AIConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k", Model: "m"})
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), ai)

	profile, err := svc.Submit(7, []AssessmentAnswer{
		{QuestionID: questions[0].ID, Answer: "single"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, profile.Summary)
	assert.Equal(t, "mixed", profile.AttachmentStyle)
}

func TestSubmitFallsBackOnUnparseableReply(t *testing.T) {
	db := newTestDB(t)
	questions := seedQuestions(t, db)

	ai := newTestAIService(t, "好的，我来帮你分析一下……")
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), ai)

	profile, err := svc.Submit(7, []AssessmentAnswer{
		{QuestionID: questions[0].ID, Answer: "married"},
	})
	require.NoError(t, err)
	assert.Equal(t, "mixed", profile.AttachmentStyle)
}

func TestResubmitOverwritesProfile(t *testing.T) {
	db := newTestDB(t)
	questions := seedQuestions(t, db)

	ai := NewAIService(config.AIConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k", Model: "m"})
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), ai)

	answers := []AssessmentAnswer{{QuestionID: questions[0].ID, Answer: "single"}}
	_, err := svc.Submit(7, answers)
	require.NoError(t, err)
	_, err = svc.Submit(7, answers)
	require.NoError(t, err)

	// 画像每用户一份，提交历史逐次累积
	var profiles int64
	require.NoError(t, db.Model(&model.CoachingProfile{}).Where("user_id = ?", 7).Count(&profiles).Error)
	assert.EqualValues(t, 1, profiles)

	var submissions int64
	require.NoError(t, db.Model(&model.AssessmentSubmission{}).Where("user_id = ?", 7).Count(&submissions).Error)
	assert.EqualValues(t, 2, submissions)
}

func TestGetProfileNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), nil)

	_, err := svc.GetProfile(42)
	assert.ErrorIs(t, err, util.ErrProfileNotFound)
}
